package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slashkit_command_invocations_total",
		Help: "Total number of slash-command invocations",
	}, []string{"command"})

	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slashkit_command_errors_total",
		Help: "Total number of slash-command handler errors",
	}, []string{"command"})

	CheckFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slashkit_check_failures_total",
		Help: "Total number of invocations refused by a check",
	}, []string{"command"})

	CooldownRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slashkit_cooldown_rejections_total",
		Help: "Total number of invocations rejected by a cooldown",
	}, []string{"command"})

	SyncedCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slashkit_synced_commands_total",
		Help: "Commands created, updated or pruned by the sync pass",
	}, []string{"action"})
)
