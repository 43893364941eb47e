// Package slashkit is a slash-command extension for discordgo. It keeps the
// commands registered with the Discord API in sync with the declarations in
// code, routes incoming interactions to their handlers, and guards handlers
// with declarative checks and cooldowns.
package slashkit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/inconshreveable/log15"

	"github.com/venrali/slashkit/checks"
	"github.com/venrali/slashkit/command"
	"github.com/venrali/slashkit/component"
	"github.com/venrali/slashkit/metrics"
	"github.com/venrali/slashkit/registry"
	"github.com/venrali/slashkit/utils"
)

// ErrNoStore is returned by persistence-backed operations when the manager
// was configured without a database
var ErrNoStore = errors.New("no database configured")

// Config is the structure that holds the configuration for the manager
type Config struct {
	// The token used to authenticate with Discord
	Token string
	// DatabasePath is the sqlite file backing guild settings and command
	// records. Empty disables persistence (and with it per-guild command
	// disabling and orphan pruning).
	DatabasePath string
	// OwnerIDs are the user IDs treated as bot owners, see Owners
	OwnerIDs []string
	// DisableSync skips the register-or-patch pass on ready
	DisableSync bool
}

// InteractionResponder is the slice of *discordgo.Session the dispatch path
// needs to answer interactions. Kept narrow so tests can fake it.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

type ManagerStartFunc func(mng *Manager) error

// SyncFunc observes the result of a sync pass
type SyncFunc func(created, updated, pruned int)

// CommandErrorFunc observes every failed command invocation, check failures
// and cooldown rejections included
type CommandErrorFunc func(i *discordgo.InteractionCreate, err error)

// Manager is the overarching structure tying the session, the command
// registry, the persistent store, and the interaction dispatch together
type Manager struct {
	logger    log.Logger
	config    *Config
	session   *discordgo.Session
	responder InteractionResponder
	store     *Store

	commands   map[string]*command.Command
	components map[string]component.HandlerFunc
	registry   *registry.Client

	onStartFuncs []ManagerStartFunc
	onSyncFuncs  []SyncFunc
	onErrorFuncs []CommandErrorFunc

	readyOnce sync.Once
}

func NewManager(logger log.Logger, config *Config) (*Manager, error) {
	var store *Store
	if config.DatabasePath != "" {
		var err error
		store, err = OpenStore(config.DatabasePath)
		if err != nil {
			return nil, err
		}
	}
	session, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds)

	return &Manager{
		logger:     logger,
		config:     config,
		session:    session,
		responder:  session,
		store:      store,
		commands:   make(map[string]*command.Command),
		components: make(map[string]component.HandlerFunc),
	}, nil
}

// RegisterCommands declares commands to be synced and dispatched.
// Make sure to register commands before starting the manager.
func (mng *Manager) RegisterCommands(commands ...*command.Command) error {
	for _, cmd := range commands {
		if _, exists := mng.commands[cmd.Name]; exists {
			return fmt.Errorf("command '%s' registered twice", cmd.Name)
		}
		mng.commands[cmd.Name] = cmd
	}
	return nil
}

// ListenForComponent registers a handler for a specific component custom ID
func (mng *Manager) ListenForComponent(customID string, handler component.HandlerFunc) {
	mng.components[customID] = handler
}

// OnStart registers a function to run once the manager is ready and synced
func (mng *Manager) OnStart(f ManagerStartFunc) {
	mng.onStartFuncs = append(mng.onStartFuncs, f)
}

// OnSync registers an observer for sync pass results
func (mng *Manager) OnSync(f SyncFunc) {
	mng.onSyncFuncs = append(mng.onSyncFuncs, f)
}

// OnCommandError registers an observer for failed invocations
func (mng *Manager) OnCommandError(f CommandErrorFunc) {
	mng.onErrorFuncs = append(mng.onErrorFuncs, f)
}

func (mng *Manager) Start() error {
	mng.setupHandlers()
	if err := mng.session.Open(); err != nil {
		return err
	}
	return nil
}

func (mng *Manager) Stop() {
	mng.session.Close()
}

func (mng *Manager) setupHandlers() {
	mng.session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) { mng.onReady() })
	mng.session.AddHandler(func(s *discordgo.Session, event *discordgo.InteractionCreate) {
		switch event.Type {
		case discordgo.InteractionApplicationCommand:
			mng.onCommand(event)
		case discordgo.InteractionMessageComponent:
			mng.onComponent(event)
		}
	})
	mng.session.AddHandler(func(s *discordgo.Session, event *discordgo.GuildCreate) { mng.onGuildJoin(event) })
	mng.session.AddHandler(func(s *discordgo.Session, event *discordgo.GuildDelete) { mng.onGuildLeave(event) })
	mng.logger.Info("Registered event handlers")
}

// onReady runs the first-connect work exactly once; reconnects skip it
func (mng *Manager) onReady() {
	mng.readyOnce.Do(func() {
		mng.registry = registry.New(mng.session, mng.session.State.User.ID)
		if !mng.config.DisableSync {
			if err := mng.syncCommands(); err != nil {
				mng.logger.Error("Failed to sync commands", "error", err)
			}
		}
		for _, f := range mng.onStartFuncs {
			if err := f(mng); err != nil {
				mng.logger.Error("Failed to run start function", "error", err)
			}
		}
		mng.logger.Info(fmt.Sprintf("Logged in as %s#%s",
			mng.session.State.User.Username, mng.session.State.User.Discriminator))
	})
}

func (mng *Manager) onCommand(event *discordgo.InteractionCreate) {
	data := event.ApplicationCommandData()
	cmd, ok := mng.commands[data.Name]
	if !ok {
		mng.logger.Warn("Received unknown command", "command", data.Name)
		return
	}
	mng.logger.Debug("Received command", "command", cmd.Name, "guild", event.GuildID)
	metrics.CommandInvocations.WithLabelValues(cmd.Name).Inc()

	if mng.isDisabled(event.GuildID, cmd.Name) {
		mng.respond(event, command.EphemeralEmbeds(utils.ErrorAsEmbed("This command is disabled in this server.")))
		return
	}
	if err := mng.runChecks(cmd, event); err != nil {
		mng.handleCommandError(cmd, event, err)
		return
	}
	res, err := cmd.Handler(mng.session, event)
	if err != nil {
		mng.handleCommandError(cmd, event, err)
		return
	}
	// if response is nil, the handler responded on its own
	if res == nil {
		return
	}
	mng.respond(event, res)
}

func (mng *Manager) runChecks(cmd *command.Command, event *discordgo.InteractionCreate) error {
	for _, check := range cmd.Checks {
		if err := check(mng.session, event); err != nil {
			return err
		}
	}
	if cmd.Cooldown != nil {
		if err := cmd.Cooldown.Update(event); err != nil {
			return err
		}
	}
	return nil
}

func (mng *Manager) handleCommandError(cmd *command.Command, event *discordgo.InteractionCreate, err error) {
	for _, f := range mng.onErrorFuncs {
		f(event, err)
	}

	var cooldownErr *checks.CooldownError
	switch {
	case errors.As(err, &cooldownErr):
		metrics.CooldownRejections.WithLabelValues(cmd.Name).Inc()
		retry := CreateTimestamp(time.Now().Add(cooldownErr.RetryAfter))
		mng.respond(event, command.EphemeralEmbeds(utils.ErrorAsEmbed(
			fmt.Sprintf("You are on cooldown. Try again %s.", retry.RelativeString()))))
	case checks.IsFailure(err):
		metrics.CheckFailures.WithLabelValues(cmd.Name).Inc()
		mng.respond(event, command.EphemeralEmbeds(utils.ErrorAsEmbed(err.Error())))
	default:
		metrics.CommandErrors.WithLabelValues(cmd.Name).Inc()
		mng.logger.Error("Failed to handle command", "command", cmd.Name, "error", err)
		mng.respond(event, command.EphemeralEmbeds(utils.ErrorAsEmbed(err.Error())))
	}
}

func (mng *Manager) onComponent(event *discordgo.InteractionCreate) {
	data := event.MessageComponentData()
	handler, ok := mng.components[data.CustomID]
	if !ok {
		return
	}
	res, err := handler(event, &data)
	if err != nil {
		mng.logger.Error("Failed to handle component", "component", data.CustomID, "error", err)
		mng.respond(event, command.EphemeralEmbeds(utils.ErrorAsEmbed(err.Error())))
		return
	}
	if res != nil {
		mng.respond(event, res)
	}
}

func (mng *Manager) respond(event *discordgo.InteractionCreate, res *discordgo.InteractionResponse) {
	if err := mng.responder.InteractionRespond(event.Interaction, res); err != nil {
		mng.logger.Error("Failed to respond to interaction", "error", err)
	}
}

func (mng *Manager) onGuildJoin(event *discordgo.GuildCreate) {
	mng.logger.Debug("Loaded guild", "guild", event.ID)
	if mng.store == nil {
		return
	}
	if _, err := mng.store.GuildSettings(event.ID); err != nil {
		mng.logger.Error("Failed to create guild settings", "guild", event.ID, "error", err)
	}
}

func (mng *Manager) onGuildLeave(event *discordgo.GuildDelete) {
	// outages also deliver guild deletes, only react to real removals
	if event.Unavailable {
		return
	}
	mng.logger.Info("Left guild", "guild", event.ID)
	if mng.registry != nil {
		mng.registry.EvictGuild(event.ID)
	}
	if mng.store != nil {
		if err := mng.store.DeleteGuild(event.ID); err != nil {
			mng.logger.Error("Failed to delete guild data", "guild", event.ID, "error", err)
		}
	}
}

// DisableCommand refuses a command in a guild until it is enabled again
func (mng *Manager) DisableCommand(guildID, name string) error {
	if mng.store == nil {
		return ErrNoStore
	}
	settings, err := mng.store.GuildSettings(guildID)
	if err != nil {
		return err
	}
	if utils.Contains(settings.DisabledCommands, name) {
		return nil
	}
	settings.DisabledCommands = append(settings.DisabledCommands, name)
	return mng.store.SaveGuildSettings(settings)
}

// EnableCommand lifts a previous DisableCommand
func (mng *Manager) EnableCommand(guildID, name string) error {
	if mng.store == nil {
		return ErrNoStore
	}
	settings, err := mng.store.GuildSettings(guildID)
	if err != nil {
		return err
	}
	kept := make(StringArray, 0, len(settings.DisabledCommands))
	for _, disabled := range settings.DisabledCommands {
		if disabled != name {
			kept = append(kept, disabled)
		}
	}
	settings.DisabledCommands = kept
	return mng.store.SaveGuildSettings(settings)
}

func (mng *Manager) isDisabled(guildID, name string) bool {
	if mng.store == nil || guildID == "" {
		return false
	}
	settings, err := mng.store.GuildSettings(guildID)
	if err != nil {
		mng.logger.Error("Failed to load guild settings", "guild", guildID, "error", err)
		return false
	}
	return utils.Contains(settings.DisabledCommands, name)
}

func (mng *Manager) Logger() log.Logger {
	return mng.logger
}

func (mng *Manager) Config() *Config {
	return mng.config
}

func (mng *Manager) Session() *discordgo.Session {
	return mng.session
}

// Registry returns the command registry client. It is nil until the first
// Ready event has been received.
func (mng *Manager) Registry() *registry.Client {
	return mng.registry
}

// Store returns the persistent store, or nil when none is configured
func (mng *Manager) Store() *Store {
	return mng.store
}

func (mng *Manager) BotUser() *discordgo.User {
	return mng.session.State.User
}

// Owners returns the configured owner IDs, ready to feed checks.IsOwner
func (mng *Manager) Owners() []string {
	return mng.config.OwnerIDs
}
