package slashkit

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/venrali/slashkit/command"
	"github.com/venrali/slashkit/metrics"
	"github.com/venrali/slashkit/utils"
)

// syncCommands brings the commands registered with the API in line with the
// declarations: missing commands are created, drifted ones patched, and
// recorded commands whose declaration disappeared are pruned. Guilds the bot
// has no access to are skipped for the rest of the pass.
func (mng *Manager) syncCommands() error {
	if err := mng.registry.LoadGlobalCommands(); err != nil {
		return fmt.Errorf("failed to load global commands: %w", err)
	}
	for _, guildID := range mng.declaredGuilds() {
		if err := mng.registry.LoadGuildCommands(guildID); err != nil {
			mng.logger.Warn("Failed to load guild commands", "guild", guildID, "error", err)
		}
	}

	var created, updated int
	badGuilds := make(map[string]bool)
	for _, cmd := range mng.commands {
		if cmd.Global() {
			c, u, err := mng.syncGlobal(cmd)
			if err != nil {
				mng.logger.Warn("Failed to sync command", "command", cmd.Name, "error", err)
			}
			created += c
			updated += u
			continue
		}
		for _, guildID := range cmd.GuildIDs {
			if badGuilds[guildID] {
				continue
			}
			c, u, err := mng.syncGuild(cmd, guildID)
			if isForbidden(err) {
				badGuilds[guildID] = true
				mng.logger.Warn("Missing access", "guild", guildID)
			} else if err != nil {
				mng.logger.Warn("Failed to sync command", "command", cmd.Name, "guild", guildID, "error", err)
			}
			created += c
			updated += u
		}
	}

	pruned := mng.pruneOrphans()

	mng.logger.Info(
		fmt.Sprintf("Synced %d %s", len(mng.commands), utils.Pluralize(len(mng.commands), "command", "commands")),
		"created", created, "updated", updated, "pruned", pruned,
	)
	for _, f := range mng.onSyncFuncs {
		f(created, updated, pruned)
	}
	return nil
}

func (mng *Manager) syncGlobal(cmd *command.Command) (created, updated int, err error) {
	existing := mng.registry.GlobalCommandNamed(cmd.Name)
	if existing == nil {
		existing, err = mng.registry.FetchGlobalCommandNamed(cmd.Name)
		if err != nil {
			return 0, 0, err
		}
	}
	switch {
	case existing == nil:
		registered, err := mng.registry.CreateGlobalCommand(cmd.ApplicationCommand())
		if err != nil {
			return 0, 0, err
		}
		mng.recordCommand(registered, "")
		metrics.SyncedCommands.WithLabelValues("created").Inc()
		return 1, 0, nil
	case !cmd.EqualsRegistered(existing):
		registered, err := mng.registry.EditGlobalCommand(existing.ID, cmd.ApplicationCommand())
		if err != nil {
			return 0, 0, err
		}
		mng.recordCommand(registered, "")
		metrics.SyncedCommands.WithLabelValues("updated").Inc()
		return 0, 1, nil
	default:
		mng.recordCommand(existing, "")
		return 0, 0, nil
	}
}

func (mng *Manager) syncGuild(cmd *command.Command, guildID string) (created, updated int, err error) {
	existing := mng.registry.GuildCommandNamed(guildID, cmd.Name)
	if existing == nil {
		existing, err = mng.registry.FetchGuildCommandNamed(guildID, cmd.Name)
		if err != nil {
			return 0, 0, err
		}
	}
	switch {
	case existing == nil:
		registered, err := mng.registry.CreateGuildCommand(guildID, cmd.ApplicationCommand())
		if err != nil {
			return 0, 0, err
		}
		mng.recordCommand(registered, guildID)
		metrics.SyncedCommands.WithLabelValues("created").Inc()
		return 1, 0, nil
	case !cmd.EqualsRegistered(existing):
		registered, err := mng.registry.EditGuildCommand(guildID, existing.ID, cmd.ApplicationCommand())
		if err != nil {
			return 0, 0, err
		}
		mng.recordCommand(registered, guildID)
		metrics.SyncedCommands.WithLabelValues("updated").Inc()
		return 0, 1, nil
	default:
		mng.recordCommand(existing, guildID)
		return 0, 0, nil
	}
}

// pruneOrphans deletes commands recorded by an earlier run whose declaration
// no longer covers their scope
func (mng *Manager) pruneOrphans() int {
	if mng.store == nil {
		return 0
	}
	records, err := mng.store.Records()
	if err != nil {
		mng.logger.Error("Failed to load command records", "error", err)
		return 0
	}
	pruned := 0
	for _, record := range records {
		if mng.declarationCovers(record) {
			continue
		}
		if record.GuildID == "" {
			err = mng.registry.DeleteGlobalCommand(record.CommandID)
		} else {
			err = mng.registry.DeleteGuildCommand(record.GuildID, record.CommandID)
		}
		// a 404 means the command is already gone, drop the record anyway
		if err != nil && !isNotFound(err) {
			mng.logger.Warn("Failed to prune command", "command", record.Name, "error", err)
			continue
		}
		if err := mng.store.DeleteRecord(record.CommandID); err != nil {
			mng.logger.Error("Failed to delete command record", "command", record.Name, "error", err)
			continue
		}
		metrics.SyncedCommands.WithLabelValues("pruned").Inc()
		pruned++
	}
	return pruned
}

func (mng *Manager) declarationCovers(record *CommandRecord) bool {
	cmd, ok := mng.commands[record.Name]
	if !ok {
		return false
	}
	if record.GuildID == "" {
		return cmd.Global()
	}
	return utils.Contains(cmd.GuildIDs, record.GuildID)
}

func (mng *Manager) recordCommand(cmd *discordgo.ApplicationCommand, guildID string) {
	if mng.store == nil {
		return
	}
	record := &CommandRecord{CommandID: cmd.ID, GuildID: guildID, Name: cmd.Name}
	if err := mng.store.SaveRecord(record); err != nil {
		mng.logger.Error("Failed to record command", "command", cmd.Name, "error", err)
	}
}

// declaredGuilds collects the distinct guild IDs across all declarations
func (mng *Manager) declaredGuilds() []string {
	seen := make(map[string]bool)
	guildIDs := make([]string, 0)
	for _, cmd := range mng.commands {
		for _, guildID := range cmd.GuildIDs {
			if !seen[guildID] {
				seen[guildID] = true
				guildIDs = append(guildIDs, guildID)
			}
		}
	}
	return guildIDs
}

func isForbidden(err error) bool {
	return isStatus(err, http.StatusForbidden)
}

func isNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

func isStatus(err error, status int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == status
}
