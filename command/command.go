package command

import (
	"github.com/bwmarrin/discordgo"
	"github.com/venrali/slashkit/checks"
)

// HandlerFunc responds to a command invocation. A nil response means the
// handler has already responded to the interaction itself.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate) (*discordgo.InteractionResponse, error)

// Command is a slash-command declaration. Declarations are registered with
// the manager, which keeps the remote application commands in sync with them
// and routes interactions to the handler.
type Command struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
	// DefaultPermissions is the permission bitfield members need for the
	// command to show up for them. Nil leaves it to everyone.
	DefaultPermissions *int64
	// DMPermission controls whether a global command is usable in DMs.
	// Nil keeps the API default (usable).
	DMPermission *bool
	// GuildIDs lists the guilds the command is registered in.
	// Empty means the command is registered globally.
	GuildIDs []string
	// Checks run before the handler; any failure refuses the invocation
	Checks []checks.Check
	// Cooldown, if set, rate limits invocations
	Cooldown *checks.Cooldown
	Handler  HandlerFunc
}

// Global reports whether the command is registered globally
func (c *Command) Global() bool {
	return len(c.GuildIDs) == 0
}

func (c *Command) ApplicationCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name,
		Description:              c.Description,
		DefaultMemberPermissions: c.DefaultPermissions,
		DMPermission:             c.DMPermission,
		Options:                  c.Options,
	}
}

// EqualsRegistered reports whether a command returned by the API still
// matches this declaration. Sync uses it to decide between patching and
// leaving the registered command alone.
func (c *Command) EqualsRegistered(registered *discordgo.ApplicationCommand) bool {
	if registered == nil {
		return false
	}
	if c.Name != registered.Name || c.Description != registered.Description {
		return false
	}
	if !permissionsEqual(c.DefaultPermissions, registered.DefaultMemberPermissions) {
		return false
	}
	if c.DMPermission != nil && *c.DMPermission != dmPermission(registered) {
		return false
	}
	return optionsEqual(c.Options, registered.Options)
}

func permissionsEqual(declared, registered *int64) bool {
	if declared == nil || registered == nil {
		return declared == nil && registered == nil
	}
	return *declared == *registered
}

// dmPermission resolves the registered DM flag, which the API omits when it
// still holds its default of true
func dmPermission(registered *discordgo.ApplicationCommand) bool {
	if registered.DMPermission == nil {
		return true
	}
	return *registered.DMPermission
}

// optionsEqual compares option trees by their marshaled form, which avoids
// chasing every nested field by hand
func optionsEqual(declared, registered []*discordgo.ApplicationCommandOption) bool {
	if len(declared) == 0 && len(registered) == 0 {
		return true
	}
	declaredJSON, err := discordgo.Marshal(declared)
	if err != nil {
		return false
	}
	registeredJSON, err := discordgo.Marshal(registered)
	if err != nil {
		return false
	}
	return string(declaredJSON) == string(registeredJSON)
}
