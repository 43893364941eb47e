// Package checks provides declarative guards for slash-command handlers.
// A check inspects an interaction before the handler runs and returns a
// Failure when the invocation should be refused.
package checks

import (
	"github.com/bwmarrin/discordgo"
	"github.com/venrali/slashkit/utils"
)

// Check inspects an incoming interaction and returns nil if the command may
// run. Failed checks return an error implementing Failure; anything else is
// treated as an infrastructure error.
type Check func(s *discordgo.Session, i *discordgo.InteractionCreate) error

// GuildOnly refuses invocations outside of a guild
func GuildOnly() Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID == "" {
			return &GuildOnlyError{}
		}
		return nil
	}
}

// DMOnly refuses invocations inside of a guild
func DMOnly() Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID != "" {
			return &DMOnlyError{}
		}
		return nil
	}
}

// IsOwner restricts a command to the given user IDs
func IsOwner(ownerIDs ...string) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if utils.Contains(ownerIDs, interactionUser(i).ID) {
			return nil
		}
		return &NotOwnerError{}
	}
}

// IsGuildOwner restricts a command to the owner of the guild it is used in
func IsGuildOwner() Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID == "" {
			return &GuildOnlyError{}
		}
		guild, err := s.State.Guild(i.GuildID)
		if err != nil {
			return err
		}
		if guild.OwnerID == interactionUser(i).ID {
			return nil
		}
		return &NotGuildOwnerError{}
	}
}

// HasRole requires the invoking member to have the role, given either as a
// role ID or a role name.
func HasRole(role string) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.Member == nil {
			return &GuildOnlyError{}
		}
		if memberHasRole(s, i.GuildID, i.Member, role) {
			return nil
		}
		return &MissingRoleError{Role: role}
	}
}

// HasAnyRole requires the invoking member to have at least one of the roles
func HasAnyRole(roles ...string) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.Member == nil {
			return &GuildOnlyError{}
		}
		for _, role := range roles {
			if memberHasRole(s, i.GuildID, i.Member, role) {
				return nil
			}
		}
		return &MissingAnyRoleError{Roles: roles}
	}
}

// BotHasRole requires the bot member to have the role
func BotHasRole(role string) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID == "" {
			return &GuildOnlyError{}
		}
		bot, err := s.State.Member(i.GuildID, s.State.User.ID)
		if err != nil {
			return err
		}
		if memberHasRole(s, i.GuildID, bot, role) {
			return nil
		}
		return &BotMissingRoleError{Role: role}
	}
}

// BotHasAnyRole requires the bot member to have at least one of the roles
func BotHasAnyRole(roles ...string) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID == "" {
			return &GuildOnlyError{}
		}
		bot, err := s.State.Member(i.GuildID, s.State.User.ID)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if memberHasRole(s, i.GuildID, bot, role) {
				return nil
			}
		}
		return &BotMissingAnyRoleError{Roles: roles}
	}
}

// HasPermissions requires the invoking member to hold every permission bit.
// The member permissions on an interaction are already resolved for the
// channel it came from.
func HasPermissions(permissions int64) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.Member == nil {
			return &GuildOnlyError{}
		}
		if missing := missingPermissions(i.Member.Permissions, permissions); missing != 0 {
			return &MissingPermissionsError{Permissions: PermissionNames(missing)}
		}
		return nil
	}
}

// BotHasPermissions requires the bot to hold every permission bit in the
// channel the interaction came from.
func BotHasPermissions(permissions int64) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		if i.GuildID == "" {
			return &GuildOnlyError{}
		}
		held, err := s.State.UserChannelPermissions(s.State.User.ID, i.ChannelID)
		if err != nil {
			return err
		}
		if missing := missingPermissions(held, permissions); missing != 0 {
			return &BotMissingPermissionsError{Permissions: PermissionNames(missing)}
		}
		return nil
	}
}

// IsNSFW requires the interaction channel to be marked NSFW
func IsNSFW() Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		channel, err := s.State.Channel(i.ChannelID)
		if err != nil {
			return err
		}
		if channel.NSFW {
			return nil
		}
		return &NSFWChannelRequiredError{Channel: channel.Name}
	}
}

// Any passes if at least one of the wrapped checks passes. Only genuine
// check failures are collected into the AnyFailedError; an infrastructure
// error from a wrapped check aborts immediately.
func Any(cs ...Check) Check {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		errs := make([]error, 0, len(cs))
		for _, check := range cs {
			err := check(s, i)
			if err == nil {
				return nil
			}
			if !IsFailure(err) {
				return err
			}
			errs = append(errs, err)
		}
		return &AnyFailedError{Errors: errs}
	}
}

// interactionUser returns the invoking user for both guild and DM interactions
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// memberHasRole checks role membership. The role argument may be an ID or a
// name; names are resolved through session state, and an unresolvable
// argument falls back to being treated as an ID.
func memberHasRole(s *discordgo.Session, guildID string, member *discordgo.Member, role string) bool {
	target := role
	if guild, err := s.State.Guild(guildID); err == nil {
		for _, r := range guild.Roles {
			if r.ID == role || r.Name == role {
				target = r.ID
				break
			}
		}
	}
	return utils.Contains(member.Roles, target)
}

func missingPermissions(held, required int64) int64 {
	if held&discordgo.PermissionAdministrator != 0 {
		return 0
	}
	return required &^ held
}
