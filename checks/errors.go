package checks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/venrali/slashkit/utils"
)

// Failure is implemented by every error returned from a failed check.
// Infrastructure errors (state lookups, API errors) are returned as-is and
// do not implement it, so callers can tell "denied" apart from "broken".
type Failure interface {
	error
	checkFailure()
}

// IsFailure reports whether err is a check failure.
func IsFailure(err error) bool {
	var failure Failure
	return errors.As(err, &failure)
}

type GuildOnlyError struct{}

func (*GuildOnlyError) Error() string {
	return "This command cannot be used in private messages."
}
func (*GuildOnlyError) checkFailure() {}

type DMOnlyError struct{}

func (*DMOnlyError) Error() string {
	return "This command can only be used in private messages."
}
func (*DMOnlyError) checkFailure() {}

type NotOwnerError struct{}

func (*NotOwnerError) Error() string {
	return "Only the bot owner can run this command."
}
func (*NotOwnerError) checkFailure() {}

type NotGuildOwnerError struct{}

func (*NotGuildOwnerError) Error() string {
	return "Only the server owner can run this command."
}
func (*NotGuildOwnerError) checkFailure() {}

type MissingRoleError struct {
	Role string
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("Role '%s' is required to run this command.", e.Role)
}
func (*MissingRoleError) checkFailure() {}

type BotMissingRoleError struct {
	Role string
}

func (e *BotMissingRoleError) Error() string {
	return fmt.Sprintf("Bot requires the role '%s' to run this command", e.Role)
}
func (*BotMissingRoleError) checkFailure() {}

type MissingAnyRoleError struct {
	Roles []string
}

func (e *MissingAnyRoleError) Error() string {
	return fmt.Sprintf("You are missing at least one of the required roles: %s", utils.HumanJoin(e.Roles, "or"))
}
func (*MissingAnyRoleError) checkFailure() {}

type BotMissingAnyRoleError struct {
	Roles []string
}

func (e *BotMissingAnyRoleError) Error() string {
	return fmt.Sprintf("Bot is missing at least one of the required roles: %s", utils.HumanJoin(e.Roles, "or"))
}
func (*BotMissingAnyRoleError) checkFailure() {}

type MissingPermissionsError struct {
	Permissions []string
}

func (e *MissingPermissionsError) Error() string {
	return fmt.Sprintf("You are missing %s permission(s) to run this command.", joinPermissions(e.Permissions))
}
func (*MissingPermissionsError) checkFailure() {}

type BotMissingPermissionsError struct {
	Permissions []string
}

func (e *BotMissingPermissionsError) Error() string {
	return fmt.Sprintf("Bot requires %s permission(s) to run this command.", joinPermissions(e.Permissions))
}
func (*BotMissingPermissionsError) checkFailure() {}

type NSFWChannelRequiredError struct {
	Channel string
}

func (e *NSFWChannelRequiredError) Error() string {
	return fmt.Sprintf("Channel '%s' needs to be NSFW for this command to work.", e.Channel)
}
func (*NSFWChannelRequiredError) checkFailure() {}

// AnyFailedError is returned by Any when every wrapped check failed.
// The individual failures are kept for inspection.
type AnyFailedError struct {
	Errors []error
}

func (*AnyFailedError) Error() string {
	return "You do not have permission to run this command."
}
func (*AnyFailedError) checkFailure() {}

func joinPermissions(permissions []string) string {
	switch len(permissions) {
	case 0:
		return ""
	case 1:
		return permissions[0]
	case 2:
		return permissions[0] + " and " + permissions[1]
	}
	return strings.Join(permissions[:len(permissions)-1], ", ") + ", and " + permissions[len(permissions)-1]
}
