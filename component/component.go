// Package component holds the plumbing for message-component (button,
// select) interactions: handler signatures and custom-ID conventions.
package component

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc responds to a component interaction. A nil response means the
// handler has already responded itself.
type HandlerFunc func(i *discordgo.InteractionCreate, data *discordgo.MessageComponentInteractionData) (*discordgo.InteractionResponse, error)

// Separator splits the parts of a custom ID
const Separator = ":"

// CustomID joins a component identifier from its parts, e.g.
// CustomID("poll", pollID, "close")
func CustomID(parts ...string) string {
	return strings.Join(parts, Separator)
}

// ParseCustomID splits a custom ID into its leading part and the rest
func ParseCustomID(customID string) (prefix string, rest []string, err error) {
	split := strings.Split(customID, Separator)
	if len(split) == 0 || split[0] == "" {
		return "", nil, fmt.Errorf("malformed custom id '%s'", customID)
	}
	return split[0], split[1:], nil
}
