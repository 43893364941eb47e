package utils

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/inconshreveable/log15"
	"golang.org/x/exp/slices"
)

var (
	// The keys to strip from the log output when logging to Discord
	excludedLoggingKeys = []string{"fn"}
)

func embedOptionsByLevel(lvl log.Lvl) (string, int) {
	switch lvl {
	case log.LvlInfo:
		return "Info", ColorInfo
	case log.LvlWarn:
		return "Warn", ColorWarning
	case log.LvlError:
		return "Error", ColorError
	case log.LvlCrit:
		return "Critical", ColorError
	default:
		return "Unknown", ColorNeutral
	}
}

// NewDiscordLogHandler returns a log15 handler that mirrors records into a
// Discord channel as embeds. Context pairs become embed fields.
func NewDiscordLogHandler(s *discordgo.Session, channelId string) log.Handler {
	return log.FuncHandler(func(r *log.Record) error {
		title, color := embedOptionsByLevel(r.Lvl)

		fields := make([]*discordgo.MessageEmbedField, 0)
		if (len(r.Ctx) % 2) == 0 {
			for i := 0; i < len(r.Ctx); i += 2 {
				if key, ok := r.Ctx[i].(string); ok && slices.Contains(excludedLoggingKeys, key) {
					continue
				}
				fields = append(fields, &discordgo.MessageEmbedField{
					Name:  fmt.Sprintf("%v", r.Ctx[i]),
					Value: fmt.Sprintf("%v", r.Ctx[i+1]),
				})
			}
		}

		_, _ = s.ChannelMessageSendEmbed(channelId, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Logger | %s", title),
			Description: r.Msg,
			Color:       color,
			Fields:      fields,
		})
		return nil
	})
}
