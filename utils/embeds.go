package utils

import (
	"github.com/bwmarrin/discordgo"
)

const (
	ColorPrimary = 0xB4DDB4
	ColorSuccess = 0x00FF00
	ColorError   = 0xFF0000
	ColorWarning = 0xFFFF00
	ColorInfo    = 0x0000FF
	ColorNeutral = 0x808080
)

func ErrorAsEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       ColorError,
	}
}

func SuccessAsEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Success",
		Description: description,
		Color:       ColorSuccess,
	}
}

func InfoAsEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Info",
		Description: description,
		Color:       ColorInfo,
	}
}
