package command

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

var manageServer = int64(discordgo.PermissionManageServer)

func testCommand() *Command {
	return &Command{
		Name:               "track",
		Description:        "Track something",
		DefaultPermissions: &manageServer,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "What to track",
				Required:    true,
			},
		},
	}
}

func TestGlobal(t *testing.T) {
	cmd := testCommand()
	if !cmd.Global() {
		t.Error("command without guild IDs should be global")
	}
	cmd.GuildIDs = []string{"guild"}
	if cmd.Global() {
		t.Error("command with guild IDs should not be global")
	}
}

func TestApplicationCommand(t *testing.T) {
	cmd := testCommand()
	app := cmd.ApplicationCommand()

	if app.Name != cmd.Name || app.Description != cmd.Description {
		t.Errorf("conversion lost name or description: %+v", app)
	}
	if app.DefaultMemberPermissions == nil || *app.DefaultMemberPermissions != manageServer {
		t.Error("conversion lost default permissions")
	}
	if len(app.Options) != 1 || app.Options[0].Name != "name" {
		t.Error("conversion lost options")
	}
}

func TestEqualsRegistered(t *testing.T) {
	registered := func() *discordgo.ApplicationCommand {
		app := testCommand().ApplicationCommand()
		app.ID = "123"
		app.ApplicationID = "app"
		return app
	}

	tests := []struct {
		name   string
		mutate func(cmd *Command, reg *discordgo.ApplicationCommand)
		want   bool
	}{
		{"identical", func(cmd *Command, reg *discordgo.ApplicationCommand) {}, true},
		{"nil registered", func(cmd *Command, reg *discordgo.ApplicationCommand) {}, false},
		{
			"changed description",
			func(cmd *Command, reg *discordgo.ApplicationCommand) { cmd.Description = "Track something else" },
			false,
		},
		{
			"changed option",
			func(cmd *Command, reg *discordgo.ApplicationCommand) { cmd.Options[0].Required = false },
			false,
		},
		{
			"added option",
			func(cmd *Command, reg *discordgo.ApplicationCommand) {
				cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "silent",
					Description: "Do not announce",
				})
			},
			false,
		},
		{
			"dropped default permissions",
			func(cmd *Command, reg *discordgo.ApplicationCommand) { cmd.DefaultPermissions = nil },
			false,
		},
		{
			"declared dm permission matches api default",
			func(cmd *Command, reg *discordgo.ApplicationCommand) {
				allowed := true
				cmd.DMPermission = &allowed
				// the API omits the flag while it holds its default
				reg.DMPermission = nil
			},
			true,
		},
		{
			"declared dm permission differs",
			func(cmd *Command, reg *discordgo.ApplicationCommand) {
				denied := false
				cmd.DMPermission = &denied
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := testCommand()
			reg := registered()
			if tt.name == "nil registered" {
				reg = nil
			}
			tt.mutate(cmd, reg)
			if got := cmd.EqualsRegistered(reg); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEqualsRegisteredIgnoresDeclaredNilDMPermission(t *testing.T) {
	cmd := testCommand()
	reg := cmd.ApplicationCommand()
	denied := false
	reg.DMPermission = &denied

	if !cmd.EqualsRegistered(reg) {
		t.Error("a nil declared DM permission should not cause drift")
	}
}

func TestResponseHelpers(t *testing.T) {
	if res := Text("hi"); res.Type != discordgo.InteractionResponseChannelMessageWithSource || res.Data.Content != "hi" {
		t.Errorf("unexpected text response: %+v", res)
	}
	if res := Ephemeral("hi"); res.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("ephemeral response should carry the ephemeral flag")
	}
	embed := &discordgo.MessageEmbed{Title: "t"}
	if res := Embeds(embed); len(res.Data.Embeds) != 1 {
		t.Error("embeds response should carry the embed")
	}
	if res := EphemeralEmbeds(embed); res.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("ephemeral embeds response should carry the ephemeral flag")
	}
	if res := Deferred(); res.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("unexpected deferred response: %+v", res)
	}
}
