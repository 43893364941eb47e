package checks

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var permissionNames = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionAdministrator, "Administrator"},
	{discordgo.PermissionManageServer, "Manage Server"},
	{discordgo.PermissionManageRoles, "Manage Roles"},
	{discordgo.PermissionManageChannels, "Manage Channels"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
	{discordgo.PermissionManageWebhooks, "Manage Webhooks"},
	{discordgo.PermissionManageNicknames, "Manage Nicknames"},
	{discordgo.PermissionKickMembers, "Kick Members"},
	{discordgo.PermissionBanMembers, "Ban Members"},
	{discordgo.PermissionModerateMembers, "Timeout Members"},
	{discordgo.PermissionCreateInstantInvite, "Create Invite"},
	{discordgo.PermissionViewChannel, "View Channel"},
	{discordgo.PermissionSendMessages, "Send Messages"},
	{discordgo.PermissionSendTTSMessages, "Send TTS Messages"},
	{discordgo.PermissionEmbedLinks, "Embed Links"},
	{discordgo.PermissionAttachFiles, "Attach Files"},
	{discordgo.PermissionReadMessageHistory, "Read Message History"},
	{discordgo.PermissionMentionEveryone, "Mention Everyone"},
	{discordgo.PermissionUseExternalEmojis, "Use External Emojis"},
	{discordgo.PermissionAddReactions, "Add Reactions"},
	{discordgo.PermissionVoiceConnect, "Connect"},
	{discordgo.PermissionVoiceSpeak, "Speak"},
	{discordgo.PermissionVoiceMuteMembers, "Mute Members"},
	{discordgo.PermissionVoiceDeafenMembers, "Deafen Members"},
	{discordgo.PermissionVoiceMoveMembers, "Move Members"},
}

// PermissionNames renders a permission bitfield as display names, used in
// check failure messages. Bits without a known name are rendered in hex.
func PermissionNames(bits int64) []string {
	names := make([]string, 0)
	for _, entry := range permissionNames {
		if bits&entry.bit != 0 {
			names = append(names, entry.name)
			bits &^= entry.bit
		}
	}
	if bits != 0 {
		names = append(names, fmt.Sprintf("0x%x", bits))
	}
	return names
}
