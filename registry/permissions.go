package registry

import "github.com/bwmarrin/discordgo"

// PermissionsBuilder assembles command permission overwrites without the
// caller spelling out the overwrite structs by hand:
//
//	perms := registry.Permissions().
//		AllowRole(modRoleID).
//		DenyUser(mutedUserID).
//		Build()
type PermissionsBuilder struct {
	overwrites []*discordgo.ApplicationCommandPermissions
}

func Permissions() *PermissionsBuilder {
	return &PermissionsBuilder{}
}

func (b *PermissionsBuilder) AllowRole(roleID string) *PermissionsBuilder {
	return b.add(roleID, discordgo.ApplicationCommandPermissionTypeRole, true)
}

func (b *PermissionsBuilder) DenyRole(roleID string) *PermissionsBuilder {
	return b.add(roleID, discordgo.ApplicationCommandPermissionTypeRole, false)
}

func (b *PermissionsBuilder) AllowUser(userID string) *PermissionsBuilder {
	return b.add(userID, discordgo.ApplicationCommandPermissionTypeUser, true)
}

func (b *PermissionsBuilder) DenyUser(userID string) *PermissionsBuilder {
	return b.add(userID, discordgo.ApplicationCommandPermissionTypeUser, false)
}

func (b *PermissionsBuilder) AllowChannel(channelID string) *PermissionsBuilder {
	return b.add(channelID, discordgo.ApplicationCommandPermissionTypeChannel, true)
}

func (b *PermissionsBuilder) DenyChannel(channelID string) *PermissionsBuilder {
	return b.add(channelID, discordgo.ApplicationCommandPermissionTypeChannel, false)
}

func (b *PermissionsBuilder) Build() []*discordgo.ApplicationCommandPermissions {
	return b.overwrites
}

func (b *PermissionsBuilder) add(id string, kind discordgo.ApplicationCommandPermissionType, allow bool) *PermissionsBuilder {
	b.overwrites = append(b.overwrites, &discordgo.ApplicationCommandPermissions{
		ID:         id,
		Type:       kind,
		Permission: allow,
	})
	return b
}
