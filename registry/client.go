// Package registry wraps the application-command endpoints of discordgo
// behind a narrow interface and keeps an in-memory cache of the registered
// commands and their permission overwrites.
package registry

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrUnknownCommand is returned by the named edit/delete helpers when no
// command with the given name exists, neither cached nor remotely.
var ErrUnknownCommand = errors.New("unknown command")

// API is the slice of *discordgo.Session the registry needs. Kept narrow so
// tests can fake the remote side.
type API interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommand(appID, guildID, cmdID string, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandPermissions(appID, guildID, cmdID string, options ...discordgo.RequestOption) (*discordgo.GuildApplicationCommandPermissions, error)
	GuildApplicationCommandsPermissions(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.GuildApplicationCommandPermissions, error)
	ApplicationCommandPermissionsEdit(appID, guildID, cmdID string, permissions *discordgo.ApplicationCommandPermissionsList, options ...discordgo.RequestOption) error
}

// Client tracks the application commands registered for a single
// application. Mutating calls only touch the cache once the API call has
// succeeded.
type Client struct {
	api   API
	appID string

	mu     sync.RWMutex
	global map[string]*discordgo.ApplicationCommand
	guilds map[string]map[string]*discordgo.ApplicationCommand
	perms  map[string]map[string]*discordgo.GuildApplicationCommandPermissions
}

func New(api API, appID string) *Client {
	return &Client{
		api:    api,
		appID:  appID,
		global: make(map[string]*discordgo.ApplicationCommand),
		guilds: make(map[string]map[string]*discordgo.ApplicationCommand),
		perms:  make(map[string]map[string]*discordgo.GuildApplicationCommandPermissions),
	}
}

// Cached getters

// GlobalCommands returns the cached global commands
func (c *Client) GlobalCommands() []*discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	commands := make([]*discordgo.ApplicationCommand, 0, len(c.global))
	for _, cmd := range c.global {
		commands = append(commands, cmd)
	}
	return commands
}

// GlobalCommand returns the cached global command with the given ID, or nil
func (c *Client) GlobalCommand(cmdID string) *discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.global[cmdID]
}

// GlobalCommandNamed returns the cached global command with the given name, or nil
func (c *Client) GlobalCommandNamed(name string) *discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cmd := range c.global {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// GuildCommands returns the cached commands of a guild
func (c *Client) GuildCommands(guildID string) []*discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	commands := make([]*discordgo.ApplicationCommand, 0, len(c.guilds[guildID]))
	for _, cmd := range c.guilds[guildID] {
		commands = append(commands, cmd)
	}
	return commands
}

// GuildCommand returns the cached guild command with the given ID, or nil
func (c *Client) GuildCommand(guildID, cmdID string) *discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guilds[guildID][cmdID]
}

// GuildCommandNamed returns the cached guild command with the given name, or nil
func (c *Client) GuildCommandNamed(guildID, name string) *discordgo.ApplicationCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cmd := range c.guilds[guildID] {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

// CachedCommandPermissions returns the cached permission overwrites for a
// guild command, or nil if none have been loaded
func (c *Client) CachedCommandPermissions(guildID, cmdID string) *discordgo.GuildApplicationCommandPermissions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.perms[guildID][cmdID]
}

// Straight API references

// FetchGlobalCommands requests the registered global commands from the API
func (c *Client) FetchGlobalCommands() ([]*discordgo.ApplicationCommand, error) {
	return c.api.ApplicationCommands(c.appID, "")
}

// FetchGuildCommands requests the registered commands of a guild from the API
func (c *Client) FetchGuildCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	return c.api.ApplicationCommands(c.appID, guildID)
}

// FetchGlobalCommand requests a single global command from the API
func (c *Client) FetchGlobalCommand(cmdID string) (*discordgo.ApplicationCommand, error) {
	return c.api.ApplicationCommand(c.appID, "", cmdID)
}

// FetchGuildCommand requests a single guild command from the API
func (c *Client) FetchGuildCommand(guildID, cmdID string) (*discordgo.ApplicationCommand, error) {
	return c.api.ApplicationCommand(c.appID, guildID, cmdID)
}

// FetchGlobalCommandNamed fetches all global commands and returns the one
// matching the name, or nil
func (c *Client) FetchGlobalCommandNamed(name string) (*discordgo.ApplicationCommand, error) {
	commands, err := c.FetchGlobalCommands()
	if err != nil {
		return nil, err
	}
	return named(commands, name), nil
}

// FetchGuildCommandNamed fetches all commands of a guild and returns the one
// matching the name, or nil
func (c *Client) FetchGuildCommandNamed(guildID, name string) (*discordgo.ApplicationCommand, error) {
	commands, err := c.FetchGuildCommands(guildID)
	if err != nil {
		return nil, err
	}
	return named(commands, name), nil
}

// Mutators

// CreateGlobalCommand registers a global command and caches the result
func (c *Client) CreateGlobalCommand(cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	created, err := c.api.ApplicationCommandCreate(c.appID, "", cmd)
	if err != nil {
		return nil, err
	}
	c.cacheGlobal(created)
	return created, nil
}

// CreateGuildCommand registers a command in a guild and caches the result
func (c *Client) CreateGuildCommand(guildID string, cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	created, err := c.api.ApplicationCommandCreate(c.appID, guildID, cmd)
	if err != nil {
		return nil, err
	}
	c.cacheGuild(guildID, created)
	return created, nil
}

// EditGlobalCommand replaces a global command's data and caches the result
func (c *Client) EditGlobalCommand(cmdID string, cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	updated, err := c.api.ApplicationCommandEdit(c.appID, "", cmdID, cmd)
	if err != nil {
		return nil, err
	}
	c.cacheGlobal(updated)
	return updated, nil
}

// EditGuildCommand replaces a guild command's data and caches the result
func (c *Client) EditGuildCommand(guildID, cmdID string, cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	updated, err := c.api.ApplicationCommandEdit(c.appID, guildID, cmdID, cmd)
	if err != nil {
		return nil, err
	}
	c.cacheGuild(guildID, updated)
	return updated, nil
}

// DeleteGlobalCommand deletes a global command and evicts it from the cache
func (c *Client) DeleteGlobalCommand(cmdID string) error {
	if err := c.api.ApplicationCommandDelete(c.appID, "", cmdID); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.global, cmdID)
	return nil
}

// DeleteGuildCommand deletes a guild command and evicts it from the cache
func (c *Client) DeleteGuildCommand(guildID, cmdID string) error {
	if err := c.api.ApplicationCommandDelete(c.appID, guildID, cmdID); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds[guildID], cmdID)
	if gperms, ok := c.perms[guildID]; ok {
		delete(gperms, cmdID)
	}
	return nil
}

// OverwriteGlobalCommands bulk replaces all global commands
func (c *Client) OverwriteGlobalCommands(commands []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	created, err := c.api.ApplicationCommandBulkOverwrite(c.appID, "", commands)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = commandMap(created)
	return created, nil
}

// OverwriteGuildCommands bulk replaces all commands of a guild
func (c *Client) OverwriteGuildCommands(guildID string, commands []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	created, err := c.api.ApplicationCommandBulkOverwrite(c.appID, guildID, commands)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[guildID] = commandMap(created)
	return created, nil
}

// DeleteAllGlobalCommands deletes every global command
func (c *Client) DeleteAllGlobalCommands() error {
	_, err := c.OverwriteGlobalCommands([]*discordgo.ApplicationCommand{})
	return err
}

// DeleteAllGuildCommands deletes every command of a guild
func (c *Client) DeleteAllGuildCommands(guildID string) error {
	_, err := c.OverwriteGuildCommands(guildID, []*discordgo.ApplicationCommand{})
	return err
}

// Named conveniences. These resolve through the cache first and fall back to
// fetching before giving up with ErrUnknownCommand.

func (c *Client) EditGlobalCommandNamed(name string, cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	existing, err := c.resolveGlobalNamed(name)
	if err != nil {
		return nil, err
	}
	return c.EditGlobalCommand(existing.ID, cmd)
}

func (c *Client) EditGuildCommandNamed(guildID, name string, cmd *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	existing, err := c.resolveGuildNamed(guildID, name)
	if err != nil {
		return nil, err
	}
	return c.EditGuildCommand(guildID, existing.ID, cmd)
}

func (c *Client) DeleteGlobalCommandNamed(name string) error {
	existing, err := c.resolveGlobalNamed(name)
	if err != nil {
		return err
	}
	return c.DeleteGlobalCommand(existing.ID)
}

func (c *Client) DeleteGuildCommandNamed(guildID, name string) error {
	existing, err := c.resolveGuildNamed(guildID, name)
	if err != nil {
		return err
	}
	return c.DeleteGuildCommand(guildID, existing.ID)
}

// Permissions

// CommandPermissions fetches the permission overwrites of a guild command
// and caches them
func (c *Client) CommandPermissions(guildID, cmdID string) (*discordgo.GuildApplicationCommandPermissions, error) {
	perms, err := c.api.ApplicationCommandPermissions(c.appID, guildID, cmdID)
	if err != nil {
		return nil, err
	}
	c.cachePermissions(guildID, perms)
	return perms, nil
}

// GuildCommandPermissions fetches the permission overwrites of every command
// in a guild, keyed by command ID, and caches them
func (c *Client) GuildCommandPermissions(guildID string) (map[string]*discordgo.GuildApplicationCommandPermissions, error) {
	batch, err := c.api.GuildApplicationCommandsPermissions(c.appID, guildID)
	if err != nil {
		return nil, err
	}
	byCommand := make(map[string]*discordgo.GuildApplicationCommandPermissions, len(batch))
	for _, perms := range batch {
		byCommand[perms.ID] = perms
		c.cachePermissions(guildID, perms)
	}
	return byCommand, nil
}

// EditCommandPermissions replaces the permission overwrites of a guild command
func (c *Client) EditCommandPermissions(guildID, cmdID string, permissions []*discordgo.ApplicationCommandPermissions) error {
	list := &discordgo.ApplicationCommandPermissionsList{Permissions: permissions}
	if err := c.api.ApplicationCommandPermissionsEdit(c.appID, guildID, cmdID, list); err != nil {
		return err
	}
	c.cachePermissions(guildID, &discordgo.GuildApplicationCommandPermissions{
		ID:            cmdID,
		ApplicationID: c.appID,
		GuildID:       guildID,
		Permissions:   permissions,
	})
	return nil
}

// BatchEditCommandPermissions replaces the permission overwrites of several
// guild commands, keyed by command ID. The batch endpoint needs a bearer
// token the library never holds, so the edits go out one by one.
func (c *Client) BatchEditCommandPermissions(guildID string, permissions map[string][]*discordgo.ApplicationCommandPermissions) error {
	for cmdID, perms := range permissions {
		if err := c.EditCommandPermissions(guildID, cmdID, perms); err != nil {
			return err
		}
	}
	return nil
}

// Cache management

// LoadGlobalCommands fetches the global commands and replaces the cache
func (c *Client) LoadGlobalCommands() error {
	commands, err := c.FetchGlobalCommands()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = commandMap(commands)
	return nil
}

// LoadGuildCommands fetches a guild's commands together with their
// permission overwrites and replaces the cache for that guild. A failing
// permission fetch leaves the commands cached without overwrites.
func (c *Client) LoadGuildCommands(guildID string) error {
	commands, err := c.FetchGuildCommands(guildID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.guilds[guildID] = commandMap(commands)
	c.mu.Unlock()

	batch, err := c.api.GuildApplicationCommandsPermissions(c.appID, guildID)
	if err != nil {
		return nil
	}
	for _, perms := range batch {
		c.cachePermissions(guildID, perms)
	}
	return nil
}

// EvictGuild drops everything cached for a guild. Called when the bot leaves
// a guild.
func (c *Client) EvictGuild(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.guilds, guildID)
	delete(c.perms, guildID)
}

// AppID returns the application ID the client operates on
func (c *Client) AppID() string {
	return c.appID
}

func (c *Client) resolveGlobalNamed(name string) (*discordgo.ApplicationCommand, error) {
	if cmd := c.GlobalCommandNamed(name); cmd != nil {
		return cmd, nil
	}
	cmd, err := c.FetchGlobalCommandNamed(name)
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, ErrUnknownCommand
	}
	return cmd, nil
}

func (c *Client) resolveGuildNamed(guildID, name string) (*discordgo.ApplicationCommand, error) {
	if cmd := c.GuildCommandNamed(guildID, name); cmd != nil {
		return cmd, nil
	}
	cmd, err := c.FetchGuildCommandNamed(guildID, name)
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, ErrUnknownCommand
	}
	return cmd, nil
}

func (c *Client) cacheGlobal(cmd *discordgo.ApplicationCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global[cmd.ID] = cmd
}

func (c *Client) cacheGuild(guildID string, cmd *discordgo.ApplicationCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.guilds[guildID] == nil {
		c.guilds[guildID] = make(map[string]*discordgo.ApplicationCommand)
	}
	c.guilds[guildID][cmd.ID] = cmd
}

func (c *Client) cachePermissions(guildID string, perms *discordgo.GuildApplicationCommandPermissions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.perms[guildID] == nil {
		c.perms[guildID] = make(map[string]*discordgo.GuildApplicationCommandPermissions)
	}
	c.perms[guildID][perms.ID] = perms
}

func named(commands []*discordgo.ApplicationCommand, name string) *discordgo.ApplicationCommand {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func commandMap(commands []*discordgo.ApplicationCommand) map[string]*discordgo.ApplicationCommand {
	byID := make(map[string]*discordgo.ApplicationCommand, len(commands))
	for _, cmd := range commands {
		byID[cmd.ID] = cmd
	}
	return byID
}
