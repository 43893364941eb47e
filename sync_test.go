package slashkit

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	log "github.com/inconshreveable/log15"

	"github.com/venrali/slashkit/command"
	"github.com/venrali/slashkit/registry"
)

// syncAPI fakes the application-command endpoints with in-memory maps, keyed
// by guild ID with "" standing in for the global scope. Guild IDs listed in
// forbidden answer every request with a 403.
type syncAPI struct {
	commands  map[string]map[string]*discordgo.ApplicationCommand
	forbidden map[string]bool
	nextID    int

	listCalls   map[string]int
	createCalls int
	editCalls   int
	deleteCalls int
}

func newSyncAPI() *syncAPI {
	return &syncAPI{
		commands:  make(map[string]map[string]*discordgo.ApplicationCommand),
		forbidden: make(map[string]bool),
		listCalls: make(map[string]int),
	}
}

func restStatus(status int) *discordgo.RESTError {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func (f *syncAPI) seed(guildID string, cmd *discordgo.ApplicationCommand) *discordgo.ApplicationCommand {
	seeded, _ := f.ApplicationCommandCreate("app", guildID, cmd)
	f.createCalls--
	return seeded
}

func (f *syncAPI) ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.listCalls[guildID]++
	if f.forbidden[guildID] {
		return nil, restStatus(http.StatusForbidden)
	}
	commands := make([]*discordgo.ApplicationCommand, 0, len(f.commands[guildID]))
	for _, cmd := range f.commands[guildID] {
		commands = append(commands, cmd)
	}
	return commands, nil
}

func (f *syncAPI) ApplicationCommand(appID, guildID, cmdID string, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	cmd, ok := f.commands[guildID][cmdID]
	if !ok {
		return nil, restStatus(http.StatusNotFound)
	}
	return cmd, nil
}

func (f *syncAPI) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	if f.forbidden[guildID] {
		return nil, restStatus(http.StatusForbidden)
	}
	f.createCalls++
	f.nextID++
	created := *cmd
	created.ID = fmt.Sprintf("cmd-%d", f.nextID)
	created.ApplicationID = appID
	if f.commands[guildID] == nil {
		f.commands[guildID] = make(map[string]*discordgo.ApplicationCommand)
	}
	f.commands[guildID][created.ID] = &created
	return &created, nil
}

func (f *syncAPI) ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	if f.forbidden[guildID] {
		return nil, restStatus(http.StatusForbidden)
	}
	if _, ok := f.commands[guildID][cmdID]; !ok {
		return nil, restStatus(http.StatusNotFound)
	}
	f.editCalls++
	updated := *cmd
	updated.ID = cmdID
	updated.ApplicationID = appID
	f.commands[guildID][cmdID] = &updated
	return &updated, nil
}

func (f *syncAPI) ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error {
	if _, ok := f.commands[guildID][cmdID]; !ok {
		return restStatus(http.StatusNotFound)
	}
	f.deleteCalls++
	delete(f.commands[guildID], cmdID)
	return nil
}

func (f *syncAPI) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.commands[guildID] = make(map[string]*discordgo.ApplicationCommand)
	created := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, cmd := range commands {
		c, err := f.ApplicationCommandCreate(appID, guildID, cmd)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (f *syncAPI) ApplicationCommandPermissions(appID, guildID, cmdID string, options ...discordgo.RequestOption) (*discordgo.GuildApplicationCommandPermissions, error) {
	return nil, restStatus(http.StatusNotFound)
}

func (f *syncAPI) GuildApplicationCommandsPermissions(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.GuildApplicationCommandPermissions, error) {
	if f.forbidden[guildID] {
		return nil, restStatus(http.StatusForbidden)
	}
	return nil, nil
}

func (f *syncAPI) ApplicationCommandPermissionsEdit(appID, guildID, cmdID string, permissions *discordgo.ApplicationCommandPermissionsList, options ...discordgo.RequestOption) error {
	return nil
}

func discardLogger() log.Logger {
	logger := log.New()
	logger.SetHandler(log.DiscardHandler())
	return logger
}

func newSyncManager(t *testing.T, api *syncAPI, withStore bool) *Manager {
	t.Helper()
	var store *Store
	if withStore {
		var err error
		store, err = OpenStore(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
	}
	return &Manager{
		logger:     discardLogger(),
		config:     &Config{},
		store:      store,
		commands:   make(map[string]*command.Command),
		components: nil,
		registry:   registry.New(api, "app"),
	}
}

func declaration(name string, guildIDs ...string) *command.Command {
	return &command.Command{
		Name:        name,
		Description: "test command",
		GuildIDs:    guildIDs,
		Handler: func(s *discordgo.Session, i *discordgo.InteractionCreate) (*discordgo.InteractionResponse, error) {
			return nil, nil
		},
	}
}

func TestSyncCreatesMissingCommands(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, false)
	mng.RegisterCommands(declaration("ping"), declaration("track", "guild"))

	var created, updated, pruned int
	mng.OnSync(func(c, u, p int) { created, updated, pruned = c, u, p })

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if created != 2 || updated != 0 || pruned != 0 {
		t.Errorf("expected 2 created, got created=%d updated=%d pruned=%d", created, updated, pruned)
	}
	if mng.registry.GlobalCommandNamed("ping") == nil {
		t.Error("global command should be registered")
	}
	if mng.registry.GuildCommandNamed("guild", "track") == nil {
		t.Error("guild command should be registered")
	}
}

func TestSyncLeavesIdenticalCommandsAlone(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, false)
	cmd := declaration("ping")
	mng.RegisterCommands(cmd)
	api.seed("", cmd.ApplicationCommand())

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if api.createCalls != 0 || api.editCalls != 0 {
		t.Errorf("identical command should be a no-op, got %d creates and %d edits", api.createCalls, api.editCalls)
	}
}

func TestSyncPatchesDriftedCommands(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, false)
	cmd := declaration("ping")
	mng.RegisterCommands(cmd)

	stale := cmd.ApplicationCommand()
	stale.Description = "outdated description"
	seeded := api.seed("", stale)

	var updated int
	mng.OnSync(func(c, u, p int) { updated = u })

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if updated != 1 || api.editCalls != 1 {
		t.Errorf("expected a single edit, got updated=%d edits=%d", updated, api.editCalls)
	}
	if got := api.commands[""][seeded.ID]; got.Description != cmd.Description {
		t.Errorf("remote command should carry the declared description, got %q", got.Description)
	}
}

func TestSyncSkipsForbiddenGuild(t *testing.T) {
	api := newSyncAPI()
	api.forbidden["locked"] = true
	mng := newSyncManager(t, api, false)
	mng.RegisterCommands(
		declaration("one", "locked"),
		declaration("two", "locked"),
		declaration("three", "open"),
	)

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	// one list during preload, one for the first command, none for the second
	if api.listCalls["locked"] > 2 {
		t.Errorf("forbidden guild should be skipped after the first rejection, got %d list calls", api.listCalls["locked"])
	}
	if mng.registry.GuildCommandNamed("open", "three") == nil {
		t.Error("accessible guilds should still be synced")
	}
}

func TestSyncRecordsRegisteredCommands(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, true)
	mng.RegisterCommands(declaration("ping"), declaration("track", "guild"))

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	records, err := mng.store.Records()
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestSyncPrunesOrphanedCommands(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, true)
	mng.RegisterCommands(declaration("ping"))

	orphan := api.seed("", &discordgo.ApplicationCommand{Name: "legacy", Description: "d"})
	if err := mng.store.SaveRecord(&CommandRecord{CommandID: orphan.ID, GuildID: "", Name: "legacy"}); err != nil {
		t.Fatalf("failed to save record: %v", err)
	}

	var pruned int
	mng.OnSync(func(c, u, p int) { pruned = p })

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned command, got %d", pruned)
	}
	if _, ok := api.commands[""][orphan.ID]; ok {
		t.Error("orphaned command should be deleted remotely")
	}
	records, _ := mng.store.Records()
	for _, record := range records {
		if record.CommandID == orphan.ID {
			t.Error("pruned command should lose its record")
		}
	}
}

func TestSyncPruneDropsRecordOfVanishedCommand(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, true)

	// recorded but deleted out of band, the delete will 404
	if err := mng.store.SaveRecord(&CommandRecord{CommandID: "gone", GuildID: "", Name: "legacy"}); err != nil {
		t.Fatalf("failed to save record: %v", err)
	}

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	records, err := mng.store.Records()
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected the stale record to be dropped, got %d records", len(records))
	}
}

func TestSyncKeepsRecordsOfDeclaredCommands(t *testing.T) {
	api := newSyncAPI()
	mng := newSyncManager(t, api, true)
	mng.RegisterCommands(declaration("ping"))

	if err := mng.syncCommands(); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	if err := mng.syncCommands(); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if api.deleteCalls != 0 {
		t.Errorf("declared commands must not be pruned, got %d deletes", api.deleteCalls)
	}
}
