package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/persistence"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

type heldRepairer struct {
	sessions []ports.RepairSession
	mu       sync.Mutex
}

func (r *heldRepairer) Present(s ports.RepairSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *heldRepairer) all() []ports.RepairSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.RepairSession(nil), r.sessions...)
}

type recordingNotifier struct {
	key   string
	cause error
}

func (n *recordingNotifier) NotifyConfigReset(backupKey string, cause error) {
	n.key, n.cause = backupKey, cause
}

type appFixture struct {
	app      *Application
	backend  *persistence.MemoryBackend
	provider *catalog.MemoryProvider
	repairer *heldRepairer
	notifier *recordingNotifier
}

func newAppFixture(t *testing.T, seed func(b *persistence.MemoryBackend)) *appFixture {
	t.Helper()
	fx := &appFixture{
		backend:  persistence.NewMemoryBackend(),
		provider: catalog.NewMemoryProvider(),
		repairer: &heldRepairer{},
		notifier: &recordingNotifier{},
	}
	t.Cleanup(fx.provider.Close)
	fx.provider.SetEntries(
		&domain.CatalogEntry{ID: "hk", Name: "Hollow Knight", Installed: true},
		&domain.CatalogEntry{ID: "cel", Name: "Celeste"},
	)
	fx.provider.SetGrouping(domain.Grouping{ID: "g1", Entries: []string{"hk", "cel"}})
	if seed != nil {
		seed(fx.backend)
	}

	cfg := config.DefaultConfig()
	cfg.Reactor.DefaultWindow = 10 * time.Millisecond
	cfg.Reactor.Windows = nil

	var err error
	fx.app, err = New(cfg, logger.NewDiscard(), Options{
		Provider: fx.provider,
		Repairer: fx.repairer,
		Notifier: fx.notifier,
		Backend:  fx.backend,
	})
	require.NoError(t, err)
	require.NoError(t, fx.app.Start(context.Background()))
	return fx
}

func (fx *appFixture) stop(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.app.Stop(context.Background()))
}

func seedTabs(t *testing.T, dict domain.TabSettingsDictionary) func(b *persistence.MemoryBackend) {
	return func(b *persistence.MemoryBackend) {
		raw, err := persistence.EncodeTabs(dict, false)
		require.NoError(t, err)
		require.NoError(t, b.Set(context.Background(), persistence.KeyTabs, raw))
	}
}

func storedTabs(t *testing.T, b *persistence.MemoryBackend) domain.TabSettingsDictionary {
	t.Helper()
	dict, err := persistence.NewStore(b).GetTabs(context.Background())
	require.NoError(t, err)
	return dict
}

func TestApplication_FirstRunUsesDefaults(t *testing.T) {
	fx := newAppFixture(t, nil)

	store, err := fx.app.Store()
	require.NoError(t, err)
	assert.Len(t, store.Snapshot().Visible, len(domain.DefaultTabs()))
	assert.Empty(t, fx.app.Tabs().ResetBackupKey())

	fx.stop(t)
	assert.Equal(t, domain.DefaultTabs(), storedTabs(t, fx.backend))
}

func TestApplication_CorruptConfigIsBackedUpAndReset(t *testing.T) {
	fx := newAppFixture(t, func(b *persistence.MemoryBackend) {
		require.NoError(t, b.Set(context.Background(), persistence.KeyTabs,
			[]byte(`{"t1":{"id":"t1","title":"Broken","position":0,"filters":[{"type":"telepathy","params":{}}]}}`)))
	})
	defer fx.stop(t)

	backups := fx.backend.Keys(persistence.KeyTabsBackup)
	require.Len(t, backups, 1)
	assert.Equal(t, backups[0], fx.notifier.key)
	assert.Equal(t, backups[0], fx.app.Tabs().ResetBackupKey())

	var corrupt *domain.CorruptConfigError
	assert.True(t, errors.As(fx.notifier.cause, &corrupt))

	store, _ := fx.app.Store()
	assert.False(t, store.Has("t1"))
	assert.True(t, store.Has(domain.TabAllGames))
}

func TestApplication_StartupValidation(t *testing.T) {
	fx := newAppFixture(t, seedTabs(t, domain.TabSettingsDictionary{
		"ok": {ID: "ok", Title: "Installed", Position: 0, Filters: []domain.Filter{
			domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g1"}, false),
		}},
		"bad": {ID: "bad", Title: "Gone", Position: 1, Filters: []domain.Filter{
			domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "deleted"}, false),
		}},
	}))
	defer fx.stop(t)

	sessions := fx.repairer.all()
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"bad"}, sessions[0].Report().TabIDs())

	store, _ := fx.app.Store()
	ok, _ := store.Get("ok")
	assert.ElementsMatch(t, []string{"hk", "cel"}, ok.Catalog.Visible)

	coordinator, err := fx.app.Coordinator()
	require.NoError(t, err)
	sessions[0].Dismiss()
	assert.Equal(t, []string{"bad"}, coordinator.Erroring())
}

func TestApplication_AuxiliaryDictionaries(t *testing.T) {
	fx := newAppFixture(t, func(b *persistence.MemoryBackend) {
		p := persistence.NewStore(b)
		ctx := context.Background()
		require.NoError(t, p.SetTags(ctx, []domain.Tag{{ID: 7, Name: "Roguelike"}}))
		require.NoError(t, p.SetContacts(ctx, []domain.Contact{{ID: "alice", Name: "Alice"}}))
		require.NoError(t, p.SetOwnedEntries(ctx, map[string][]string{"alice": {"cel"}}))
	})
	defer fx.stop(t)

	assert.True(t, fx.provider.TagExists(7))
	assert.True(t, fx.provider.ContactExists("alice"))
	assert.True(t, fx.provider.OwnedBy("alice", "cel"))

	ctx := context.Background()
	require.NoError(t, fx.app.Tabs().UpdateTags(ctx, []domain.Tag{{ID: 8, Name: "Metroidvania"}}))
	assert.False(t, fx.provider.TagExists(7))

	tags, err := persistence.NewStore(fx.backend).GetTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Tag{{ID: 8, Name: "Metroidvania"}}, tags)
}

func TestApplication_Layouts(t *testing.T) {
	fx := newAppFixture(t, nil)
	defer fx.stop(t)
	ctx := context.Background()
	tabsService := fx.app.Tabs()
	store, _ := fx.app.Store()

	require.NoError(t, store.Reorder([]string{
		domain.TabInstalled, domain.TabAllGames, domain.TabDeckGames, domain.TabCollections, domain.TabNonSteam,
	}))
	require.NoError(t, tabsService.SaveLayout(ctx, domain.LayoutProfiles, "couch"))
	assert.Equal(t, []string{"couch"}, tabsService.Layouts(domain.LayoutProfiles))

	require.NoError(t, store.Hide(domain.TabNonSteam))
	require.NoError(t, store.Hide(domain.TabCollections))

	n, err := tabsService.ApplyLayout(domain.LayoutProfiles, "couch")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, domain.TabInstalled, store.Snapshot().Visible[0].Spec.ID)

	_, err = tabsService.ApplyLayout(domain.LayoutGroups, "missing")
	assert.ErrorIs(t, err, domain.ErrLayoutNotFound)

	stored, err := persistence.NewStore(fx.backend).GetLayouts(ctx, domain.LayoutProfiles)
	require.NoError(t, err)
	assert.Len(t, stored["couch"], 5)
}

func TestApplication_DeletedTabsAreForgottenByStats(t *testing.T) {
	fx := newAppFixture(t, nil)
	defer fx.stop(t)

	store, _ := fx.app.Store()
	id, err := store.Append(domain.TabSettings{Title: "Installed", Filters: []domain.Filter{
		domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false),
	}})
	require.NoError(t, err)

	collector, err := fx.app.Stats()
	require.NoError(t, err)
	assert.Contains(t, collector.GetTabStats(), id)

	require.NoError(t, store.Delete(id))
	assert.NotContains(t, collector.GetTabStats(), id)
}

func TestApplication_UpdateConfig(t *testing.T) {
	fx := newAppFixture(t, nil)
	defer fx.stop(t)

	next := config.DefaultConfig()
	next.Reactor.DefaultWindow = time.Second
	fx.app.UpdateConfig(next)
	assert.Same(t, next, fx.app.Config())
	assert.NotNil(t, fx.app.MetricsRegistry())
}
