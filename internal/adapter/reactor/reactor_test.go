package reactor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/filter"
	"github.com/thushan/tabkeeper/internal/adapter/tabs"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type validationRequest struct {
	ids     []string
	rebuild bool
}

type recordingValidator struct {
	requests []validationRequest
	mu       sync.Mutex
}

func (v *recordingValidator) RequestValidate(ids []string, rebuildOnValid bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requests = append(v.requests, validationRequest{ids: append([]string(nil), ids...), rebuild: rebuildOnValid})
}

func (v *recordingValidator) all() []validationRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]validationRequest(nil), v.requests...)
}

type reactorFixture struct {
	reactor   *Reactor
	store     *tabs.Store
	provider  *catalog.MemoryProvider
	stats     *ports.MockStatsCollector
	validator *recordingValidator
}

func testConfig() Config {
	return Config{Default: 20 * time.Millisecond}
}

func newFixture(t *testing.T) *reactorFixture {
	t.Helper()
	provider := catalog.NewMemoryProvider()
	t.Cleanup(provider.Close)
	provider.SetEntries(
		&domain.CatalogEntry{ID: "hk", Name: "Hollow Knight", Installed: true},
		&domain.CatalogEntry{ID: "cel", Name: "Celeste"},
	)
	provider.SetGrouping(domain.Grouping{ID: "g1", Entries: []string{"hk"}})
	provider.SetGrouping(domain.Grouping{ID: "g2", Entries: []string{"cel"}})

	seq := 0
	stats := ports.NewMockStatsCollector()
	store := tabs.NewStore(filter.NewEngine(provider), provider, nil, stats, logger.NewDiscard(),
		tabs.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("tab-%d", seq)
		}))

	fx := &reactorFixture{
		store:     store,
		provider:  provider,
		stats:     stats,
		validator: &recordingValidator{},
	}
	fx.reactor = New(provider, store, fx.validator, logger.NewDiscard(), testConfig())
	return fx
}

func (fx *reactorFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.reactor.Start(context.Background()))
	t.Cleanup(fx.reactor.Stop)
}

func (fx *reactorFixture) createCollectionTab(t *testing.T, grouping string) string {
	t.Helper()
	id, err := fx.store.Append(domain.TabSettings{
		Title:   "in " + grouping,
		Filters: []domain.Filter{domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: grouping}, false)},
	})
	require.NoError(t, err)
	return id
}

func visibleOf(t *testing.T, s *tabs.Store, id string) []string {
	t.Helper()
	c, ok := s.Get(id)
	require.True(t, ok)
	require.NotNil(t, c.Catalog)
	return c.Catalog.Visible
}

func TestReactor_StartTwice(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)
	assert.ErrorIs(t, fx.reactor.Start(context.Background()), ErrAlreadyStarted)
}

func TestReactor_InstallChangeRebuildsVisibleTabs(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	id, err := fx.store.Append(domain.TabSettings{
		Title:   "Installed",
		Filters: []domain.Filter{domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hk"}, visibleOf(t, fx.store, id))

	fx.provider.SetInstalled("cel", true)

	require.Eventually(t, func() bool {
		return len(visibleOf(t, fx.store, id)) == 2
	}, waitFor, tick)
	assert.Equal(t, []string{"hk", "cel"}, visibleOf(t, fx.store, id))
}

func TestReactor_DebounceCoalescesBursts(t *testing.T) {
	fx := newFixture(t)
	fx.reactor.UpdateConfig(Config{Default: 100 * time.Millisecond})
	fx.start(t)
	fx.createCollectionTab(t, "g1")
	fx.stats.Reset()

	for i := 0; i < 20; i++ {
		fx.provider.SetInstalled("cel", i%2 == 0)
	}

	require.Eventually(t, func() bool { return fx.reactor.Firings() >= 1 }, waitFor, tick)
	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, int64(1), fx.reactor.Firings())
	assert.Equal(t, int64(1), fx.stats.GetRebuildStats().ByReason[ports.RebuildResource])
}

func TestReactor_HiddenTabsAreMarkedStale(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	id, err := fx.store.Append(domain.TabSettings{
		Title:   "Installed",
		Filters: []domain.Filter{domain.MustFilter(domain.FilterInstalled, domain.InstalledParams{Installed: true}, false)},
	})
	require.NoError(t, err)
	require.NoError(t, fx.store.Hide(id))
	fx.stats.Reset()

	fx.provider.SetInstalled("cel", true)
	require.Eventually(t, func() bool {
		c, _ := fx.store.Get(id)
		return c.Stale
	}, waitFor, tick)
	assert.Empty(t, fx.stats.Rebuilt())

	require.NoError(t, fx.store.Show(id))
	assert.Equal(t, []string{"hk", "cel"}, visibleOf(t, fx.store, id))
}

func TestReactor_GroupingSubscriptionsAreTargeted(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	t1 := fx.createCollectionTab(t, "g1")
	t2 := fx.createCollectionTab(t, "g2")
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"g1", "g2"}, fx.reactor.GroupingSubscriptions())
	}, waitFor, tick)
	fx.stats.Reset()

	fx.provider.SetGrouping(domain.Grouping{ID: "g1", Entries: []string{"hk", "cel"}})

	require.Eventually(t, func() bool {
		return len(visibleOf(t, fx.store, t1)) == 2
	}, waitFor, tick)
	assert.Equal(t, []string{t1}, fx.stats.Rebuilt())
	assert.Equal(t, []string{"cel"}, visibleOf(t, fx.store, t2))

	// unrelated groupings have no dedicated subscription
	fx.provider.SetGrouping(domain.Grouping{ID: "g3", Entries: []string{"hk"}})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{t1}, fx.stats.Rebuilt())
}

func TestReactor_GroupingSubscriptionsAreReferenceCounted(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	a := fx.createCollectionTab(t, "g1")
	b := fx.createCollectionTab(t, "g1")
	assert.Equal(t, []string{"g1"}, fx.reactor.GroupingSubscriptions())

	require.NoError(t, fx.store.Delete(a))
	assert.Equal(t, []string{"g1"}, fx.reactor.GroupingSubscriptions())

	require.NoError(t, fx.store.Update(b, domain.TabSettings{
		Title:   "now g2",
		Filters: []domain.Filter{domain.NewMerge(domain.ModeOr, false, domain.MustFilter(domain.FilterCollection, domain.CollectionParams{Collection: "g2"}, false))},
	}))
	assert.Equal(t, []string{"g2"}, fx.reactor.GroupingSubscriptions())

	require.NoError(t, fx.store.Delete(b))
	assert.Empty(t, fx.reactor.GroupingSubscriptions())
}

func TestReactor_DeletedGroupingGoesToValidation(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	id := fx.createCollectionTab(t, "g1")
	fx.createCollectionTab(t, "g2")

	fx.provider.DeleteGrouping("g1")

	require.Eventually(t, func() bool { return len(fx.validator.all()) == 1 }, waitFor, tick)
	req := fx.validator.all()[0]
	assert.Equal(t, []string{id}, req.ids)
	assert.True(t, req.rebuild)
	assert.Equal(t, []string{"hk"}, visibleOf(t, fx.store, id), "keeps the last good catalog")
}

func TestReactor_DeletedGroupingValidatesCurrentReferences(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)

	first := fx.createCollectionTab(t, "g1")
	second := fx.createCollectionTab(t, "g1")
	require.NoError(t, fx.store.Delete(first))
	third := fx.createCollectionTab(t, "g1")
	assert.Equal(t, []string{"g1"}, fx.reactor.GroupingSubscriptions())

	fx.provider.DeleteGrouping("g1")

	require.Eventually(t, func() bool { return len(fx.validator.all()) == 1 }, waitFor, tick)
	assert.ElementsMatch(t, []string{second, third}, fx.validator.all()[0].ids)
}

func TestReactor_FavoritesTabFollowsGrouping(t *testing.T) {
	fx := newFixture(t)
	fx.start(t)
	assert.False(t, fx.store.Has(domain.TabFavorites))

	fx.createCollectionTab(t, "g1")
	fx.provider.SetGrouping(domain.Grouping{ID: domain.GroupingFavorites, Entries: []string{"hk"}})

	require.Eventually(t, func() bool { return fx.store.Has(domain.TabFavorites) }, waitFor, tick)
	snap := fx.store.Snapshot()
	require.Len(t, snap.Visible, 2)
	last := snap.Visible[1]
	assert.Equal(t, domain.TabFavorites, last.Spec.ID)
	assert.Equal(t, 1, last.Spec.Position)
	assert.False(t, last.Spec.IsCustom())

	fx.provider.SetGrouping(domain.Grouping{ID: domain.GroupingFavorites})
	require.Eventually(t, func() bool { return !fx.store.Has(domain.TabFavorites) }, waitFor, tick)
	assert.Len(t, fx.store.Snapshot().Visible, 1)
}

func TestReactor_StartReconcilesDefaultTabs(t *testing.T) {
	fx := newFixture(t)
	fx.provider.SetGrouping(domain.Grouping{ID: domain.GroupingSoundtracks, Entries: []string{"cel"}})
	fx.store.AddDefaultTab(domain.TabFavorites, "Favorites")

	fx.start(t)

	assert.True(t, fx.store.Has(domain.TabSoundtracks))
	assert.False(t, fx.store.Has(domain.TabFavorites))
}

func TestReactor_StopEndsSubscriptions(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.reactor.Start(context.Background()))
	fx.createCollectionTab(t, "g1")
	fx.reactor.Stop()
	fx.stats.Reset()

	fx.provider.SetInstalled("cel", true)
	fx.provider.SetGrouping(domain.Grouping{ID: "g1", Entries: []string{"cel"}})
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, fx.reactor.Firings())
	assert.Empty(t, fx.stats.Rebuilt())
}

func TestConfig_Window(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultShortWindow, cfg.Window(domain.ResourceHidden))
	assert.Equal(t, DefaultLongWindow, cfg.Window(domain.ResourceCatalog))
	assert.Equal(t, 500*time.Millisecond, cfg.Window(domain.ResourceGrouping))

	empty := Config{}
	assert.Equal(t, DefaultLongWindow, empty.Window(domain.ResourceTags))

	cfg.Windows[domain.ResourceTags] = 0
	assert.Equal(t, DefaultLongWindow, cfg.Window(domain.ResourceTags))
}
