package reactor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/tabkeeper/internal/adapter/tabs"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

var ErrAlreadyStarted = errors.New("reactor already started")

// TabStore is the part of the tab store the reactor drives
type TabStore interface {
	RebuildWhere(pred func(spec domain.TabSpec) bool, reason string) int
	ReferencedGroupings() map[string][]string
	AddDefaultTab(id, title string) bool
	Has(id string) bool
	Delete(id string) error
	Subscribe(l tabs.Listener) func()
}

// ValidationRequester receives tabs whose references may have gone stale
type ValidationRequester interface {
	RequestValidate(ids []string, rebuildOnValid bool)
}

// watchedResources get one subscription each for the reactor's lifetime
var watchedResources = []domain.ResourceKind{
	domain.ResourceCatalog,
	domain.ResourceSocial,
	domain.ResourceTags,
	domain.ResourceInstall,
	domain.ResourceRemovableMedia,
	domain.ResourceHidden,
	domain.ResourceFavorites,
	domain.ResourceSoundtracks,
}

// defaultTabs are the built-in tabs that exist only while their grouping
// has members
var defaultTabs = map[domain.ResourceKind]struct {
	id, title, grouping string
}{
	domain.ResourceFavorites:   {domain.TabFavorites, "Favorites", domain.GroupingFavorites},
	domain.ResourceSoundtracks: {domain.TabSoundtracks, "Soundtracks", domain.GroupingSoundtracks},
}

// Reactor keeps custom tab catalogs in step with the resources they read.
// Every resource change is debounced per resource before it triggers a
// rebuild.
type Reactor struct {
	provider  ports.CatalogProvider
	store     TabStore
	validator ValidationRequester
	log       logger.StyledLogger
	config    atomic.Pointer[Config]

	// groupings holds the dedicated grouping subscriptions by grouping id
	groupings *xsync.Map[string, *groupingSubscription]

	ctx        context.Context
	cancel     context.CancelFunc
	unsubStore func()
	wg         sync.WaitGroup
	syncMu     sync.Mutex
	started    atomic.Bool

	firings *xsync.Counter
}

type groupingSubscription struct {
	cancel context.CancelFunc
}

func New(provider ports.CatalogProvider, store TabStore, validator ValidationRequester, log logger.StyledLogger, cfg Config) *Reactor {
	r := &Reactor{
		provider:  provider,
		store:     store,
		validator: validator,
		log:       log,
		groupings: xsync.NewMap[string, *groupingSubscription](),
		firings:   xsync.NewCounter(),
	}
	r.config.Store(&cfg)
	return r
}

// Start installs the resource subscriptions and reconciles the built-in
// favourites and soundtracks tabs once
func (r *Reactor) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, kind := range watchedResources {
		key := domain.ResourceKey{Kind: kind}
		r.watch(r.ctx, key, func() { r.react(key) })
	}

	r.unsubStore = r.store.Subscribe(func(change tabs.Change) {
		if change.Kind != tabs.ChangeRebuilt {
			r.syncGroupings()
		}
	})
	r.syncGroupings()

	for kind := range defaultTabs {
		r.reconcileDefaultTab(kind)
	}

	r.log.InfoWithCount("Reactor watching resources", len(watchedResources))
	return nil
}

// Stop removes every subscription and waits for pending callbacks to end
func (r *Reactor) Stop() {
	if !r.started.Load() {
		return
	}
	if r.unsubStore != nil {
		r.unsubStore()
	}
	r.syncMu.Lock()
	r.cancel()
	r.syncMu.Unlock()
	r.wg.Wait()
}

// UpdateConfig swaps the debounce windows; running timers pick them up on
// their next reset
func (r *Reactor) UpdateConfig(cfg Config) {
	r.config.Store(&cfg)
	r.log.Debug("Reactor config updated")
}

// GroupingSubscriptions returns the grouping ids that currently have a
// dedicated subscription
func (r *Reactor) GroupingSubscriptions() []string {
	var ids []string
	r.groupings.Range(func(id string, _ *groupingSubscription) bool {
		ids = append(ids, id)
		return true
	})
	slices.Sort(ids)
	return ids
}

// Firings returns how many debounced callbacks have run
func (r *Reactor) Firings() int64 {
	return r.firings.Value()
}

// watch runs one debounced subscription until ctx is done. A burst of
// events inside the window results in a single call to fire.
func (r *Reactor) watch(ctx context.Context, key domain.ResourceKey, fire func()) {
	events, cleanup := r.provider.Subscribe(ctx, key)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cleanup()

		var timer *time.Timer
		var timerC <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				window := r.config.Load().Window(key.Kind)
				if timer == nil {
					timer = time.NewTimer(window)
					timerC = timer.C
				} else {
					timer.Reset(window)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				r.firings.Inc()
				fire()
			}
		}
	}()
}

func (r *Reactor) react(key domain.ResourceKey) {
	if _, ok := defaultTabs[key.Kind]; ok {
		r.reconcileDefaultTab(key.Kind)
	}
	n := r.store.RebuildWhere(func(domain.TabSpec) bool { return true }, ports.RebuildResource)
	r.log.Debug("Resource changed", "resource", key.String(), "rebuilt", n)
}

// reconcileDefaultTab appends the built-in tab when its grouping gained
// members and deletes it when the grouping is empty again
func (r *Reactor) reconcileDefaultTab(kind domain.ResourceKind) {
	def := defaultTabs[kind]
	size := r.provider.GroupingSize(def.grouping)
	has := r.store.Has(def.id)

	switch {
	case size > 0 && !has:
		if r.store.AddDefaultTab(def.id, def.title) {
			r.log.InfoWithTab("Added built-in tab", def.title, "entries", size)
		}
	case size == 0 && has:
		if err := r.store.Delete(def.id); err != nil && !errors.Is(err, domain.ErrTabNotFound) {
			r.log.WarnWithTab("Failed to remove built-in tab", def.title, "error", err)
			return
		}
		r.log.InfoWithTab("Removed empty built-in tab", def.title)
	}
}

// syncGroupings reconciles the dedicated grouping subscriptions with the
// groupings the current tabs reference. A subscription lives exactly as
// long as at least one tab references its grouping.
func (r *Reactor) syncGroupings() {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	if r.ctx == nil || r.ctx.Err() != nil {
		return
	}

	referenced := r.store.ReferencedGroupings()
	for id, tabIDs := range referenced {
		if _, ok := r.groupings.Load(id); ok {
			continue
		}
		ctx, cancel := context.WithCancel(r.ctx)
		groupingID := id
		r.watch(ctx, domain.GroupingKey(groupingID), func() { r.reactGrouping(groupingID) })
		r.groupings.Store(id, &groupingSubscription{cancel: cancel})
		r.log.Debug("Watching grouping", "grouping", id, "tabs", len(tabIDs))
	}

	r.groupings.Range(func(id string, sub *groupingSubscription) bool {
		if _, ok := referenced[id]; !ok {
			sub.cancel()
			r.groupings.Delete(id)
			r.log.Debug("Stopped watching grouping", "grouping", id)
		}
		return true
	})
}

// reactGrouping rebuilds only the tabs that reference the grouping. When
// the grouping is gone those tabs are handed to validation instead. The
// referencing tabs are read from the store at firing time, a subscription
// outlives the tabs it was created for.
func (r *Reactor) reactGrouping(id string) {
	if _, exists := r.provider.Grouping(id); !exists {
		tabIDs := r.store.ReferencedGroupings()[id]
		if len(tabIDs) == 0 {
			return
		}
		r.log.Warn("Referenced grouping no longer exists", "grouping", id, "tabs", len(tabIDs))
		r.validator.RequestValidate(tabIDs, true)
		return
	}

	n := r.store.RebuildWhere(func(spec domain.TabSpec) bool {
		return slices.Contains(domain.ReferencedGroupings(spec.Filters), id)
	}, ports.RebuildResource)
	r.log.Debug("Grouping changed", "grouping", id, "rebuilt", n)
}
