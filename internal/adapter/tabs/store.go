package tabs

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

// Saver receives the full tab dictionary after every mutation. Saving must
// not block the store.
type Saver interface {
	SaveTabs(tabs domain.TabSettingsDictionary)
}

// Store is the system of record for tabs. Every mutation runs under one
// mutex, ends with one save request and one change notification, and
// listeners are only called once the mutex is released.
type Store struct {
	engine   ports.FilterEvaluator
	provider ports.CatalogProvider
	saver    Saver
	stats    ports.StatsCollector
	log      logger.StyledLogger
	now      func() time.Time
	newID    func() string

	tabs      map[string]*domain.TabContainer
	listeners map[int]Listener
	visible   []string
	hidden    []string

	listenerSeq int
	mu          sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator, tests use it for stable ids
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func NewStore(engine ports.FilterEvaluator, provider ports.CatalogProvider, saver Saver,
	stats ports.StatsCollector, log logger.StyledLogger, opts ...Option) *Store {
	s := &Store{
		engine:    engine,
		provider:  provider,
		saver:     saver,
		stats:     stats,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
		tabs:      make(map[string]*domain.TabContainer),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a custom tab to the visible list at position and builds its
// catalog. position == number of visible tabs appends.
func (s *Store) Create(settings domain.TabSettings, position int) (string, error) {
	return s.create(settings, position, false)
}

// Append is Create at the end of the visible list
func (s *Store) Append(settings domain.TabSettings) (string, error) {
	return s.create(settings, 0, true)
}

func (s *Store) create(settings domain.TabSettings, position int, appendTab bool) (string, error) {
	if settings.Title == "" {
		return "", fmt.Errorf("create tab: %w: title", domain.ErrMissingField)
	}

	s.mu.Lock()
	if appendTab {
		position = len(s.visible)
	}
	if position < 0 || position > len(s.visible) {
		n := len(s.visible)
		s.mu.Unlock()
		return "", fmt.Errorf("create tab at %d of %d: %w", position, n, domain.ErrPositionOutOfRange)
	}

	id := s.newID()
	if _, exists := s.tabs[id]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("create tab %s: %w", id, domain.ErrDuplicateTab)
	}

	c := &domain.TabContainer{Spec: specFromSettings(id, settings)}
	s.tabs[id] = c
	s.visible = slices.Insert(s.visible, position, id)
	s.renumberLocked()
	if c.HasActiveFilters() {
		s.buildLocked(c, ports.RebuildCreate)
	}
	s.commitLocked(Change{Kind: ChangeCreated, TabIDs: []string{id}}, true)

	s.log.InfoWithTab("Created tab", settings.Title, "id", id, "position", position)
	return id, nil
}

// Reorder assigns position = index to every visible tab
func (s *Store) Reorder(ordered []string) error {
	s.mu.Lock()
	if !isPermutation(ordered, s.visible) {
		s.mu.Unlock()
		return fmt.Errorf("reorder %d tabs: %w", len(ordered), domain.ErrNotPermutation)
	}

	for i, id := range ordered {
		s.tabs[id].Spec.Position = i
	}
	s.rebuildOrderLocked()
	s.commitLocked(Change{Kind: ChangeReordered, TabIDs: append([]string(nil), s.visible...)}, true)
	return nil
}

// Hide moves a visible tab to the end of the hidden list and compacts the
// positions after it
func (s *Store) Hide(id string) error {
	s.mu.Lock()
	c, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("hide %s: %w", id, domain.ErrTabNotFound)
	}
	if c.Spec.IsHidden() {
		s.mu.Unlock()
		return fmt.Errorf("hide %s: %w", id, domain.ErrTabNotVisible)
	}

	s.visible = remove(s.visible, id)
	s.hidden = append(s.hidden, id)
	c.Spec.Position = domain.HiddenPosition
	s.renumberLocked()
	s.commitLocked(Change{Kind: ChangeHidden, TabIDs: []string{id}}, true)
	return nil
}

// Show appends a hidden tab to the visible list, building its catalog if it
// was never built or went stale while hidden
func (s *Store) Show(id string) error {
	s.mu.Lock()
	c, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("show %s: %w", id, domain.ErrTabNotFound)
	}
	if !c.Spec.IsHidden() {
		s.mu.Unlock()
		return fmt.Errorf("show %s: %w", id, domain.ErrTabNotHidden)
	}

	s.hidden = remove(s.hidden, id)
	s.visible = append(s.visible, id)
	s.renumberLocked()
	if c.HasActiveFilters() && (c.Catalog == nil || c.Stale) {
		s.buildLocked(c, ports.RebuildShow)
	}
	s.commitLocked(Change{Kind: ChangeShown, TabIDs: []string{id}}, true)
	return nil
}

// Delete removes a tab from whichever list holds it
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	c, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, domain.ErrTabNotFound)
	}

	delete(s.tabs, id)
	if c.Spec.IsHidden() {
		s.hidden = remove(s.hidden, id)
	} else {
		s.visible = remove(s.visible, id)
		s.renumberLocked()
	}
	s.commitLocked(Change{Kind: ChangeDeleted, TabIDs: []string{id}}, true)

	s.log.InfoWithTab("Deleted tab", c.Spec.Title, "id", id)
	return nil
}

// Update replaces the editable settings of a custom tab and rebuilds it
func (s *Store) Update(id string, settings domain.TabSettings) error {
	if settings.Title == "" {
		return fmt.Errorf("update %s: %w: title", id, domain.ErrMissingField)
	}

	s.mu.Lock()
	c, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, domain.ErrTabNotFound)
	}
	if !c.Spec.IsCustom() {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, domain.ErrNotCustomTab)
	}

	spec := specFromSettings(id, settings)
	spec.Position = c.Spec.Position
	c.Spec = spec

	switch {
	case !c.HasActiveFilters():
		c.Catalog, c.Stale = nil, false
	case c.Spec.IsHidden():
		c.Stale = true
	default:
		s.buildLocked(c, ports.RebuildUpdate)
	}
	s.commitLocked(Change{Kind: ChangeUpdated, TabIDs: []string{id}}, true)
	return nil
}

// AddDefaultTab appends a built-in tab unless a tab with that id exists
func (s *Store) AddDefaultTab(id, title string) bool {
	s.mu.Lock()
	if _, exists := s.tabs[id]; exists {
		s.mu.Unlock()
		return false
	}

	s.tabs[id] = &domain.TabContainer{Spec: domain.TabSpec{ID: id, Title: title, Position: len(s.visible)}}
	s.visible = append(s.visible, id)
	s.commitLocked(Change{Kind: ChangeCreated, TabIDs: []string{id}}, true)

	s.log.InfoWithTab("Added default tab", title)
	return true
}

// Has reports whether a tab with the id exists
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tabs[id]
	return ok
}

// ApplyLayout hides every tab, then shows the listed ones in order. Ids
// that no longer exist are skipped.
func (s *Store) ApplyLayout(ids []string) int {
	s.mu.Lock()
	wasVisible := s.visible
	next := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.tabs[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}

	hidden := make([]string, 0, len(s.tabs)-len(next))
	for _, id := range s.hidden {
		if _, shown := seen[id]; !shown {
			hidden = append(hidden, id)
		}
	}
	for _, id := range wasVisible {
		if _, shown := seen[id]; !shown {
			hidden = append(hidden, id)
			s.tabs[id].Spec.Position = domain.HiddenPosition
		}
	}

	s.visible, s.hidden = next, hidden
	s.renumberLocked()
	for _, id := range next {
		c := s.tabs[id]
		if c.HasActiveFilters() && (c.Catalog == nil || c.Stale) {
			s.buildLocked(c, ports.RebuildShow)
		}
	}
	s.commitLocked(Change{Kind: ChangeLayout, TabIDs: append([]string(nil), next...)}, true)
	return len(next)
}

// Snapshot returns deep copies of the visible tabs in position order and
// the hidden tabs in the order they were hidden
func (s *Store) Snapshot() domain.TabsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.TabsSnapshot{
		Visible: make([]*domain.TabContainer, 0, len(s.visible)),
		Hidden:  make([]*domain.TabContainer, 0, len(s.hidden)),
	}
	for _, id := range s.visible {
		snap.Visible = append(snap.Visible, s.tabs[id].Clone())
	}
	for _, id := range s.hidden {
		snap.Hidden = append(snap.Hidden, s.tabs[id].Clone())
	}
	return snap
}

// RenderableTabs returns the visible tabs a renderer should draw. Custom
// tabs set to auto hide are left out while their catalog is empty, as are
// tabs whose filters need a dependency that is not available.
func (s *Store) RenderableTabs() []*domain.TabContainer {
	snap := s.Snapshot()
	out := make([]*domain.TabContainer, 0, len(snap.Visible))
	for _, c := range snap.Visible {
		if !c.Spec.IsCustom() {
			out = append(out, c)
			continue
		}
		if !s.engine.DependencyAvailable(c.Spec.Filters) {
			continue
		}
		if c.Spec.AutoHide && (c.Catalog == nil || len(c.Catalog.Visible) == 0) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Get returns a deep copy of one tab
func (s *Store) Get(id string) (*domain.TabContainer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.tabs[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Settings returns the stored specs of the given tabs; unknown ids are skipped
func (s *Store) Settings(ids []string) domain.TabSettingsDictionary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.TabSettingsDictionary, len(ids))
	for _, id := range ids {
		if c, ok := s.tabs[id]; ok {
			out[id] = c.Spec.Clone()
		}
	}
	return out
}

// Dictionary returns the persisted shape of the whole collection
func (s *Store) Dictionary() domain.TabSettingsDictionary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dictionaryLocked()
}

// CustomTabIDs returns the ids of every custom tab, visible first
func (s *Store) CustomTabIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, list := range [][]string{s.visible, s.hidden} {
		for _, id := range list {
			if s.tabs[id].Spec.IsCustom() {
				out = append(out, id)
			}
		}
	}
	return out
}

// ReferencedGroupings maps each grouping id referenced by a custom tab to
// the ids of the tabs referencing it
func (s *Store) ReferencedGroupings() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make(map[string][]string)
	for _, list := range [][]string{s.visible, s.hidden} {
		for _, id := range list {
			for _, g := range domain.ReferencedGroupings(s.tabs[id].Spec.Filters) {
				refs[g] = append(refs[g], id)
			}
		}
	}
	return refs
}

// Load replaces the collection with a persisted dictionary. Visible
// positions are normalised to 0..N-1 keeping their relative order; hidden
// tabs are ordered by title since the dictionary carries no hide order.
func (s *Store) Load(dict domain.TabSettingsDictionary) {
	s.mu.Lock()
	s.tabs = make(map[string]*domain.TabContainer, len(dict))
	s.visible = s.visible[:0]
	s.hidden = s.hidden[:0]

	normalised := false
	for key, spec := range dict {
		spec = spec.Clone()
		if spec.ID == "" {
			spec.ID = key
			normalised = true
		}
		if spec.Position < 0 && spec.Position != domain.HiddenPosition {
			spec.Position = domain.HiddenPosition
			normalised = true
		}
		s.tabs[spec.ID] = &domain.TabContainer{Spec: spec}
	}

	before := make(map[string]int, len(s.tabs))
	for id, c := range s.tabs {
		before[id] = c.Spec.Position
	}
	s.rebuildOrderLocked()
	for id, c := range s.tabs {
		if before[id] != c.Spec.Position {
			normalised = true
		}
	}

	for _, id := range s.visible {
		if c := s.tabs[id]; c.HasActiveFilters() {
			s.buildLocked(c, ports.RebuildLoad)
		}
	}
	for _, id := range s.hidden {
		if c := s.tabs[id]; c.HasActiveFilters() {
			c.Stale = true
		}
	}
	s.commitLocked(Change{Kind: ChangeLoaded, TabIDs: append([]string(nil), s.visible...)}, normalised)

	s.log.InfoWithCount("Loaded tabs", len(dict), "visible", len(s.visible), "hidden", len(s.hidden))
}

// rebuildOrderLocked derives the visible and hidden arrays from the map.
// Visible ties are broken by id so the result is deterministic.
func (s *Store) rebuildOrderLocked() {
	visible := make([]string, 0, len(s.tabs))
	var hidden []string
	for id, c := range s.tabs {
		if c.Spec.IsHidden() {
			hidden = append(hidden, id)
		} else {
			visible = append(visible, id)
		}
	}

	keep := make(map[string]int, len(s.hidden))
	for i, id := range s.hidden {
		keep[id] = i
	}
	sort.Slice(visible, func(i, j int) bool {
		pi, pj := s.tabs[visible[i]].Spec.Position, s.tabs[visible[j]].Spec.Position
		if pi != pj {
			return pi < pj
		}
		return visible[i] < visible[j]
	})
	sort.SliceStable(hidden, func(i, j int) bool {
		ki, okI := keep[hidden[i]]
		kj, okJ := keep[hidden[j]]
		switch {
		case okI && okJ:
			return ki < kj
		case okI != okJ:
			return okI
		}
		ti, tj := s.tabs[hidden[i]].Spec.Title, s.tabs[hidden[j]].Spec.Title
		if ti != tj {
			return ti < tj
		}
		return hidden[i] < hidden[j]
	})

	s.visible, s.hidden = visible, hidden
	s.renumberLocked()
}

func (s *Store) renumberLocked() {
	for i, id := range s.visible {
		s.tabs[id].Spec.Position = i
	}
	for _, id := range s.hidden {
		s.tabs[id].Spec.Position = domain.HiddenPosition
	}
}

func (s *Store) dictionaryLocked() domain.TabSettingsDictionary {
	out := make(domain.TabSettingsDictionary, len(s.tabs))
	for id, c := range s.tabs {
		out[id] = c.Spec.Clone()
	}
	return out
}

// commitLocked releases the mutex, then saves and notifies
func (s *Store) commitLocked(change Change, save bool) {
	var dict domain.TabSettingsDictionary
	if save {
		dict = s.dictionaryLocked()
	}
	listeners := s.listenersLocked()
	visible, hidden := len(s.visible), len(s.hidden)
	s.mu.Unlock()

	s.stats.RecordTabCount(visible, hidden)
	if save && s.saver != nil {
		s.saver.SaveTabs(dict)
	}
	for _, l := range listeners {
		l(change)
	}
}

func specFromSettings(id string, settings domain.TabSettings) domain.TabSpec {
	filters := domain.CloneFilters(settings.Filters)
	if filters == nil {
		filters = []domain.Filter{}
	}
	mode := settings.CombinationMode
	if !mode.Valid() {
		mode = domain.ModeAnd
	}
	return domain.TabSpec{
		ID:              id,
		Title:           settings.Title,
		CombinationMode: mode,
		SortOverride:    settings.SortOverride,
		Filters:         filters,
		CategoryMask:    settings.CategoryMask,
		AutoHide:        settings.AutoHide,
	}
}

func isPermutation(ordered, current []string) bool {
	if len(ordered) != len(current) {
		return false
	}
	want := make(map[string]int, len(current))
	for _, id := range current {
		want[id]++
	}
	for _, id := range ordered {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}

func remove(list []string, id string) []string {
	if i := slices.Index(list, id); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
