package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/pkg/eventbus"
)

// MemoryProvider implements ports.CatalogProvider over in-memory state.
// Every mutator publishes a change event for the resource it touched.
type MemoryProvider struct {
	bus *eventbus.EventBus[domain.ResourceKey, domain.ResourceEvent]
	now func() time.Time

	entries   map[string]*domain.CatalogEntry
	groupings map[string]*domain.Grouping
	members   map[string]map[string]struct{}
	contacts  map[string]domain.Contact
	owned     map[string]map[string]struct{}
	tags      map[int]domain.Tag
	hidden    map[string]struct{}
	cards     map[string]struct{}

	currentCard    string
	order          []string
	mu             sync.RWMutex
	mediaAvailable bool
}

// NewMemoryProvider creates an empty provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		bus:       eventbus.New[domain.ResourceKey, domain.ResourceEvent](),
		now:       time.Now,
		entries:   make(map[string]*domain.CatalogEntry),
		groupings: make(map[string]*domain.Grouping),
		members:   make(map[string]map[string]struct{}),
		contacts:  make(map[string]domain.Contact),
		owned:     make(map[string]map[string]struct{}),
		tags:      make(map[int]domain.Tag),
		hidden:    make(map[string]struct{}),
		cards:     make(map[string]struct{}),
	}
}

var _ ports.CatalogProvider = (*MemoryProvider)(nil)

func (p *MemoryProvider) Entries() []*domain.CatalogEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*domain.CatalogEntry, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entries[id])
	}
	return out
}

func (p *MemoryProvider) Entry(id string) (*domain.CatalogEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[id]
	return e, ok
}

func (p *MemoryProvider) Grouping(id string) (*domain.Grouping, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	g, ok := p.groupings[id]
	if !ok {
		return nil, false
	}
	cp := *g
	cp.Entries = append([]string(nil), g.Entries...)
	return &cp, true
}

func (p *MemoryProvider) InGrouping(groupingID, entryID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.members[groupingID][entryID]
	return ok
}

func (p *MemoryProvider) GroupingSize(groupingID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members[groupingID])
}

func (p *MemoryProvider) ContactExists(contactID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.contacts[contactID]
	return ok
}

func (p *MemoryProvider) OwnedBy(contactID, entryID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.owned[contactID][entryID]
	return ok
}

func (p *MemoryProvider) TagExists(tag int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.tags[tag]
	return ok
}

func (p *MemoryProvider) IsHidden(entryID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.hidden[entryID]
	return ok
}

func (p *MemoryProvider) RemovableMediaAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mediaAvailable
}

func (p *MemoryProvider) CurrentCard() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentCard
}

func (p *MemoryProvider) CardExists(cardID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.cards[cardID]
	return ok
}

func (p *MemoryProvider) Subscribe(ctx context.Context, key domain.ResourceKey) (<-chan domain.ResourceEvent, func()) {
	return p.bus.Subscribe(ctx, key)
}

// Close shuts the change bus down; subscriber channels are closed
func (p *MemoryProvider) Close() {
	p.bus.Shutdown()
}

// SetEntries replaces the whole catalog
func (p *MemoryProvider) SetEntries(entries ...*domain.CatalogEntry) {
	p.mu.Lock()
	p.entries = make(map[string]*domain.CatalogEntry, len(entries))
	p.order = p.order[:0]
	for _, e := range entries {
		if _, dup := p.entries[e.ID]; !dup {
			p.order = append(p.order, e.ID)
		}
		p.entries[e.ID] = e
	}
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceCatalog})
}

// UpsertEntry adds or replaces one entry
func (p *MemoryProvider) UpsertEntry(e *domain.CatalogEntry) {
	p.mu.Lock()
	if _, ok := p.entries[e.ID]; !ok {
		p.order = append(p.order, e.ID)
	}
	p.entries[e.ID] = e
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceCatalog})
}

// SetInstalled flips an entry's install state. Entries are treated as
// immutable, so the entry is replaced rather than mutated.
func (p *MemoryProvider) SetInstalled(id string, installed bool) {
	p.mu.Lock()
	e, ok := p.entries[id]
	if ok {
		cp := *e
		cp.Installed = installed
		p.entries[id] = &cp
	}
	p.mu.Unlock()

	if ok {
		p.publish(domain.ResourceKey{Kind: domain.ResourceInstall})
	}
}

// SetGrouping creates or replaces a grouping
func (p *MemoryProvider) SetGrouping(g domain.Grouping) {
	p.mu.Lock()
	cp := g
	cp.Entries = append([]string(nil), g.Entries...)
	p.groupings[g.ID] = &cp
	set := make(map[string]struct{}, len(g.Entries))
	for _, id := range g.Entries {
		set[id] = struct{}{}
	}
	p.members[g.ID] = set
	p.mu.Unlock()

	p.publishGrouping(g.ID)
}

// DeleteGrouping removes a grouping; filters referencing it become dangling
func (p *MemoryProvider) DeleteGrouping(id string) {
	p.mu.Lock()
	delete(p.groupings, id)
	delete(p.members, id)
	p.mu.Unlock()

	p.publishGrouping(id)
}

func (p *MemoryProvider) SetContacts(contacts ...domain.Contact) {
	p.mu.Lock()
	p.contacts = make(map[string]domain.Contact, len(contacts))
	for _, c := range contacts {
		p.contacts[c.ID] = c
	}
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceSocial})
}

// SetOwned replaces the entries owned by a contact
func (p *MemoryProvider) SetOwned(contactID string, entryIDs ...string) {
	p.mu.Lock()
	set := make(map[string]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		set[id] = struct{}{}
	}
	p.owned[contactID] = set
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceSocial})
}

func (p *MemoryProvider) SetTags(tags ...domain.Tag) {
	p.mu.Lock()
	p.tags = make(map[int]domain.Tag, len(tags))
	for _, t := range tags {
		p.tags[t.ID] = t
	}
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceTags})
}

func (p *MemoryProvider) SetHidden(entryID string, hidden bool) {
	p.mu.Lock()
	if hidden {
		p.hidden[entryID] = struct{}{}
	} else {
		delete(p.hidden, entryID)
	}
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceHidden})
}

// SetRemovableMedia updates the plugin availability, known cards and the
// currently inserted card
func (p *MemoryProvider) SetRemovableMedia(available bool, current string, cards ...string) {
	p.mu.Lock()
	p.mediaAvailable = available
	p.currentCard = current
	p.cards = make(map[string]struct{}, len(cards))
	for _, c := range cards {
		p.cards[c] = struct{}{}
	}
	p.mu.Unlock()

	p.publish(domain.ResourceKey{Kind: domain.ResourceRemovableMedia})
}

// Contacts and Tags are used when exporting auxiliary dictionaries
func (p *MemoryProvider) Contacts() []domain.Contact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Contact, 0, len(p.contacts))
	for _, c := range p.contacts {
		out = append(out, c)
	}
	return out
}

func (p *MemoryProvider) Tags() []domain.Tag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Tag, 0, len(p.tags))
	for _, t := range p.tags {
		out = append(out, t)
	}
	return out
}

func (p *MemoryProvider) publishGrouping(id string) {
	p.publish(domain.GroupingKey(id))
	switch id {
	case domain.GroupingFavorites:
		p.publish(domain.ResourceKey{Kind: domain.ResourceFavorites})
	case domain.GroupingSoundtracks:
		p.publish(domain.ResourceKey{Kind: domain.ResourceSoundtracks})
	}
}

func (p *MemoryProvider) publish(key domain.ResourceKey) {
	p.bus.Publish(key, domain.ResourceEvent{Key: key, At: p.now()})
}
