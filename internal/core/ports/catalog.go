package ports

import (
	"context"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

// CatalogProvider is the host's view of the library. Everything here is
// owned by the host; this module only reads it and listens for changes.
type CatalogProvider interface {
	// Entries returns every entry of the library
	Entries() []*domain.CatalogEntry

	// Entry returns a single entry, false when unknown
	Entry(id string) (*domain.CatalogEntry, bool)

	// Grouping returns a named grouping, false when it no longer exists
	Grouping(id string) (*domain.Grouping, bool)

	// InGrouping reports whether the entry is a member of the grouping
	InGrouping(groupingID, entryID string) bool

	// GroupingSize returns the number of members, 0 for unknown groupings
	GroupingSize(groupingID string) int

	ContactExists(contactID string) bool

	// OwnedBy reports whether the contact owns the entry
	OwnedBy(contactID, entryID string) bool

	TagExists(tag int) bool

	// IsHidden reports whether the host hides the entry from library views
	IsHidden(entryID string) bool

	// RemovableMediaAvailable reports whether the removable media plugin is
	// installed and answering
	RemovableMediaAvailable() bool

	// CurrentCard returns the id of the inserted card, "" when none
	CurrentCard() string

	CardExists(cardID string) bool

	// Subscribe delivers an event each time the resource changes until ctx
	// is done or the cleanup function is called
	Subscribe(ctx context.Context, key domain.ResourceKey) (<-chan domain.ResourceEvent, func())
}

// FilterEvaluator evaluates filters against entries
type FilterEvaluator interface {
	// Evaluate is pure and total for well-formed filters
	Evaluate(f domain.Filter, entry *domain.CatalogEntry) bool

	// EvaluateAll evaluates a list like a merge group with the given mode
	EvaluateAll(filters []domain.Filter, mode domain.CombinationMode, entry *domain.CatalogEntry) bool

	// DependencyAvailable reports whether every optional dependency the
	// filters need is present
	DependencyAvailable(filters []domain.Filter) bool
}
