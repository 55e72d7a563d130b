package ports

import (
	"context"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

// Persistence is the async key-value transport for everything this module
// keeps between sessions
type Persistence interface {
	// GetTabs returns the stored tab dictionary. A missing dictionary yields
	// domain.ErrNotFound; a structurally broken one a *domain.CorruptConfigError.
	GetTabs(ctx context.Context) (domain.TabSettingsDictionary, error)
	SetTabs(ctx context.Context, tabs domain.TabSettingsDictionary) error

	// BackupTabs keeps the raw stored tab bytes under a new key and returns it
	BackupTabs(ctx context.Context) (string, error)

	GetTags(ctx context.Context) ([]domain.Tag, error)
	SetTags(ctx context.Context, tags []domain.Tag) error

	GetContacts(ctx context.Context) ([]domain.Contact, error)
	SetContacts(ctx context.Context, contacts []domain.Contact) error

	// GetOwnedEntries maps a contact id to the entry ids they own
	GetOwnedEntries(ctx context.Context) (map[string][]string, error)
	SetOwnedEntries(ctx context.Context, owned map[string][]string) error

	GetLayouts(ctx context.Context, kind domain.LayoutKind) (domain.Layouts, error)
	SetLayouts(ctx context.Context, kind domain.LayoutKind, layouts domain.Layouts) error

	Close() error
}
