package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Keys under which each dictionary is kept
const (
	KeyTabs          = "tabs"
	KeyTabsBackup    = "tabs.backup."
	KeyTags          = "tags"
	KeyContacts      = "contacts"
	KeyOwnedEntries  = "owned"
	KeyLayoutsPrefix = "layouts."
)

// Backend is the raw key-value layer. Get returns domain.ErrNotFound for
// absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store implements ports.Persistence as JSON documents over a Backend
type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

var _ ports.Persistence = (*Store)(nil)

// GetTabs decodes the stored tab dictionary. The raw bytes are scanned for
// structural problems first so a broken document is rejected as a whole.
func (s *Store) GetTabs(ctx context.Context) (domain.TabSettingsDictionary, error) {
	raw, err := s.backend.Get(ctx, KeyTabs)
	if err != nil {
		return nil, err
	}
	return DecodeTabs(raw)
}

// GetTabsRaw returns the stored tab document without decoding it
func (s *Store) GetTabsRaw(ctx context.Context) ([]byte, error) {
	return s.backend.Get(ctx, KeyTabs)
}

func (s *Store) SetTabs(ctx context.Context, tabs domain.TabSettingsDictionary) error {
	return s.setJSON(ctx, KeyTabs, tabs)
}

// BackupTabs copies the raw stored tabs to a timestamped key
func (s *Store) BackupTabs(ctx context.Context) (string, error) {
	raw, err := s.backend.Get(ctx, KeyTabs)
	if err != nil {
		return "", fmt.Errorf("read tabs for backup: %w", err)
	}
	key := KeyTabsBackup + strconv.FormatInt(s.now().Unix(), 10)
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return "", fmt.Errorf("write backup %s: %w", key, err)
	}
	return key, nil
}

func (s *Store) GetTags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	return tags, s.getJSON(ctx, KeyTags, &tags)
}

func (s *Store) SetTags(ctx context.Context, tags []domain.Tag) error {
	return s.setJSON(ctx, KeyTags, tags)
}

func (s *Store) GetContacts(ctx context.Context) ([]domain.Contact, error) {
	var contacts []domain.Contact
	return contacts, s.getJSON(ctx, KeyContacts, &contacts)
}

func (s *Store) SetContacts(ctx context.Context, contacts []domain.Contact) error {
	return s.setJSON(ctx, KeyContacts, contacts)
}

func (s *Store) GetOwnedEntries(ctx context.Context) (map[string][]string, error) {
	owned := make(map[string][]string)
	return owned, s.getJSON(ctx, KeyOwnedEntries, &owned)
}

func (s *Store) SetOwnedEntries(ctx context.Context, owned map[string][]string) error {
	return s.setJSON(ctx, KeyOwnedEntries, owned)
}

// GetLayouts returns an empty set when none were saved
func (s *Store) GetLayouts(ctx context.Context, kind domain.LayoutKind) (domain.Layouts, error) {
	layouts := make(domain.Layouts)
	err := s.getJSON(ctx, KeyLayoutsPrefix+string(kind), &layouts)
	if errors.Is(err, domain.ErrNotFound) {
		return layouts, nil
	}
	return layouts, err
}

func (s *Store) SetLayouts(ctx context.Context, kind domain.LayoutKind, layouts domain.Layouts) error {
	return s.setJSON(ctx, KeyLayoutsPrefix+string(kind), layouts)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Set(ctx, key, raw)
}

// DecodeTabs scans and decodes a raw tab dictionary. Every failure is a
// *domain.CorruptConfigError.
func DecodeTabs(raw []byte) (domain.TabSettingsDictionary, error) {
	if err := ScanTabs(raw); err != nil {
		return nil, err
	}
	var dict domain.TabSettingsDictionary
	if err := json.Unmarshal(raw, &dict); err != nil {
		return nil, domain.NewCorruptConfigError("", err)
	}
	return dict, nil
}

// EncodeTabs renders a dictionary the way it is stored
func EncodeTabs(dict domain.TabSettingsDictionary, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(dict, "", "  ")
	}
	return json.Marshal(dict)
}
