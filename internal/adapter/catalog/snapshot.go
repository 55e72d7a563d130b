package catalog

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is a point-in-time export of host state, used to seed a
// MemoryProvider outside the host
type Snapshot struct {
	RemovableMedia *MediaState            `json:"removableMedia,omitempty"`
	Entries        []*domain.CatalogEntry `json:"entries"`
	Groupings      []domain.Grouping      `json:"groupings,omitempty"`
	Hidden         []string               `json:"hidden,omitempty"`
}

type MediaState struct {
	Current   string   `json:"current"`
	Cards     []string `json:"cards"`
	Available bool     `json:"available"`
}

func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode catalog snapshot %s: %w", path, err)
	}
	for i, e := range snap.Entries {
		if e == nil || e.ID == "" {
			return nil, fmt.Errorf("catalog snapshot %s: entry %d: %w: id", path, i, domain.ErrMissingField)
		}
	}
	return &snap, nil
}

// Apply replaces the catalog with the snapshot's entries and adds its
// groupings, hidden entries and media state
func (p *MemoryProvider) Apply(s *Snapshot) {
	p.SetEntries(s.Entries...)
	for _, g := range s.Groupings {
		p.SetGrouping(g)
	}
	for _, id := range s.Hidden {
		p.SetHidden(id, true)
	}
	if m := s.RemovableMedia; m != nil {
		p.SetRemovableMedia(m.Available, m.Current, m.Cards...)
	}
}
