package tabs

import (
	"fmt"
	"time"

	"github.com/thushan/tabkeeper/internal/core/domain"
)

// RebuildCatalog rebuilds one tab now if it is visible, otherwise marks it
// stale so Show rebuilds it
func (s *Store) RebuildCatalog(id, reason string) error {
	s.mu.Lock()
	c, ok := s.tabs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("rebuild %s: %w", id, domain.ErrTabNotFound)
	}
	if !c.HasActiveFilters() {
		s.mu.Unlock()
		return nil
	}

	if c.Spec.IsHidden() {
		c.Stale = true
		s.mu.Unlock()
		return nil
	}
	s.buildLocked(c, reason)
	s.commitLocked(Change{Kind: ChangeRebuilt, TabIDs: []string{id}}, false)
	return nil
}

// RebuildVisibleCustomTabs rebuilds every visible custom tab that has at
// least one filter and returns how many were rebuilt
func (s *Store) RebuildVisibleCustomTabs(reason string) int {
	return s.RebuildWhere(func(domain.TabSpec) bool { return true }, reason)
}

// RebuildWhere rebuilds the visible custom tabs matching pred. Matching
// hidden tabs are marked stale instead.
func (s *Store) RebuildWhere(pred func(spec domain.TabSpec) bool, reason string) int {
	s.mu.Lock()
	var rebuilt []string
	for _, id := range s.visible {
		c := s.tabs[id]
		if c.HasActiveFilters() && pred(c.Spec) {
			s.buildLocked(c, reason)
			rebuilt = append(rebuilt, id)
		}
	}
	for _, id := range s.hidden {
		c := s.tabs[id]
		if c.HasActiveFilters() && pred(c.Spec) {
			c.Stale = true
		}
	}

	if len(rebuilt) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.commitLocked(Change{Kind: ChangeRebuilt, TabIDs: rebuilt}, false)
	return len(rebuilt)
}

// buildLocked evaluates the tab's filters over the whole catalog and
// replaces its Catalog. Entries outside the category mask never match;
// entries the host hides only reach Visible when the mask opts in.
func (s *Store) buildLocked(c *domain.TabContainer, reason string) {
	start := time.Now()
	mask := c.Spec.CategoryMask.Effective()
	showHidden := mask.Has(domain.CategoryHidden)
	mode := c.Spec.Mode()

	entries := s.provider.Entries()
	all := make([]string, 0, len(entries)/4)
	visible := make([]string, 0, len(entries)/4)
	for _, e := range entries {
		if !mask.Includes(e.Category) {
			continue
		}
		if !s.engine.EvaluateAll(c.Spec.Filters, mode, e) {
			continue
		}
		all = append(all, e.ID)
		if showHidden || !s.provider.IsHidden(e.ID) {
			visible = append(visible, e.ID)
		}
	}

	c.Catalog = &domain.Catalog{BuiltAt: s.now(), AllMatching: all, Visible: visible}
	c.Stale = false
	s.stats.RecordRebuild(c.Spec.ID, reason, time.Since(start), len(all), len(visible))
}
