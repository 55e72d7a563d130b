package validation

import (
	"slices"
	"sync"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

// State of the coordinator's single validation lock
type State int

const (
	Idle State = iota
	Validating
)

func (s State) String() string {
	if s == Validating {
		return "validating"
	}
	return "idle"
}

// TabStore is the part of the tab store the coordinator reads and repairs
type TabStore interface {
	Settings(ids []string) domain.TabSettingsDictionary
	Update(id string, settings domain.TabSettings) error
	Delete(id string) error
	RebuildCatalog(id, reason string) error
}

// Checker produces validation reports
type Checker interface {
	Validate(tabs domain.TabSettingsDictionary) domain.ValidationReport
}

// batch is a set of tab ids with their rebuild-on-valid flags, kept in
// request order
type batch struct {
	rebuild map[string]bool
	order   []string
}

func newBatch() *batch {
	return &batch{rebuild: make(map[string]bool)}
}

// add merges ids into the batch; a rebuild flag already set stays set
func (b *batch) add(ids []string, rebuild bool) {
	for _, id := range ids {
		prev, queued := b.rebuild[id]
		if !queued {
			b.order = append(b.order, id)
		}
		b.rebuild[id] = prev || rebuild
	}
}

func (b *batch) empty() bool {
	return len(b.order) == 0
}

// Coordinator serialises validation. While a batch is validating, or its
// repair is waiting on the user, further requests are queued by tab id and
// run once the repair resolves. Ordinary store operations are never
// blocked by it.
type Coordinator struct {
	store   TabStore
	checker Checker
	repair  ports.RepairCollaborator
	stats   ports.StatsCollector
	log     logger.StyledLogger

	pending  *batch
	erroring map[string]struct{}
	state    State
	mu       sync.Mutex
}

func NewCoordinator(store TabStore, checker Checker, repair ports.RepairCollaborator,
	stats ports.StatsCollector, log logger.StyledLogger) *Coordinator {
	return &Coordinator{
		store:    store,
		checker:  checker,
		repair:   repair,
		stats:    stats,
		log:      log,
		pending:  newBatch(),
		erroring: make(map[string]struct{}),
	}
}

// RequestValidate validates the tabs now when idle, otherwise queues them.
// Tabs flagged rebuildOnValid get their catalog rebuilt once proven valid.
func (c *Coordinator) RequestValidate(ids []string, rebuildOnValid bool) {
	if len(ids) == 0 {
		return
	}

	c.mu.Lock()
	if c.state == Validating {
		c.pending.add(ids, rebuildOnValid)
		c.mu.Unlock()
		c.stats.RecordQueued(len(ids))
		c.log.Debug("Validation queued", "tabs", len(ids))
		return
	}
	c.state = Validating
	c.mu.Unlock()

	b := newBatch()
	b.add(ids, rebuildOnValid)
	c.drain(b)
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the queued tab ids in request order
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.pending.order...)
}

// Erroring returns the tabs whose repair was dismissed, sorted
func (c *Coordinator) Erroring() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.erroring))
	for id := range c.erroring {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// drain validates batches until one needs a repair or the queue is empty
func (c *Coordinator) drain(b *batch) {
	for b != nil {
		if !c.validate(b) {
			return
		}
		b = c.next()
	}
}

// next takes the pending queue, or releases the lock when it is empty
func (c *Coordinator) next() *batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending.empty() {
		c.state = Idle
		return nil
	}
	b := c.pending
	c.pending = newBatch()
	return b
}

// validate reports whether the batch finished without needing a repair.
// Tabs deleted since the request are skipped.
func (c *Coordinator) validate(b *batch) bool {
	tabs := c.store.Settings(b.order)
	report := c.checker.Validate(tabs)

	for _, id := range b.order {
		if _, exists := tabs[id]; !exists {
			continue
		}
		if _, bad := report[id]; bad {
			continue
		}
		c.clearErroring(id)
		if b.rebuild[id] {
			if err := c.store.RebuildCatalog(id, ports.RebuildRepair); err != nil {
				c.log.Warn("Failed to rebuild validated tab", "tab", id, "error", err)
			}
		}
	}

	if report.IsEmpty() {
		c.stats.RecordValidation(ports.ValidationValid, len(tabs))
		return true
	}

	c.stats.RecordValidation(ports.ValidationInvalid, len(report))
	erroring := make(domain.TabSettingsDictionary, len(report))
	for id := range report {
		erroring[id] = tabs[id]
	}
	c.log.WarnWithContext("Tabs need repair", titles(erroring), logger.LogContext{
		UserArgs:     []interface{}{"tabs", len(report), "errors", report.CountErrors()},
		DetailedArgs: []interface{}{"ids", report.TabIDs()},
	})

	c.repair.Present(&repairSession{
		coordinator: c,
		tabs:        erroring,
		report:      report,
	})
	return false
}

// confirm applies a repair: a tab left without filters is deleted, any
// other tab is updated in place
func (c *Coordinator) confirm(corrected domain.TabSettingsDictionary) {
	ids := make([]string, 0, len(corrected))
	for id := range corrected {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		spec := corrected[id]
		var err error
		if spec.IsCustom() && len(spec.Filters) == 0 {
			err = c.store.Delete(id)
		} else {
			err = c.store.Update(id, domain.SettingsOf(spec))
		}
		if err != nil {
			c.log.Warn("Failed to apply repair", "tab", id, "error", err)
			continue
		}
		c.clearErroring(id)
	}

	c.stats.RecordValidation(ports.ValidationConfirmed, len(corrected))
	c.log.InfoWithCount("Applied tab repairs", len(corrected))
	c.drain(c.next())
}

// dismiss leaves the tabs untouched and marked erroring
func (c *Coordinator) dismiss(tabs domain.TabSettingsDictionary) {
	c.mu.Lock()
	for id := range tabs {
		c.erroring[id] = struct{}{}
	}
	c.mu.Unlock()

	c.stats.RecordValidation(ports.ValidationDismissed, len(tabs))
	c.log.Warn("Tab repair dismissed", "tabs", len(tabs))
	c.drain(c.next())
}

func (c *Coordinator) clearErroring(id string) {
	c.mu.Lock()
	delete(c.erroring, id)
	c.mu.Unlock()
}

func titles(tabs domain.TabSettingsDictionary) string {
	if len(tabs) == 1 {
		for _, spec := range tabs {
			return spec.Title
		}
	}
	return "multiple tabs"
}

// repairSession resolves exactly once
type repairSession struct {
	coordinator *Coordinator
	tabs        domain.TabSettingsDictionary
	report      domain.ValidationReport
	once        sync.Once
}

var _ ports.RepairSession = (*repairSession)(nil)

func (s *repairSession) Tabs() domain.TabSettingsDictionary {
	return s.tabs.Clone()
}

func (s *repairSession) Report() domain.ValidationReport {
	return s.report
}

func (s *repairSession) Confirm(corrected domain.TabSettingsDictionary) {
	s.once.Do(func() {
		s.coordinator.confirm(corrected.Clone())
	})
}

func (s *repairSession) Dismiss() {
	s.once.Do(func() {
		s.coordinator.dismiss(s.tabs)
	})
}
