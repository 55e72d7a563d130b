package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/filter"
	"github.com/thushan/tabkeeper/internal/adapter/stats"
	"github.com/thushan/tabkeeper/internal/adapter/tabs"
	"github.com/thushan/tabkeeper/internal/adapter/validation"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

var ErrTabsNotStarted = errors.New("tab store not initialised")

var layoutKinds = []domain.LayoutKind{domain.LayoutProfiles, domain.LayoutGroups, domain.LayoutSnapshots}

// TabsService loads the persisted tabs into the store and owns everything
// that works on them directly: the filter engine, presets, named layouts
// and the validation coordinator.
type TabsService struct {
	engineConfig  config.EngineConfig
	presetsConfig config.PresetsConfig

	provider *catalog.MemoryProvider
	repair   ports.RepairCollaborator
	notifier ports.Notifier
	logger   logger.StyledLogger

	storageService *StorageService
	statsService   *StatsService

	persistence ports.Persistence
	collector   *stats.Collector
	store       *tabs.Store
	presets     *tabs.Presets
	validator   *validation.Validator
	coordinator *validation.Coordinator
	unsubscribe func()

	layouts   map[domain.LayoutKind]domain.Layouts
	layoutsMu sync.Mutex

	// resetFrom is the backup key when the stored tabs were corrupt
	resetFrom string
}

func NewTabsService(
	engineConfig config.EngineConfig,
	presetsConfig config.PresetsConfig,
	provider *catalog.MemoryProvider,
	repair ports.RepairCollaborator,
	notifier ports.Notifier,
	storageService *StorageService,
	statsService *StatsService,
	logger logger.StyledLogger,
) *TabsService {
	return &TabsService{
		engineConfig:   engineConfig,
		presetsConfig:  presetsConfig,
		provider:       provider,
		repair:         repair,
		notifier:       notifier,
		storageService: storageService,
		statsService:   statsService,
		logger:         logger,
	}
}

func (s *TabsService) Name() string {
	return NameTabs
}

func (s *TabsService) Dependencies() []string {
	return []string{NameStorage, NameStats}
}

func (s *TabsService) Start(ctx context.Context) error {
	store, err := s.storageService.GetStore()
	if err != nil {
		return err
	}
	writer, err := s.storageService.GetWriter()
	if err != nil {
		return err
	}
	collector, err := s.statsService.GetCollector()
	if err != nil {
		return err
	}
	s.persistence = store
	s.collector = collector

	loc, err := s.engineConfig.Location()
	if err != nil {
		return err
	}

	if err := s.loadAuxiliary(ctx); err != nil {
		return err
	}

	s.presets = tabs.NewPresets()
	if s.presetsConfig.File != "" {
		n, err := s.presets.LoadFile(s.presetsConfig.File)
		if err != nil {
			return fmt.Errorf("load presets: %w", err)
		}
		s.logger.InfoWithCount("Loaded user presets", n, "file", s.presetsConfig.File)
	}

	engine := filter.NewEngine(s.provider, filter.WithLocation(loc))
	s.store = tabs.NewStore(engine, s.provider, writer, collector, s.logger)
	s.unsubscribe = s.store.Subscribe(s.onChange)

	if err := s.loadTabs(ctx, writer); err != nil {
		return err
	}

	s.validator = validation.NewValidator(s.provider, nil)
	s.coordinator = validation.NewCoordinator(s.store, s.validator, s.repair, collector, s.logger)
	return nil
}

func (s *TabsService) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return nil
}

// loadAuxiliary reads the dictionaries filters refer to and seeds the
// provider with them. A dictionary that was never saved is empty.
func (s *TabsService) loadAuxiliary(ctx context.Context) error {
	var (
		tagList  []domain.Tag
		contacts []domain.Contact
		owned    map[string][]string
		layouts  = make([]domain.Layouts, len(layoutKinds))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tagList, err = s.persistence.GetTags(gctx)
		return ignoreNotFound(err, "tags")
	})
	g.Go(func() error {
		var err error
		contacts, err = s.persistence.GetContacts(gctx)
		return ignoreNotFound(err, "contacts")
	})
	g.Go(func() error {
		var err error
		owned, err = s.persistence.GetOwnedEntries(gctx)
		return ignoreNotFound(err, "owned entries")
	})
	for i, kind := range layoutKinds {
		g.Go(func() error {
			var err error
			layouts[i], err = s.persistence.GetLayouts(gctx, kind)
			return ignoreNotFound(err, string(kind)+" layouts")
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.provider.SetTags(tagList...)
	s.provider.SetContacts(contacts...)
	for contact, entries := range owned {
		s.provider.SetOwned(contact, entries...)
	}

	s.layoutsMu.Lock()
	s.layouts = make(map[domain.LayoutKind]domain.Layouts, len(layoutKinds))
	for i, kind := range layoutKinds {
		if layouts[i] == nil {
			layouts[i] = make(domain.Layouts)
		}
		s.layouts[kind] = layouts[i]
	}
	s.layoutsMu.Unlock()

	s.logger.Debug("Loaded dictionaries", "tags", len(tagList), "contacts", len(contacts), "owners", len(owned))
	return nil
}

// loadTabs loads the stored dictionary. Missing settings start from the
// defaults; corrupt ones are backed up first and the user is told.
func (s *TabsService) loadTabs(ctx context.Context, writer tabs.Saver) error {
	dict, err := s.persistence.GetTabs(ctx)

	var corrupt *domain.CorruptConfigError
	switch {
	case err == nil:
		s.store.Load(dict)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Info("No saved tabs, starting from defaults")
	case errors.As(err, &corrupt):
		key, berr := s.persistence.BackupTabs(ctx)
		if berr != nil {
			return fmt.Errorf("back up corrupt tabs: %w", berr)
		}
		s.resetFrom = key
		s.logger.InfoConfigReset(key)
		if s.notifier != nil {
			s.notifier.NotifyConfigReset(key, err)
		}
	default:
		return fmt.Errorf("load tabs: %w", err)
	}

	s.store.Load(domain.DefaultTabs())
	writer.SaveTabs(s.store.Dictionary())
	return nil
}

func (s *TabsService) onChange(change tabs.Change) {
	if change.Kind != tabs.ChangeDeleted {
		return
	}
	for _, id := range change.TabIDs {
		s.collector.ForgetTab(id)
	}
}

func (s *TabsService) GetStore() (*tabs.Store, error) {
	if s.store == nil {
		return nil, ErrTabsNotStarted
	}
	return s.store, nil
}

func (s *TabsService) GetCoordinator() (*validation.Coordinator, error) {
	if s.coordinator == nil {
		return nil, ErrTabsNotStarted
	}
	return s.coordinator, nil
}

func (s *TabsService) Presets() *tabs.Presets {
	return s.presets
}

func (s *TabsService) Validator() *validation.Validator {
	return s.validator
}

// ResetBackupKey returns where corrupt settings were kept, empty when the
// stored tabs loaded cleanly
func (s *TabsService) ResetBackupKey() string {
	return s.resetFrom
}

// UpdateTags replaces the tag dictionary and persists it
func (s *TabsService) UpdateTags(ctx context.Context, tagList []domain.Tag) error {
	s.provider.SetTags(tagList...)
	return s.persistence.SetTags(ctx, tagList)
}

// UpdateContacts replaces the contact list and the entries each contact
// owns, then persists both
func (s *TabsService) UpdateContacts(ctx context.Context, contacts []domain.Contact, owned map[string][]string) error {
	s.provider.SetContacts(contacts...)
	for contact, entries := range owned {
		s.provider.SetOwned(contact, entries...)
	}
	if err := s.persistence.SetContacts(ctx, contacts); err != nil {
		return err
	}
	return s.persistence.SetOwnedEntries(ctx, owned)
}

// Layouts returns the sorted names saved under kind
func (s *TabsService) Layouts(kind domain.LayoutKind) []string {
	s.layoutsMu.Lock()
	defer s.layoutsMu.Unlock()

	names := make([]string, 0, len(s.layouts[kind]))
	for name := range s.layouts[kind] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SaveLayout stores the current visible order under name
func (s *TabsService) SaveLayout(ctx context.Context, kind domain.LayoutKind, name string) error {
	snap := s.store.Snapshot()
	ids := make([]string, 0, len(snap.Visible))
	for _, c := range snap.Visible {
		ids = append(ids, c.Spec.ID)
	}

	s.layoutsMu.Lock()
	defer s.layoutsMu.Unlock()

	next := make(domain.Layouts, len(s.layouts[kind])+1)
	for k, v := range s.layouts[kind] {
		next[k] = v
	}
	next[name] = ids
	if err := s.persistence.SetLayouts(ctx, kind, next); err != nil {
		return fmt.Errorf("save %s layout %q: %w", kind, name, err)
	}
	s.layouts[kind] = next
	return nil
}

// ApplyLayout shows the tabs of a saved layout in its order and hides the
// rest, returning how many tabs are visible afterwards
func (s *TabsService) ApplyLayout(kind domain.LayoutKind, name string) (int, error) {
	s.layoutsMu.Lock()
	ids, ok := s.layouts[kind][name]
	s.layoutsMu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%s layout %q: %w", kind, name, domain.ErrLayoutNotFound)
	}
	return s.store.ApplyLayout(ids), nil
}

func ignoreNotFound(err error, what string) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("load %s: %w", what, err)
}
