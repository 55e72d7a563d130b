package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/persistence"
	"github.com/thushan/tabkeeper/internal/adapter/stats"
	"github.com/thushan/tabkeeper/internal/adapter/tabs"
	"github.com/thushan/tabkeeper/internal/adapter/validation"
	"github.com/thushan/tabkeeper/internal/app/services"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
)

const DefaultShutdownTimeout = 10 * time.Second

// Options swaps out collaborators the host normally supplies. Nil fields
// fall back to logging implementations and a fresh in-memory catalog.
type Options struct {
	Provider *catalog.MemoryProvider
	Repairer ports.RepairCollaborator
	Notifier ports.Notifier

	// Backend replaces the badger database named in the storage config
	Backend persistence.Backend
}

// Application represents the running tab keeper
type Application struct {
	configMu  sync.RWMutex
	config    *config.Config
	startTime time.Time
	logger    logger.StyledLogger
	provider  *catalog.MemoryProvider
	manager   *services.ServiceManager

	statsService   *services.StatsService
	storageService *services.StorageService
	tabsService    *services.TabsService
	reactorService *services.ReactorService
}

// New wires every service; nothing is opened until Start
func New(cfg *config.Config, logger logger.StyledLogger, opts Options) (*Application, error) {
	if opts.Provider == nil {
		opts.Provider = catalog.NewMemoryProvider()
	}
	if opts.Repairer == nil {
		opts.Repairer = NewLogRepairer(logger)
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(logger)
	}

	app := &Application{
		startTime: time.Now(),
		logger:    logger,
		provider:  opts.Provider,
		manager:   services.NewServiceManager(logger),
	}
	app.setConfig(cfg)

	app.statsService = services.NewStatsService(cfg.Metrics, logger)
	if opts.Backend != nil {
		app.storageService = services.NewStorageServiceWithBackend(opts.Backend, logger)
	} else {
		app.storageService = services.NewStorageService(cfg.Storage, logger)
	}
	app.tabsService = services.NewTabsService(cfg.Engine, cfg.Presets, opts.Provider,
		opts.Repairer, opts.Notifier, app.storageService, app.statsService, logger)
	app.reactorService = services.NewReactorService(cfg.ReactorConfig(), opts.Provider, app.tabsService, logger)

	for _, svc := range []services.ManagedService{
		app.statsService, app.storageService, app.tabsService, app.reactorService,
	} {
		if err := app.manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}
	return app, nil
}

// Start loads the stored tabs, starts watching resources and queues the
// initial validation
func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	store, _ := a.tabsService.GetStore()
	snap := store.Snapshot()
	a.logger.Info("Tabkeeper started",
		"visible", len(snap.Visible),
		"hidden", len(snap.Hidden),
		"startup", time.Since(a.startTime).Round(time.Millisecond))
	return nil
}

// Stop shuts services down, flushing the last tab save
func (a *Application) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()
	return a.manager.Stop(ctx)
}

// UpdateConfig applies a reloaded configuration. Only the debounce windows
// take effect without a restart.
func (a *Application) UpdateConfig(cfg *config.Config) {
	a.setConfig(cfg)
	a.reactorService.UpdateConfig(cfg.ReactorConfig())
	a.logger.Info("Configuration reloaded", "file", cfg.Filename)
}

func (a *Application) Provider() *catalog.MemoryProvider {
	return a.provider
}

func (a *Application) Tabs() *services.TabsService {
	return a.tabsService
}

func (a *Application) Store() (*tabs.Store, error) {
	return a.tabsService.GetStore()
}

func (a *Application) Coordinator() (*validation.Coordinator, error) {
	return a.tabsService.GetCoordinator()
}

func (a *Application) Stats() (*stats.Collector, error) {
	return a.statsService.GetCollector()
}

// MetricsRegistry is nil when metrics are disabled
func (a *Application) MetricsRegistry() *prometheus.Registry {
	return a.statsService.Registry()
}
