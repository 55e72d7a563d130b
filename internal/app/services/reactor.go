package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/adapter/reactor"
	"github.com/thushan/tabkeeper/internal/logger"
)

var ErrReactorNotStarted = errors.New("reactor not initialised")

// ReactorService keeps catalogs current once the tabs are loaded. Its start
// also queues the initial validation of every custom tab.
type ReactorService struct {
	config      reactor.Config
	provider    *catalog.MemoryProvider
	tabsService *TabsService
	reactor     *reactor.Reactor
	logger      logger.StyledLogger
	mu          sync.Mutex
}

func NewReactorService(cfg reactor.Config, provider *catalog.MemoryProvider, tabsService *TabsService, logger logger.StyledLogger) *ReactorService {
	return &ReactorService{
		config:      cfg,
		provider:    provider,
		tabsService: tabsService,
		logger:      logger,
	}
}

func (s *ReactorService) Name() string {
	return NameReactor
}

func (s *ReactorService) Dependencies() []string {
	return []string{NameTabs}
}

func (s *ReactorService) Start(ctx context.Context) error {
	store, err := s.tabsService.GetStore()
	if err != nil {
		return err
	}
	coordinator, err := s.tabsService.GetCoordinator()
	if err != nil {
		return err
	}

	s.mu.Lock()
	r := reactor.New(s.provider, store, coordinator, s.logger, s.config)
	s.reactor = r
	s.mu.Unlock()

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start reactor: %w", err)
	}

	custom := store.CustomTabIDs()
	s.logger.InfoWithCount("Validating custom tabs", len(custom))
	coordinator.RequestValidate(custom, false)
	return nil
}

func (s *ReactorService) Stop(ctx context.Context) error {
	s.mu.Lock()
	r := s.reactor
	s.mu.Unlock()
	if r != nil {
		r.Stop()
	}
	return nil
}

// UpdateConfig applies new debounce windows to the running reactor
func (s *ReactorService) UpdateConfig(cfg reactor.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	if s.reactor != nil {
		s.reactor.UpdateConfig(cfg)
	}
}

func (s *ReactorService) GetReactor() (*reactor.Reactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactor == nil {
		return nil, ErrReactorNotStarted
	}
	return s.reactor, nil
}
