package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thushan/tabkeeper/internal/adapter/persistence"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/logger"
)

var ErrStorageNotStarted = errors.New("storage not initialised")

// StorageService opens the key-value backend and the single writer that
// serialises tab saves onto it
type StorageService struct {
	config  config.StorageConfig
	logger  logger.StyledLogger
	backend persistence.Backend
	store   *persistence.Store
	writer  *persistence.Writer
}

func NewStorageService(cfg config.StorageConfig, logger logger.StyledLogger) *StorageService {
	return &StorageService{
		config: cfg,
		logger: logger,
	}
}

// NewStorageServiceWithBackend uses an already opened backend, the CLI
// uses it for dry runs over a copy of the data
func NewStorageServiceWithBackend(backend persistence.Backend, logger logger.StyledLogger) *StorageService {
	return &StorageService{
		backend: backend,
		logger:  logger,
	}
}

func (s *StorageService) Name() string {
	return NameStorage
}

func (s *StorageService) Start(ctx context.Context) error {
	if s.backend == nil {
		backend, err := persistence.OpenBadger(persistence.BadgerConfig{
			Logger:         s.logger.GetUnderlying(),
			Path:           s.config.Path,
			GCInterval:     s.config.GCInterval,
			GCDiscardRatio: s.config.GCDiscardRatio,
			InMemory:       s.config.InMemory,
			SyncWrites:     s.config.SyncWrites,
		})
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		s.backend = backend
		s.logger.Info("Storage opened", "path", s.config.Path, "in_memory", s.config.InMemory)
	}

	s.store = persistence.NewStore(s.backend)
	s.writer = persistence.NewWriter(s.store, s.logger)
	return nil
}

// Stop flushes the pending save before closing the backend
func (s *StorageService) Stop(ctx context.Context) error {
	if s.writer != nil {
		s.writer.Close()
		s.logger.Debug("Tab writer flushed", "writes", s.writer.Writes())
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}

func (s *StorageService) Dependencies() []string {
	return nil
}

func (s *StorageService) GetStore() (*persistence.Store, error) {
	if s.store == nil {
		return nil, ErrStorageNotStarted
	}
	return s.store, nil
}

func (s *StorageService) GetWriter() (*persistence.Writer, error) {
	if s.writer == nil {
		return nil, ErrStorageNotStarted
	}
	return s.writer, nil
}
