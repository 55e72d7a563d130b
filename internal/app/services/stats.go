package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thushan/tabkeeper/internal/adapter/stats"
	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/logger"
)

var ErrStatsNotStarted = errors.New("stats collector not initialised")

// StatsService owns the collector every other service reports to. With
// metrics disabled the collector still works but its registry is private.
type StatsService struct {
	config    config.MetricsConfig
	collector *stats.Collector
	registry  *prometheus.Registry
	logger    logger.StyledLogger
}

func NewStatsService(cfg config.MetricsConfig, logger logger.StyledLogger) *StatsService {
	return &StatsService{
		config: cfg,
		logger: logger,
	}
}

func (s *StatsService) Name() string {
	return NameStats
}

func (s *StatsService) Start(ctx context.Context) error {
	s.registry = prometheus.NewRegistry()
	s.collector = stats.NewCollector(s.logger, s.registry)
	s.logger.Debug("Stats collector initialised", "metrics", s.config.Enabled)
	return nil
}

func (s *StatsService) Stop(ctx context.Context) error {
	return nil
}

func (s *StatsService) Dependencies() []string {
	return nil
}

func (s *StatsService) GetCollector() (*stats.Collector, error) {
	if s.collector == nil {
		return nil, ErrStatsNotStarted
	}
	return s.collector, nil
}

// Registry returns the prometheus registry, nil when metrics are disabled
func (s *StatsService) Registry() *prometheus.Registry {
	if !s.config.Enabled {
		return nil
	}
	return s.registry
}
