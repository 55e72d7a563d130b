package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/thushan/tabkeeper/internal/logger"
)

// ManagedService is one component with a start/stop lifecycle. Services name
// the services they need so the manager can order them.
type ManagedService interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Dependencies() []string
}

// ServiceManager starts services after their dependencies and stops them
// in reverse. A failed start stops whatever had already started.
type ServiceManager struct {
	services   map[string]ManagedService
	registry   *ServiceRegistry
	logger     logger.StyledLogger
	startOrder []string
	mu         sync.RWMutex
}

func NewServiceManager(logger logger.StyledLogger) *ServiceManager {
	return &ServiceManager{
		services: make(map[string]ManagedService),
		registry: NewServiceRegistry(),
		logger:   logger,
	}
}

func (sm *ServiceManager) Register(service ManagedService) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := service.Name()
	if _, exists := sm.services[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}

	sm.services[name] = service
	sm.registry.Register(name, service)
	sm.logger.Debug("Service registered", "name", name)
	return nil
}

// resolveDependencies orders services with Kahn's algorithm. Names are
// sorted at each step so the order is stable between runs.
func (sm *ServiceManager) resolveDependencies() ([]string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	inDegree := make(map[string]int, len(sm.services))
	dependants := make(map[string][]string, len(sm.services))
	for name, service := range sm.services {
		deps := service.Dependencies()
		for _, dep := range deps {
			if _, exists := sm.services[dep]; !exists {
				return nil, fmt.Errorf("service %s depends on unregistered %s", name, dep)
			}
			dependants[dep] = append(dependants[dep], name)
		}
		inDegree[name] = len(deps)
	}

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(sm.services))
	for len(ready) > 0 {
		slices.Sort(ready)
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, next := range dependants[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(sm.services) {
		return nil, fmt.Errorf("circular dependency detected")
	}
	return order, nil
}

func (sm *ServiceManager) Start(ctx context.Context) error {
	order, err := sm.resolveDependencies()
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	sm.mu.Lock()
	sm.startOrder = order
	sm.mu.Unlock()

	started := make([]string, 0, len(order))
	for _, name := range order {
		service := sm.services[name]
		sm.logger.Debug("Starting service", "name", name, "dependencies", service.Dependencies())

		if err := service.Start(ctx); err != nil {
			sm.logger.Error("Failed to start service", "name", name, "error", err)
			slices.Reverse(started)
			_ = sm.stopServices(ctx, started)
			return fmt.Errorf("failed to start service %s: %w", name, err)
		}
		started = append(started, name)
	}

	sm.logger.Debug("All services started", "count", len(order))
	return nil
}

// Stop stops every started service, dependants first. The first error is
// returned but every service is still asked to stop.
func (sm *ServiceManager) Stop(ctx context.Context) error {
	sm.mu.Lock()
	order := slices.Clone(sm.startOrder)
	sm.startOrder = nil
	sm.mu.Unlock()

	slices.Reverse(order)
	return sm.stopServices(ctx, order)
}

func (sm *ServiceManager) stopServices(ctx context.Context, names []string) error {
	var firstErr error
	for _, name := range names {
		service, exists := sm.services[name]
		if !exists {
			continue
		}
		if err := service.Stop(ctx); err != nil {
			sm.logger.Error("Failed to stop service", "name", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sm.logger.Debug("Service stopped", "name", name)
	}
	return firstErr
}

func (sm *ServiceManager) Get(name string) (ManagedService, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	service, exists := sm.services[name]
	return service, exists
}

func (sm *ServiceManager) GetRegistry() *ServiceRegistry {
	return sm.registry
}
