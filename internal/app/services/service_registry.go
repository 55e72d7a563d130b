package services

import (
	"fmt"
)

const (
	NameStats   = "stats"
	NameStorage = "storage"
	NameTabs    = "tabs"
	NameReactor = "reactor"
)

// ServiceRegistry gives typed access to registered services
type ServiceRegistry struct {
	services map[string]ManagedService
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]ManagedService),
	}
}

func (r *ServiceRegistry) Register(name string, service ManagedService) {
	r.services[name] = service
}

func (r *ServiceRegistry) Get(name string) (ManagedService, error) {
	service, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}
	return service, nil
}

func (r *ServiceRegistry) GetStats() (*StatsService, error) {
	return getAs[*StatsService](r, NameStats)
}

func (r *ServiceRegistry) GetStorage() (*StorageService, error) {
	return getAs[*StorageService](r, NameStorage)
}

func (r *ServiceRegistry) GetTabs() (*TabsService, error) {
	return getAs[*TabsService](r, NameTabs)
}

func (r *ServiceRegistry) GetReactor() (*ReactorService, error) {
	return getAs[*ReactorService](r, NameReactor)
}

func getAs[T ManagedService](r *ServiceRegistry, name string) (T, error) {
	var zero T
	service, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := service.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has unexpected type %T", name, service)
	}
	return typed, nil
}
