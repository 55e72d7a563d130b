package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/logger"
)

type lifecycleLog struct {
	events []string
	mu     sync.Mutex
}

func (l *lifecycleLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

type fakeService struct {
	log      *lifecycleLog
	startErr error
	name     string
	deps     []string
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.log.add("start " + f.name)
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.log.add("stop " + f.name)
	return nil
}

func TestServiceManager_Ordering(t *testing.T) {
	log := &lifecycleLog{}
	sm := NewServiceManager(logger.NewDiscard())
	for _, svc := range []*fakeService{
		{name: NameReactor, deps: []string{NameTabs}},
		{name: NameTabs, deps: []string{NameStorage, NameStats}},
		{name: NameStorage},
		{name: NameStats},
	} {
		svc.log = log
		require.NoError(t, sm.Register(svc))
	}

	require.NoError(t, sm.Start(context.Background()))
	require.NoError(t, sm.Stop(context.Background()))

	assert.Equal(t, []string{
		"start stats", "start storage", "start tabs", "start reactor",
		"stop reactor", "stop tabs", "stop storage", "stop stats",
	}, log.events)
}

func TestServiceManager_FailedStartStopsStarted(t *testing.T) {
	log := &lifecycleLog{}
	sm := NewServiceManager(logger.NewDiscard())
	require.NoError(t, sm.Register(&fakeService{name: "a", log: log}))
	require.NoError(t, sm.Register(&fakeService{name: "b", deps: []string{"a"}, log: log}))
	require.NoError(t, sm.Register(&fakeService{name: "c", deps: []string{"b"}, log: log, startErr: errors.New("boom")}))

	err := sm.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log.events)
}

func TestServiceManager_DependencyErrors(t *testing.T) {
	tests := []struct {
		name     string
		services []*fakeService
		want     string
	}{
		{
			name:     "missing dependency",
			services: []*fakeService{{name: "a", deps: []string{"ghost"}}},
			want:     "unregistered ghost",
		},
		{
			name:     "cycle",
			services: []*fakeService{{name: "a", deps: []string{"b"}}, {name: "b", deps: []string{"a"}}},
			want:     "circular dependency",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewServiceManager(logger.NewDiscard())
			for _, svc := range tt.services {
				svc.log = &lifecycleLog{}
				require.NoError(t, sm.Register(svc))
			}
			err := sm.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServiceManager_DuplicateRegistration(t *testing.T) {
	sm := NewServiceManager(logger.NewDiscard())
	require.NoError(t, sm.Register(&fakeService{name: "a"}))
	assert.Error(t, sm.Register(&fakeService{name: "a"}))

	_, ok := sm.Get("a")
	assert.True(t, ok)
}

func TestServiceRegistry_TypedAccess(t *testing.T) {
	r := NewServiceRegistry()
	r.Register(NameStats, NewStatsService(config.MetricsConfig{Enabled: true}, logger.NewDiscard()))
	r.Register(NameStorage, &fakeService{name: NameStorage})

	stats, err := r.GetStats()
	require.NoError(t, err)
	_, err = stats.GetCollector()
	assert.ErrorIs(t, err, ErrStatsNotStarted)

	_, err = r.GetStorage()
	assert.ErrorContains(t, err, "unexpected type")

	_, err = r.GetTabs()
	assert.ErrorContains(t, err, "not found")
}
