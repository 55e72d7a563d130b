package eventbus

/*
 * EventBus - lock-free, topic keyed pub/sub for Go
 *
 * Subscribers register for one topic and only receive events published to
 * it. Delivery never blocks the publisher: a full subscriber buffer drops the
 * event and counts it.
 */
import (
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// EventBus fans events out to the subscribers of a topic
type EventBus[K comparable, T any] struct {
	subscribers   *xsync.Map[string, *subscriber[K, T]]
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	isShutdown    atomic.Bool
	subscriberSeq atomic.Uint64
	published     atomic.Uint64
	bufferSize    int
}

type subscriber[K comparable, T any] struct {
	topic      K
	ch         chan T
	id         string
	lastActive atomic.Int64
	dropped    atomic.Uint64
	isActive   atomic.Bool
	// mu orders sends against close so Publish never hits a closed channel
	mu sync.RWMutex
}

// EventBusConfig allows customisation of buffer sizes and cleanup behaviour
type EventBusConfig struct {
	BufferSize      int
	CleanupPeriod   time.Duration
	InactiveTimeout time.Duration
}

// DefaultConfig keeps idle subscribers forever; a grouping may not change for hours
var DefaultConfig = EventBusConfig{
	BufferSize:    32,
	CleanupPeriod: 0,
}

func New[K comparable, T any]() *EventBus[K, T] {
	return NewWithConfig[K, T](DefaultConfig)
}

func NewWithConfig[K comparable, T any](config EventBusConfig) *EventBus[K, T] {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig.BufferSize
	}
	eb := &EventBus[K, T]{
		subscribers: xsync.NewMap[string, *subscriber[K, T]](),
		bufferSize:  config.BufferSize,
		stopCleanup: make(chan struct{}),
	}

	if config.CleanupPeriod > 0 {
		eb.cleanupTicker = time.NewTicker(config.CleanupPeriod)
		go eb.cleanupLoop(config.InactiveTimeout)
	}

	return eb
}

// Subscribe returns a channel receiving the topic's events and a cleanup
// function. The channel is closed on cleanup, ctx cancellation or Shutdown.
func (eb *EventBus[K, T]) Subscribe(ctx context.Context, topic K) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	id := eb.generateSubscriberID()
	sub := &subscriber[K, T]{
		id:    id,
		topic: topic,
		ch:    make(chan T, eb.bufferSize),
	}
	sub.lastActive.Store(time.Now().UnixNano())
	sub.isActive.Store(true)

	eb.subscribers.Store(id, sub)

	go func() {
		<-ctx.Done()
		eb.unsubscribe(id)
	}()

	return sub.ch, func() { eb.unsubscribe(id) }
}

// Publish delivers the event to every active subscriber of the topic and
// returns how many received it
func (eb *EventBus[K, T]) Publish(topic K, event T) int {
	if eb.isShutdown.Load() {
		return 0
	}
	eb.published.Add(1)

	delivered := 0
	now := time.Now().UnixNano()

	eb.subscribers.Range(func(id string, sub *subscriber[K, T]) bool {
		if sub.topic != topic {
			return true
		}

		sub.mu.RLock()
		defer sub.mu.RUnlock()
		if !sub.isActive.Load() {
			return true
		}

		select {
		case sub.ch <- event:
			sub.lastActive.Store(now)
			delivered++
		default:
			sub.dropped.Add(1)
		}
		return true
	})

	return delivered
}

// Shutdown closes every subscriber channel and rejects further use
func (eb *EventBus[K, T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}

	if eb.cleanupTicker != nil {
		eb.cleanupTicker.Stop()
		close(eb.stopCleanup)
	}

	eb.subscribers.Range(func(id string, sub *subscriber[K, T]) bool {
		eb.unsubscribe(id)
		return true
	})
}

// TopicSubscribers returns the number of active subscribers of a topic
func (eb *EventBus[K, T]) TopicSubscribers(topic K) int {
	n := 0
	eb.subscribers.Range(func(_ string, sub *subscriber[K, T]) bool {
		if sub.topic == topic && sub.isActive.Load() {
			n++
		}
		return true
	})
	return n
}

// Stats returns overall event bus statistics
func (eb *EventBus[K, T]) Stats() EventBusStats {
	stats := EventBusStats{
		IsShutdown: eb.isShutdown.Load(),
		Published:  eb.published.Load(),
	}
	if stats.IsShutdown {
		return stats
	}

	eb.subscribers.Range(func(id string, sub *subscriber[K, T]) bool {
		stats.TotalSubscribers++
		if sub.isActive.Load() {
			stats.ActiveSubscribers++
		}
		stats.TotalDropped += sub.dropped.Load()
		return true
	})

	return stats
}

type EventBusStats struct {
	TotalSubscribers  int
	ActiveSubscribers int
	TotalDropped      uint64
	Published         uint64
	IsShutdown        bool
}

func (eb *EventBus[K, T]) generateSubscriberID() string {
	seq := eb.subscriberSeq.Add(1)
	return "sub_" + strconv.FormatUint(seq, 10)
}

// unsubscribe removes a subscriber; LoadAndDelete makes it idempotent so the
// channel is closed exactly once
func (eb *EventBus[K, T]) unsubscribe(id string) {
	if sub, exists := eb.subscribers.LoadAndDelete(id); exists {
		sub.mu.Lock()
		sub.isActive.Store(false)
		close(sub.ch)
		sub.mu.Unlock()
	}
}

func (eb *EventBus[K, T]) cleanupLoop(inactiveTimeout time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventbus cleanupLoop panic recovered: %v", r)
		}
	}()

	for {
		select {
		case <-eb.stopCleanup:
			return
		case <-eb.cleanupTicker.C:
			eb.cleanupInactiveSubscribers(inactiveTimeout)
		}
	}
}

func (eb *EventBus[K, T]) cleanupInactiveSubscribers(timeout time.Duration) {
	cutoff := time.Now().Add(-timeout).UnixNano()
	var toRemove []string

	eb.subscribers.Range(func(id string, sub *subscriber[K, T]) bool {
		if !sub.isActive.Load() || sub.lastActive.Load() < cutoff {
			toRemove = append(toRemove, id)
		}
		return true
	})

	for _, id := range toRemove {
		eb.unsubscribe(id)
	}
}
