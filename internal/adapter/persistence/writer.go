package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/thushan/tabkeeper/internal/core/domain"
	"github.com/thushan/tabkeeper/internal/core/ports"
	"github.com/thushan/tabkeeper/internal/logger"
	"github.com/thushan/tabkeeper/internal/util"
)

const (
	DefaultWriteTimeout  = 5 * time.Second
	DefaultWriteAttempts = 3
	DefaultRetryDelay    = 100 * time.Millisecond

	maxRetryDelay = 2 * time.Second
)

// Writer persists tab dictionaries from a single goroutine. Only the latest
// pending dictionary is written; SaveTabs never blocks on storage.
type Writer struct {
	persistence ports.Persistence
	log         logger.StyledLogger
	pending     domain.TabSettingsDictionary
	signal      chan struct{}
	done        chan struct{}
	timeout     time.Duration
	retryDelay  time.Duration
	mu          sync.Mutex
	closeOnce   sync.Once
	closed      bool
	writes      int64
}

func NewWriter(p ports.Persistence, log logger.StyledLogger) *Writer {
	return newWriter(p, log, DefaultRetryDelay)
}

func newWriter(p ports.Persistence, log logger.StyledLogger, retryDelay time.Duration) *Writer {
	w := &Writer{
		persistence: p,
		log:         log,
		signal:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		timeout:     DefaultWriteTimeout,
		retryDelay:  retryDelay,
	}
	go w.run()
	return w
}

// SaveTabs queues a copy of the dictionary, replacing any unwritten one
func (w *Writer) SaveTabs(tabs domain.TabSettingsDictionary) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("Dropping tab save after writer closed", "tabs", len(tabs))
		return
	}
	w.pending = tabs.Clone()

	select {
	case w.signal <- struct{}{}:
	default:
		// a write is already signalled and will pick up the latest dictionary
	}
	w.mu.Unlock()
}

// Writes returns the number of dictionaries written so far
func (w *Writer) Writes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Close writes whatever is pending and stops the writer
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.signal)
		w.mu.Unlock()
		<-w.done
	})
}

func (w *Writer) run() {
	defer close(w.done)
	for range w.signal {
		w.flush()
	}
	w.flush()
}

// flush writes the pending dictionary, retrying failed writes with backoff
// until they succeed, the attempts run out or a newer dictionary is queued
func (w *Writer) flush() {
	w.mu.Lock()
	tabs := w.pending
	w.pending = nil
	w.mu.Unlock()

	if tabs == nil {
		return
	}

	for attempt := 1; ; attempt++ {
		err := w.write(tabs)
		if err == nil {
			break
		}
		if attempt >= DefaultWriteAttempts || w.superseded() {
			w.log.Error("Failed to persist tabs", "error", err, "tabs", len(tabs), "attempts", attempt)
			return
		}
		delay := util.CalculateExponentialBackoff(attempt, w.retryDelay, maxRetryDelay, 0.2)
		w.log.Warn("Retrying tab save", "error", err, "attempt", attempt, "delay", delay)
		time.Sleep(delay)
	}

	w.mu.Lock()
	w.writes++
	w.mu.Unlock()
	w.log.Debug("Persisted tabs", "tabs", len(tabs))
}

func (w *Writer) write(tabs domain.TabSettingsDictionary) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.persistence.SetTabs(ctx, tabs)
}

func (w *Writer) superseded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}
