// Package sponge implements the bounded-time/bounded-size batching
// collector the broker front-end drops client Brokerages into (spec.md
// §4.5). Grounded on original_source/src/data/sponge.rs: a single-writer
// buffer, a timer armed on the first push since the last flush, and a
// notification the flusher waits on.
package sponge

import (
	"context"
	"sync"
	"time"
)

// Settings bounds a sponge's batching window.
type Settings struct {
	Capacity int
	Timeout  time.Duration
}

// Sponge is a single-drainer batching buffer. Multiple concurrent Flush
// callers are not the intended pattern (spec.md §4.5) — a single flusher
// goroutine per sponge drains it.
type Sponge[T any] struct {
	mu     sync.Mutex
	items  []T
	start  time.Time
	notify chan struct{}

	settings Settings
}

// New constructs an empty sponge with the given capacity/timeout.
func New[T any](settings Settings) *Sponge[T] {
	return &Sponge[T]{
		notify:   make(chan struct{}, 1),
		settings: settings,
	}
}

func (s *Sponge[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Push appends item. The first push since the last flush arms a timer
// that wakes the flusher after Settings.Timeout; a push that brings the
// buffer to capacity wakes it immediately.
func (s *Sponge[T]) Push(item T) {
	s.mu.Lock()
	s.items = append(s.items, item)
	first := len(s.items) == 1
	atCapacity := len(s.items) >= s.settings.Capacity
	if first {
		s.start = time.Now()
		timeout := s.settings.Timeout
		go func() {
			time.Sleep(timeout)
			s.wake()
		}()
	}
	s.mu.Unlock()

	if atCapacity {
		s.wake()
	}
}

// Flush blocks until either the buffer reaches capacity or Timeout has
// elapsed since the first push, then returns the accumulated items and
// resets the buffer. It never wakes on an empty buffer (spec.md §4.5), and
// returns early with ctx.Err() if ctx is canceled first.
func (s *Sponge[T]) Flush(ctx context.Context) ([]T, error) {
	for {
		select {
		case <-s.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		s.mu.Lock()
		if len(s.items) == 0 {
			s.mu.Unlock()
			continue
		}
		if len(s.items) >= s.settings.Capacity || time.Since(s.start) >= s.settings.Timeout {
			out := s.items
			s.items = nil
			s.mu.Unlock()
			return out, nil
		}
		s.mu.Unlock()
	}
}

// Len reports the current buffered item count (diagnostics only).
func (s *Sponge[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
