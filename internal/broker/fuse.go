// Package broker implements the C9 orchestrator: the broadcast-and-collect
// loop the prepare and commit stages both run against their replica set,
// the ping-board-driven fastest-plurality optimization, and the Fuse task
// group spec.md §5 calls for. Grounded on
// original_source/src/brokers/prepare/broker/orchestrate.rs's per-replica
// submit tasks and talk::sync::fuse::Fuse, translated to context.Context +
// sync.WaitGroup per spec.md §5's mapping.
package broker

import (
	"context"
	"sync"
)

// Fuse is a scoped task group: Close cancels every goroutine spawned
// through it and waits for them to return.
type Fuse struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFuse derives a cancelable child of parent.
func NewFuse(parent context.Context) *Fuse {
	ctx, cancel := context.WithCancel(parent)
	return &Fuse{ctx: ctx, cancel: cancel}
}

// Spawn runs fn on its own goroutine, passing the fuse's context.
func (f *Fuse) Spawn(fn func(ctx context.Context)) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn(f.ctx)
	}()
}

// Close cancels the fuse's context and blocks until every spawned
// goroutine has returned.
func (f *Fuse) Close() {
	f.cancel()
	f.wg.Wait()
}
