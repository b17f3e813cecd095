// Package ping implements the rolling per-replica latency board (spec.md
// §4.4) the broker orchestrator uses to pick its fastest-plurality
// submission set. Grounded on
// original_source/src/data/ping_board.rs (also duplicated, in the
// original, at src/brokers/prepare/ping_board.rs — this package merges the
// two since they were identical).
package ping

import (
	"sort"
	"sync"
	"time"

	"carbon/internal/crypto"
)

// maxDuration stands in for Rust's Duration::MAX: an identity with no
// successful ping ever ranks last.
const maxDuration = time.Duration(1<<63 - 1)

// Board is a shared mapping from replica identity to last measured
// round-trip duration.
type Board struct {
	mu    sync.Mutex
	pings map[crypto.Identity]time.Duration
}

// New initializes a board with every member of members set to maxDuration.
func New(members []crypto.Member) *Board {
	b := &Board{pings: make(map[crypto.Identity]time.Duration, len(members))}
	for _, m := range members {
		b.pings[m.Identity] = maxDuration
	}
	return b
}

// Submit overwrites the last measured duration for replica.
func (b *Board) Submit(replica crypto.Identity, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pings[replica] = d
}

// Fail records a failed probe: the replica ranks worst until its next
// successful ping.
func (b *Board) Fail(replica crypto.Identity) {
	b.Submit(replica, maxDuration)
}

// Rankings returns replica identities sorted ascending by duration.
func (b *Board) Rankings() []crypto.Identity {
	b.mu.Lock()
	defer b.mu.Unlock()

	type entry struct {
		id crypto.Identity
		d  time.Duration
	}
	entries := make([]entry, 0, len(b.pings))
	for id, d := range b.pings {
		entries = append(entries, entry{id, d})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].d < entries[j].d })

	out := make([]crypto.Identity, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}
