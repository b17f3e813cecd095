package database

import (
	"sync"

	"carbon/internal/account"
)

// CommitBatchHolder keeps an installed CommitBatch alongside the
// BatchCompletion attached to it once the commit pipeline finishes.
// Grounded on original_source/src/database/commit/batch_holder.rs.
type CommitBatchHolder struct {
	mu         sync.Mutex
	Batch      *CommitBatch
	completion *BatchCompletion
}

// NewCommitBatchHolder wraps batch with no completion yet attached.
func NewCommitBatchHolder(batch *CommitBatch) *CommitBatchHolder {
	return &CommitBatchHolder{Batch: batch}
}

// Completion returns the attached completion, if any.
func (h *CommitBatchHolder) Completion() (*BatchCompletion, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.completion == nil {
		return nil, false
	}
	return h.completion, true
}

// Attach records completion as the batch's outcome.
func (h *CommitBatchHolder) Attach(completion *BatchCompletion) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completion = completion
}

// PayloadHandle locates a specific payload inside its owning batch holder.
// Grounded on original_source/src/database/commit/payload_handle.rs
// (referenced by commit/mod.rs; reconstructed here since the source file
// itself was not part of the retrieved index).
type PayloadHandle struct {
	Holder *CommitBatchHolder
	Index  int
}

// Payload resolves the handle to its underlying Payload.
func (h PayloadHandle) Payload() account.Payload {
	return h.Holder.Batch.Vector.Item(h.Index)
}

// CommitLedger is the replica-wide index of installed commit batches and
// the per-entry handle each payload resolves to, so a later dependency
// lookup (spec.md §4.8 step 2) can find the batch a payload arrived in
// without rescanning it. Grounded on
// original_source/src/database/commit/commit.rs.
type CommitLedger struct {
	mu       sync.Mutex
	batches  map[[32]byte]*CommitBatchHolder
	payloads map[account.Entry]PayloadHandle
}

// NewCommitLedger returns an empty ledger.
func NewCommitLedger() *CommitLedger {
	return &CommitLedger{
		batches:  make(map[[32]byte]*CommitBatchHolder),
		payloads: make(map[account.Entry]PayloadHandle),
	}
}

// Install registers batch (idempotently, keyed by root) and indexes each of
// its payloads by Entry, returning the holder.
func (l *CommitLedger) Install(batch *CommitBatch) *CommitBatchHolder {
	l.mu.Lock()
	defer l.mu.Unlock()

	root := batch.Root()
	if holder, ok := l.batches[root]; ok {
		return holder
	}

	holder := NewCommitBatchHolder(batch)
	l.batches[root] = holder
	for i, p := range batch.Payloads() {
		l.payloads[p.Entry] = PayloadHandle{Holder: holder, Index: i}
	}
	return holder
}

// Lookup returns the handle for a previously installed entry, if any.
func (l *CommitLedger) Lookup(entry account.Entry) (PayloadHandle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.payloads[entry]
	return h, ok
}

// Holder returns the batch holder for root, if installed.
func (l *CommitLedger) Holder(root [32]byte) (*CommitBatchHolder, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.batches[root]
	return h, ok
}
