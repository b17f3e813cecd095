package database

import (
	"errors"
	"sync"

	"carbon/internal/account"
)

// ErrStalePrepare is returned when a prepare arrives for a height strictly
// below one a replica has already accepted for that id.
var ErrStalePrepare = errors.New("database: stale prepare height")

// PrepareHandle resolves to the Extract evidence for one accepted prepare,
// whether it lives standalone or inside a batch holder. Grounded on
// original_source/src/database/prepare/prepare_handle.rs's Batched/
// Standalone enum.
type PrepareHandle interface {
	Extract() account.Extract
}

// BatchedHandle resolves into a live PrepareBatchHolder.
type BatchedHandle struct {
	Holder *PrepareBatchHolder
	Index  int
}

func (h BatchedHandle) Extract() account.Extract { return h.Holder.Extract(h.Index) }

// StandaloneHandle wraps an already-materialized Extract (e.g. one
// received directly from a client rather than discovered inside a batch).
type StandaloneHandle struct {
	E account.Extract
}

func (h StandaloneHandle) Extract() account.Extract { return h.E }

// PrepareBatchHolder keeps a PrepareBatch alive for as long as any of its
// entries is still referenced by a live prepare record, and tracks which
// indices have been unreferenced so the holder can be garbage collected
// once every entry has been superseded or dropped (spec.md §4's
// reference-counted GC rule). Grounded on
// original_source/src/database/prepare/batch_holder.rs's BitVec references.
type PrepareBatchHolder struct {
	mu         sync.Mutex
	Batch      *PrepareBatch
	references []bool
}

// NewPrepareBatchHolder wraps batch with every entry initially referenced.
func NewPrepareBatchHolder(batch *PrepareBatch) *PrepareBatchHolder {
	refs := make([]bool, len(batch.Prepares()))
	for i := range refs {
		refs[i] = true
	}
	return &PrepareBatchHolder{Batch: batch, references: refs}
}

// Extract builds Extract evidence for index i.
func (h *PrepareBatchHolder) Extract(i int) account.Extract {
	extract, _ := h.Batch.Extract(i)
	return extract
}

// Unref drops the reference at index i and reports whether the holder has
// become fully unreferenced (and so may be collected).
func (h *PrepareBatchHolder) Unref(i int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.references[i] = false
	for _, r := range h.references {
		if r {
			return false
		}
	}
	return true
}

type prepareEntry struct {
	height     uint64
	commitment [32]byte
	handle     PrepareHandle
}

// PrepareRecord is a replica's per-id prepare state: either the most
// recently accepted consistent prepare, or a permanent equivocation.
// Grounded on original_source/src/database/prepare/state.rs's
// Consistent/Equivocated enum.
type PrepareRecord struct {
	consistent   *prepareEntry
	equivocation *account.Equivocation
}

// Equivocation reports the stored equivocation, if any.
func (r *PrepareRecord) Equivocation() *account.Equivocation { return r.equivocation }

// Height reports the consistently-recorded height, if any.
func (r *PrepareRecord) Height() (uint64, bool) {
	if r.consistent == nil {
		return 0, false
	}
	return r.consistent.height, true
}

// Matches reports whether this record's consistently-accepted entry is
// exactly (height, commitment) — the check the commit stage runs before
// applying a payload, so a payload can't be committed without a matching
// accepted prepare (spec.md §4.8 step 2).
func (r *PrepareRecord) Matches(height uint64, commitment [32]byte) bool {
	return r.consistent != nil && r.consistent.height == height && r.consistent.commitment == commitment
}

// PrepareLedger is the replica-wide map from account Id to PrepareRecord.
type PrepareLedger struct {
	mu      sync.Mutex
	records map[account.ID]*PrepareRecord
}

// NewPrepareLedger returns an empty ledger.
func NewPrepareLedger() *PrepareLedger {
	return &PrepareLedger{records: make(map[account.ID]*PrepareRecord)}
}

// Record attempts to accept a fresh prepare for id at height with
// commitment, backed by handle (whose Extract() lazily materializes the
// evidence only if needed). It returns the resulting Equivocation if this
// prepare conflicts with one already accepted at the same height, nil
// otherwise (including the case where the prepare is an exact duplicate of
// one already recorded, which is treated as stale-but-harmless).
func (l *PrepareLedger) Record(id account.ID, height uint64, commitment [32]byte, handle PrepareHandle) (*account.Equivocation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, exists := l.records[id]
	if exists && rec.equivocation != nil {
		return rec.equivocation, nil
	}

	if exists && rec.consistent != nil {
		switch {
		case height < rec.consistent.height:
			return nil, ErrStalePrepare
		case height == rec.consistent.height && rec.consistent.commitment == commitment:
			return nil, nil // duplicate delivery
		case height == rec.consistent.height:
			eq := &account.Equivocation{
				First:  rec.consistent.handle.Extract(),
				Second: handle.Extract(),
			}
			l.records[id] = &PrepareRecord{equivocation: eq}
			return eq, nil
		}
	}

	l.records[id] = &PrepareRecord{consistent: &prepareEntry{height: height, commitment: commitment, handle: handle}}
	return nil, nil
}

// Lookup returns the record for id, if any.
func (l *PrepareLedger) Lookup(id account.ID) (*PrepareRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	return rec, ok
}
