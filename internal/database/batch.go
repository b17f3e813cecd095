// Package database is a replica's in-memory ledger: account state, the
// signup allocation book, and the prepare/commit batch holders that back
// equivocation detection and completion attachment. Grounded on
// original_source/src/database/* (database.rs, signup.rs,
// prepare/{batch_holder,state,prepare_handle}.rs,
// commit/{batch_holder,commit}.rs), adapted from zebra's persistent
// Family/Collection/Table storage to plain Go maps behind one mutex — this
// module does not attempt the original's incremental-hashing persistent
// data structures, which have no analogue among the example repos; a
// single-lock in-memory map is the idiomatic Go substitute the teacher's
// own in-process stores (e.g. its ledger caches) use.
package database

import (
	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/merkle"
)

// PrepareBatch is a witnessed, Merkle-committed sequence of Prepares —
// the unit a replica's prepare pipeline produces and the commit pipeline
// later consumes as dependency evidence. Commit is filled in once a
// quorum of replicas has applied the witnessed batch to their prepare
// ledgers (spec.md §4.7 step 6); it is nil while only Witness (a
// plurality) has been collected.
type PrepareBatch struct {
	Vector  *merkle.Vector[account.Prepare]
	Witness *crypto.Certificate
	Commit  *BatchCommit
}

// BatchCommit is the quorum certificate and exception set a prepare
// pipeline attaches to a PrepareBatch once a quorum of replicas have
// applied it to their prepare ledgers. spec.md's BatchCommit groups
// shards by distinct exception set, one certificate per group; this
// implementation keeps the single-group simplification already used for
// BatchCompletion below (see DESIGN.md).
type BatchCommit struct {
	Certificate *crypto.Certificate
	Exceptions  []uint64
}

// NewPrepareBatch commits prepares in the given order.
func NewPrepareBatch(prepares []account.Prepare, witness *crypto.Certificate) (*PrepareBatch, error) {
	vec, err := merkle.New(prepares, account.Prepare.Bytes)
	if err != nil {
		return nil, err
	}
	return &PrepareBatch{Vector: vec, Witness: witness}, nil
}

func (b *PrepareBatch) Root() [32]byte          { return b.Vector.Root() }
func (b *PrepareBatch) Prepares() []account.Prepare { return b.Vector.Items() }

// Extract builds the Extract evidence for the prepare at index i.
func (b *PrepareBatch) Extract(i int) (account.Extract, error) {
	proof, err := b.Vector.Prove(i)
	if err != nil {
		return account.Extract{}, err
	}
	return account.Extract{Prepare: b.Vector.Item(i), Witness: b.Witness, Proof: proof}, nil
}

// CommitBatch is a witnessed, Merkle-committed sequence of Payloads — the
// unit a broker submits to the commit stage.
type CommitBatch struct {
	Vector  *merkle.Vector[account.Payload]
	Witness *crypto.Certificate
}

// NewCommitBatch commits payloads in the given (sorted, deduplicated) order.
func NewCommitBatch(payloads []account.Payload, witness *crypto.Certificate) (*CommitBatch, error) {
	vec, err := merkle.New(payloads, account.Payload.Bytes)
	if err != nil {
		return nil, err
	}
	return &CommitBatch{Vector: vec, Witness: witness}, nil
}

func (b *CommitBatch) Root() [32]byte           { return b.Vector.Root() }
func (b *CommitBatch) Payloads() []account.Payload { return b.Vector.Items() }

// BatchCompletion is the quorum certificate and exception set a commit
// pipeline attaches to a CommitBatch once it finishes applying it.
type BatchCompletion struct {
	Certificate *crypto.Certificate
	Exceptions  []uint64
}
