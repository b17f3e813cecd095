package prepare

import (
	"sort"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/view"
)

// Verdict is a replica's outcome from endorsing one prepare batch: a
// reduction shard over the batch root (if the replica is willing to
// endorse it at all), plus any equivocations the batch's prepares
// triggered against prior state and any entries dropped as stale.
type Verdict struct {
	Root          [32]byte
	Shard         crypto.Shard
	Equivocations []*account.Equivocation
	Stale         []account.Entry
}

// CommitVerdict is a replica's outcome from applying an already-witnessed
// batch to its prepare ledger: the sorted set of ids that equivocated or
// could not be recorded, and a shard certifying that exception set
// (spec.md §4.7 step 6).
type CommitVerdict struct {
	Root       [32]byte
	Exceptions []uint64
	Shard      crypto.Shard
}

// Replica is a replica's prepare-stage request handler.
type Replica struct {
	db   *database.Database
	sk   crypto.PrivateKey
	view *view.View
}

// NewReplica builds a prepare-stage handler bound to db and signing key sk,
// verifying witnessed batches against v before committing them.
func NewReplica(db *database.Database, sk crypto.PrivateKey, v *view.View) *Replica {
	return &Replica{db: db, sk: sk, view: v}
}

// Endorse records every prepare in batch against the replica's prepare
// ledger (spec.md §4.7 step 6: equivocation detection happens here, not at
// commit time) and, regardless of any individual equivocations found,
// signs the batch root under the shared Witness/reduction envelope — an
// equivocating id is simply excluded from that id's future commits, it
// does not invalidate the rest of the batch.
func (r *Replica) Endorse(batch *database.PrepareBatch) Verdict {
	holder := database.NewPrepareBatchHolder(batch)
	verdict := Verdict{Root: batch.Root()}

	for i, p := range batch.Prepares() {
		handle := database.BatchedHandle{Holder: holder, Index: i}
		eq, err := r.db.Prepare.Record(p.ID, p.Height, p.Commitment, handle)
		if err != nil {
			verdict.Stale = append(verdict.Stale, p.Entry())
			continue
		}
		if eq != nil {
			verdict.Equivocations = append(verdict.Equivocations, eq)
		}
	}

	verdict.Shard = r.sk.Sign(crypto.ReductionStatement(verdict.Root))
	return verdict
}

// Witness signs root under the shared Witness header once the broker has
// already collected a plurality of reduction shards over it (spec.md §4.7
// step 5): at that point the replica is attesting the batch exists and is
// plurality-endorsed, not re-validating its contents.
func (r *Replica) Witness(root [32]byte) crypto.Shard {
	return r.sk.Sign(crypto.WitnessStatement(root))
}

// Commit applies a witnessed batch to the replica's prepare ledger
// (spec.md §4.7 step 6): every prepare is recorded exactly as Endorse
// would, but only the ids that failed to record cleanly — a fresh
// equivocation, or a stale-height drop — are reported as exceptions. A
// replica that never ran Endorse over this batch still ends up with it
// fully recorded; one that already did (e.g. during the reduce round)
// simply sees the recordings replay as harmless duplicates. batch must
// already carry a witness certificate valid for this replica's view.
func (r *Replica) Commit(batch *database.PrepareBatch) CommitVerdict {
	root := batch.Root()
	if err := batch.Witness.VerifyPlurality(r.view, crypto.WitnessStatement(root)); err != nil {
		exceptions := allIds(batch)
		stmt := crypto.CommitStatement(r.view.Hash(), root, exceptions)
		return CommitVerdict{Root: root, Exceptions: exceptions, Shard: r.sk.Sign(stmt)}
	}

	holder := database.NewPrepareBatchHolder(batch)
	var exceptions []uint64

	for i, p := range batch.Prepares() {
		handle := database.BatchedHandle{Holder: holder, Index: i}
		if eq, err := r.db.Prepare.Record(p.ID, p.Height, p.Commitment, handle); err != nil || eq != nil {
			exceptions = append(exceptions, uint64(p.ID))
		}
	}
	sort.Slice(exceptions, func(i, j int) bool { return exceptions[i] < exceptions[j] })

	stmt := crypto.CommitStatement(r.view.Hash(), root, exceptions)
	return CommitVerdict{Root: root, Exceptions: exceptions, Shard: r.sk.Sign(stmt)}
}

// allIds excepts every id in batch — used when the batch's witness
// certificate itself fails to verify, since nothing in it can be trusted
// as consistently applied.
func allIds(batch *database.PrepareBatch) []uint64 {
	prepares := batch.Prepares()
	ids := make([]uint64, len(prepares))
	for i, p := range prepares {
		ids[i] = uint64(p.ID)
	}
	return ids
}
