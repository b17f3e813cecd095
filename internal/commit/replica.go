package commit

import (
	"sort"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/database"
)

// Verdict is a replica's per-batch commit-stage outcome.
type Verdict struct {
	Root       [32]byte
	Exceptions []uint64
	Shard      crypto.Shard
}

// Replica is a replica's commit-stage request handler.
type Replica struct {
	db       *database.Database
	sk       crypto.PrivateKey
	viewHash [32]byte
}

// NewReplica builds a commit-stage handler bound to db, signing key sk,
// under view viewHash.
func NewReplica(db *database.Database, sk crypto.PrivateKey, viewHash [32]byte) *Replica {
	return &Replica{db: db, sk: sk, viewHash: viewHash}
}

// Witness signs root under the shared Witness header, attesting the
// payload batch itself is well-formed — it does not yet apply anything
// (spec.md §4.8 step 1, mirroring the prepare stage's own witness round).
func (r *Replica) Witness(root [32]byte) crypto.Shard {
	return r.sk.Sign(crypto.WitnessStatement(root))
}

// Commit applies every payload in batch this replica can resolve,
// excepting (but not aborting the batch for) any whose prepare was never
// accepted, whose dependency is still missing, or whose application leaves
// its account corrupted, then signs a CompletionStatement over the
// resulting exception set (spec.md §4.8 steps 2-4).
func (r *Replica) Commit(batch *database.CommitBatch) Verdict {
	root := batch.Root()
	var exceptions []uint64

	for _, p := range batch.Payloads() {
		if !r.prepared(p) {
			exceptions = append(exceptions, uint64(p.ID()))
			continue
		}

		var dependency account.Operation
		if entry, needed := p.Operation.Dependency(); needed {
			resolved, ok := r.resolveDependency(entry)
			if !ok {
				exceptions = append(exceptions, uint64(p.ID()))
				continue
			}
			dependency = resolved
		}

		if _, correct := r.db.Accounts.Apply(p, dependency); !correct {
			exceptions = append(exceptions, uint64(p.ID()))
		}
	}

	r.db.Commit.Install(batch)

	sort.Slice(exceptions, func(i, j int) bool { return exceptions[i] < exceptions[j] })
	stmt := crypto.CompletionStatement(r.viewHash, root, exceptions)
	return Verdict{Root: root, Exceptions: exceptions, Shard: r.sk.Sign(stmt)}
}

// Attach records completion against the batch it belongs to, so that
// later payloads depending on one of its entries can resolve (spec.md
// §4.8 step 4: the broker disseminates the collected completion
// certificate back to every replica once collection finishes).
func (r *Replica) Attach(root [32]byte, completion *database.BatchCompletion) {
	if holder, ok := r.db.Commit.Holder(root); ok {
		holder.Attach(completion)
	}
}

// prepared reports whether p matches a prepare this replica already
// accepted for its id at its height (spec.md §4.8 step 2: a payload can't
// commit without a matching accepted prepare).
func (r *Replica) prepared(p account.Payload) bool {
	rec, ok := r.db.Prepare.Lookup(p.ID())
	if !ok || rec.Equivocation() != nil {
		return false
	}
	return rec.Matches(p.Height(), account.Commitment(p.Operation))
}

// resolveDependency looks entry up among already-installed commit
// payloads, returning its operation if found and not itself excepted by
// its own batch's completion (a batch still awaiting its completion
// certificate cannot yet resolve as anyone's dependency).
func (r *Replica) resolveDependency(entry account.Entry) (account.Operation, bool) {
	handle, ok := r.db.Commit.Lookup(entry)
	if !ok {
		return nil, false
	}
	completion, ok := handle.Holder.Completion()
	if !ok {
		return nil, false
	}
	for _, id := range completion.Exceptions {
		if id == uint64(entry.ID) {
			return nil, false
		}
	}
	return handle.Payload().Operation, true
}
