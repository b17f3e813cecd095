package commit

import (
	"context"
	"errors"
	"sort"

	"carbon/internal/account"
	"carbon/internal/broker"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/ping"
	"carbon/internal/sponge"
	"carbon/internal/view"
)

// ErrExceptionMismatch is returned internally when a replica's reported
// exception set disagrees with the one the broker already committed to
// signing — such a replica is simply excluded from the completion
// certificate rather than failing the whole round.
var ErrExceptionMismatch = errors.New("commit: replica exception set disagrees with canonical set")

// WitnessFunc asks replica identity for its witness shard over a
// not-yet-applied payload batch's root.
type WitnessFunc func(ctx context.Context, identity crypto.Identity, root [32]byte) (crypto.Shard, error)

// CommitFunc asks replica identity to apply batch, returning its Verdict.
type CommitFunc func(ctx context.Context, identity crypto.Identity, batch *database.CommitBatch) (Verdict, error)

// AttachFunc disseminates a collected completion back to replica
// identity, so it can resolve later dependencies against this batch.
type AttachFunc func(ctx context.Context, identity crypto.Identity, root [32]byte, completion *database.BatchCompletion)

type submission struct {
	payload account.Payload
	result  chan submissionResult
}

type submissionResult struct {
	completion Completion
	err        error
}

// Broker drives the broker-side commit pipeline: clients submit payloads,
// Run's flush loop batches them through a sponge (sorted and deduplicated
// by account id), and each batch is witnessed, applied and completed by
// the replica set before its payloads are handed back as Completions.
type Broker struct {
	view    *view.View
	board   *ping.Board
	witness WitnessFunc
	commit  CommitFunc
	attach  AttachFunc
	sponge  *sponge.Sponge[submission]

	collectSettings broker.CollectSettings
}

// NewBroker constructs a broker-side commit pipeline.
func NewBroker(v *view.View, board *ping.Board, witness WitnessFunc, commit CommitFunc, attach AttachFunc, settings Settings) *Broker {
	return &Broker{
		view:            v,
		board:           board,
		witness:         witness,
		commit:          commit,
		attach:          attach,
		sponge:          sponge.New[submission](sponge.Settings{Capacity: settings.SpongeCapacity, Timeout: settings.SpongeTimeout}),
		collectSettings: broker.DefaultCollectSettings(),
	}
}

// Submit enqueues payload and blocks until its batch reaches a
// completion (successful or excepted) or fails outright.
func (b *Broker) Submit(ctx context.Context, id account.ID, height uint64, op account.Operation) (Completion, error) {
	result := make(chan submissionResult, 1)
	b.sponge.Push(submission{payload: account.Payload{Entry: account.Entry{ID: id, Height: height}, Operation: op}, result: result})

	select {
	case r := <-result:
		return r.completion, r.err
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	}
}

// Run drains the sponge until ctx is canceled, processing one batch per
// flush.
func (b *Broker) Run(ctx context.Context) {
	for {
		items, err := b.sponge.Flush(ctx)
		if err != nil {
			return
		}
		b.processBatch(ctx, items)
	}
}

// dedupe keeps only the first submission for each account id, per
// spec.md §4.8's batch-wide exception set being keyed by id rather than
// by entry.
func dedupe(items []submission) []submission {
	seen := make(map[account.ID]bool, len(items))
	out := make([]submission, 0, len(items))
	for _, it := range items {
		if seen[it.payload.ID()] {
			continue
		}
		seen[it.payload.ID()] = true
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].payload.Entry.Less(out[j].payload.Entry) })
	return out
}

func (b *Broker) processBatch(ctx context.Context, items []submission) {
	ordered := dedupe(items)
	resultFor := make(map[account.ID][]chan submissionResult, len(ordered))
	for _, it := range ordered {
		resultFor[it.payload.ID()] = []chan submissionResult{it.result}
	}
	for _, it := range items {
		if resultFor[it.payload.ID()][0] != it.result {
			it.result <- submissionResult{err: &broker.Failure{Kind: broker.FailureThrottle}}
		}
	}

	payloads := make([]account.Payload, len(ordered))
	for i, it := range ordered {
		payloads[i] = it.payload
	}

	batch, err := database.NewCommitBatch(payloads, nil)
	if err != nil {
		failAll(resultFor, err)
		return
	}
	root := batch.Root()

	witnessReq := func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error) {
		return b.witness(ctx, identity, root)
	}
	witnessCert, err := broker.CollectCertificate(ctx, b.view, b.board, crypto.WitnessStatement(root), crypto.ThresholdPlurality, witnessReq, b.collectSettings)
	if err != nil {
		failAll(resultFor, err)
		return
	}
	batch.Witness = witnessCert

	rankings := b.board.Rankings()
	if len(rankings) == 0 {
		failAll(resultFor, broker.ErrInsufficientReplicas)
		return
	}
	lead, err := b.commit(ctx, rankings[0], batch)
	if err != nil {
		failAll(resultFor, err)
		return
	}
	exceptions := lead.Exceptions

	commitReq := func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error) {
		verdict, err := b.commit(ctx, identity, batch)
		if err != nil {
			return nil, err
		}
		if !sameExceptions(verdict.Exceptions, exceptions) {
			return nil, ErrExceptionMismatch
		}
		return verdict.Shard, nil
	}
	stmt := crypto.CompletionStatement(b.view.Hash(), root, exceptions)
	completionCert, err := broker.CollectCertificate(ctx, b.view, b.board, stmt, crypto.ThresholdQuorum, commitReq, b.collectSettings)
	if err != nil {
		failAll(resultFor, err)
		return
	}

	completion := &database.BatchCompletion{Certificate: completionCert, Exceptions: exceptions}
	for _, m := range b.view.Members() {
		b.attach(ctx, m.Identity, root, completion)
	}

	for i, it := range ordered {
		proof, err := batch.Vector.Prove(i)
		var r submissionResult
		if err != nil {
			r = submissionResult{err: err}
		} else {
			r = submissionResult{completion: Completion{Payload: it.payload, Proof: proof, Completion: completion}}
		}
		for _, ch := range resultFor[it.payload.ID()] {
			ch <- r
		}
	}
}

func sameExceptions(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func failAll(resultFor map[account.ID][]chan submissionResult, err error) {
	for _, chans := range resultFor {
		for _, ch := range chans {
			ch <- submissionResult{err: err}
		}
	}
}
