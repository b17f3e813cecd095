package prepare

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

// errExceptionMismatch is returned internally when a replica's reported
// exception set for a BatchCommit round disagrees with the lead
// replica's — such a replica is simply excluded from the commit
// certificate rather than failing the whole round (mirrors
// internal/commit's identical simplification for BatchCompletion).
var errExceptionMismatch = errors.New("prepare: replica exception set disagrees with canonical set")

// EndorseFunc asks replica identity to endorse batch, returning its
// Verdict. internal/node's Broker supplies the transport-backed implementation;
// this package only drives the sponge/batch/collect pipeline.
type EndorseFunc func(ctx context.Context, identity crypto.Identity, batch *database.PrepareBatch) (Verdict, error)

// WitnessFunc asks replica identity for its authoritative witness shard
// over root, issued once the broker already holds a plurality of
// reduction shards for it (spec.md §4.7 step 5).
type WitnessFunc func(ctx context.Context, identity crypto.Identity, root [32]byte) (crypto.Shard, error)

// CommitFunc asks replica identity to apply an already-witnessed batch to
// its prepare ledger, returning its CommitVerdict (spec.md §4.7 step 6).
type CommitFunc func(ctx context.Context, identity crypto.Identity, batch *database.PrepareBatch) (CommitVerdict, error)

type submission struct {
	prepare account.Prepare
	result  chan submissionResult
}

type submissionResult struct {
	extract account.Extract
	err     error
}

// Broker drives the broker-side prepare pipeline: clients submit
// operations, Run's flush loop batches them through a sponge, and each
// batch is endorsed and witnessed by a plurality of replicas, then
// applied and committed by a quorum of replicas, before its prepares are
// handed back as certified Extracts.
type Broker struct {
	view    *view.View
	board   *ping.Board
	sponge  *sponge.Sponge[submission]
	endorse EndorseFunc
	witness WitnessFunc
	commit  CommitFunc

	collectSettings broker.CollectSettings
}

// NewBroker constructs a broker-side prepare pipeline.
func NewBroker(v *view.View, board *ping.Board, endorse EndorseFunc, witness WitnessFunc, commit CommitFunc, settings Settings) *Broker {
	return &Broker{
		view:            v,
		board:           board,
		sponge:          sponge.New[submission](sponge.Settings{Capacity: settings.SpongeCapacity, Timeout: settings.SpongeTimeout}),
		endorse:         endorse,
		witness:         witness,
		commit:          commit,
		collectSettings: broker.DefaultCollectSettings(),
	}
}

// Submit enqueues (id, height, op) and blocks until its batch is either
// certified or the submission fails.
func (b *Broker) Submit(ctx context.Context, id account.ID, height uint64, op account.Operation) (account.Extract, error) {
	prepare := account.Prepare{ID: id, Height: height, Commitment: account.Commitment(op)}
	result := make(chan submissionResult, 1)
	b.sponge.Push(submission{prepare: prepare, result: result})

	select {
	case r := <-result:
		return r.extract, r.err
	case <-ctx.Done():
		return account.Extract{}, ctx.Err()
	}
}

// Run drains the sponge until ctx is canceled, processing one batch per
// flush. Intended to be run on its own goroutine for the broker's lifetime.
func (b *Broker) Run(ctx context.Context) {
	for {
		items, err := b.sponge.Flush(ctx)
		if err != nil {
			return
		}
		b.processBatch(ctx, items)
	}
}

func (b *Broker) processBatch(ctx context.Context, items []submission) {
	sort.Slice(items, func(i, j int) bool { return items[i].prepare.Entry().Less(items[j].prepare.Entry()) })
	prepares := make([]account.Prepare, len(items))
	for i, it := range items {
		prepares[i] = it.prepare
	}

	batch, err := database.NewPrepareBatch(prepares, nil)
	if err != nil {
		fail(items, err)
		return
	}

	root := batch.Root()

	reduce := func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error) {
		verdict, err := b.endorse(ctx, identity, batch)
		if err != nil {
			return nil, err
		}
		return verdict.Shard, nil
	}
	if _, err := broker.CollectCertificate(ctx, b.view, b.board, crypto.ReductionStatement(root), crypto.ThresholdPlurality, reduce, b.collectSettings); err != nil {
		fail(items, err)
		return
	}

	witness := func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error) {
		return b.witness(ctx, identity, root)
	}
	cert, err := broker.CollectCertificate(ctx, b.view, b.board, crypto.WitnessStatement(root), crypto.ThresholdPlurality, witness, b.collectSettings)
	if err != nil {
		fail(items, err)
		return
	}
	batch.Witness = cert

	rankings := b.board.Rankings()
	if len(rankings) == 0 {
		fail(items, broker.ErrInsufficientReplicas)
		return
	}
	lead, err := b.commit(ctx, rankings[0], batch)
	if err != nil {
		fail(items, err)
		return
	}
	exceptions := lead.Exceptions

	commitReq := func(ctx context.Context, identity crypto.Identity) (crypto.Shard, error) {
		verdict, err := b.commit(ctx, identity, batch)
		if err != nil {
			return nil, err
		}
		if !sameExceptions(verdict.Exceptions, exceptions) {
			return nil, errExceptionMismatch
		}
		return verdict.Shard, nil
	}
	stmt := crypto.CommitStatement(b.view.Hash(), root, exceptions)
	commitCert, err := broker.CollectCertificate(ctx, b.view, b.board, stmt, crypto.ThresholdQuorum, commitReq, b.collectSettings)
	if err != nil {
		fail(items, err)
		return
	}
	batch.Commit = &database.BatchCommit{Certificate: commitCert, Exceptions: exceptions}

	for i, it := range items {
		extract, err := batch.Extract(i)
		it.result <- submissionResult{extract: extract, err: err}
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

func fail(items []submission, err error) {
	for _, it := range items {
		it.result <- submissionResult{err: err}
	}
}
