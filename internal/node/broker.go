package node

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"carbon/internal/account"
	"carbon/internal/commit"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/ping"
	"carbon/internal/prepare"
	"carbon/internal/signup"
	"carbon/internal/transport"
	"carbon/internal/view"
	"carbon/internal/wire"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Broker drives the client-facing side of spec.md §6: it dials the
// replica set over Dialer to run the prepare and commit pipelines and the
// signup protocol, and serves clients' signup/prepare/commit requests on a
// plain transport.ClientListener.
type Broker struct {
	view    *view.View
	board   *ping.Board
	dialer  *Dialer
	signup  signup.Settings
	prepare *prepare.Broker
	commit  *commit.Broker
	log     *logrus.Entry
}

// NewBroker wires a Broker's prepare and commit stage pipelines to dialer.
func NewBroker(v *view.View, board *ping.Board, dialer *Dialer, signupSettings signup.Settings, prepareSettings prepare.Settings, commitSettings commit.Settings, log *logrus.Entry) *Broker {
	b := &Broker{view: v, board: board, dialer: dialer, signup: signupSettings, log: log}
	b.prepare = prepare.NewBroker(v, board, b.endorse, b.witness, b.commitPrepare, prepareSettings)
	b.commit = commit.NewBroker(v, board, b.witness, b.applyCommit, b.attach, commitSettings)
	return b
}

// Run drives both stage brokers' batching loops until ctx is canceled.
func (b *Broker) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { b.prepare.Run(gctx); return nil })
	group.Go(func() error { b.commit.Run(gctx); return nil })
	return group.Wait()
}

func (b *Broker) endorse(ctx context.Context, identity crypto.Identity, batch *database.PrepareBatch) (prepare.Verdict, error) {
	var resp reduceResponse
	if err := b.dialer.Call(ctx, identity, kindReduce, reduceRequest{Prepares: batch.Prepares()}, kindReduceResult, &resp); err != nil {
		return prepare.Verdict{}, err
	}
	if resp.Error != "" {
		return prepare.Verdict{}, errors.New(resp.Error)
	}
	return prepare.Verdict{Root: batch.Root(), Shard: resp.Shard}, nil
}

// witness answers both the prepare and commit WitnessFunc callback types:
// both stages sign the identical RootStatement, so one round-trip serves
// either caller.
func (b *Broker) witness(ctx context.Context, identity crypto.Identity, root [32]byte) (crypto.Shard, error) {
	var resp witnessResponse
	if err := b.dialer.Call(ctx, identity, kindWitness, witnessRequest{Root: root}, kindWitnessResult, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Shard, nil
}

// commitPrepare asks replica identity to apply the now-witnessed batch to
// its prepare ledger, answering the prepare stage's quorum commit round
// (spec.md §4.7 step 6).
func (b *Broker) commitPrepare(ctx context.Context, identity crypto.Identity, batch *database.PrepareBatch) (prepare.CommitVerdict, error) {
	var resp prepareCommitResponse
	if err := b.dialer.Call(ctx, identity, kindPrepareCommit, prepareCommitRequest{Prepares: batch.Prepares(), Witness: batch.Witness}, kindPrepareCommitResult, &resp); err != nil {
		return prepare.CommitVerdict{}, err
	}
	if resp.Error != "" {
		return prepare.CommitVerdict{}, errors.New(resp.Error)
	}
	return prepare.CommitVerdict{Root: batch.Root(), Exceptions: resp.Exceptions, Shard: resp.Shard}, nil
}

func (b *Broker) applyCommit(ctx context.Context, identity crypto.Identity, batch *database.CommitBatch) (commit.Verdict, error) {
	payloads, err := encodePayloads(batch.Payloads())
	if err != nil {
		return commit.Verdict{}, err
	}
	var resp applyResponse
	if err := b.dialer.Call(ctx, identity, kindApply, applyRequest{Payloads: payloads, Witness: batch.Witness}, kindApplyResult, &resp); err != nil {
		return commit.Verdict{}, err
	}
	if resp.Error != "" {
		return commit.Verdict{}, errors.New(resp.Error)
	}
	return commit.Verdict{Root: resp.Root, Exceptions: resp.Exceptions, Shard: resp.Shard}, nil
}

func (b *Broker) attach(ctx context.Context, identity crypto.Identity, root [32]byte, completion *database.BatchCompletion) {
	var resp attachResponse
	if err := b.dialer.Call(ctx, identity, kindAttach, attachRequest{Root: root, Completion: completion}, kindAttachResult, &resp); err != nil {
		b.log.WithError(err).WithField("replica", fmt.Sprintf("%x", identity)).Warn("attach rpc failed")
	}
}

// Signup drives the allocate -> claim -> certify-quorum protocol for an
// already-built client request (spec.md §4.6): it asks request's chosen
// assigner to allocate an id, then broadcasts the resulting claim to the
// full replica set for certification, aggregating shards into a quorum
// certificate.
func (b *Broker) Signup(ctx context.Context, request signup.IdRequest) (signup.IdAssignment, error) {
	var allocResp allocateResponse
	if err := b.dialer.Call(ctx, request.Assigner, kindAllocate, allocateRequest{Request: request}, kindAllocateResult, &allocResp); err != nil {
		return signup.IdAssignment{}, err
	}
	if allocResp.Error != "" {
		return signup.IdAssignment{}, errors.New(allocResp.Error)
	}

	claim := signup.NewIdClaim(request.Keycard, *allocResp.Allocation, request.Rogue)

	agg := crypto.NewAggregator(b.view, signup.AssignmentStatement(claim))
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	for _, m := range b.view.Members() {
		member := m
		group.Go(func() error {
			var resp certifyResponse
			if err := b.dialer.Call(gctx, member.Identity, kindCertify, certifyRequest{Request: request, Claim: claim}, kindCertifyResult, &resp); err != nil {
				return nil
			}
			if resp.Error != "" {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			_ = agg.Add(member.Identity, member.Keycard, resp.Shard)
			return nil
		})
	}
	_ = group.Wait()

	if agg.Power() < b.view.Quorum() {
		return signup.IdAssignment{}, ErrSignupQuorumNotMet
	}
	cert, err := agg.Finalize(crypto.ThresholdQuorum)
	if err != nil {
		return signup.IdAssignment{}, err
	}

	assignment := signup.NewIdAssignment(claim, *cert)
	if err := assignment.Validate(b.view); err != nil {
		return signup.IdAssignment{}, err
	}
	return assignment, nil
}

// Prepare forwards to the prepare-stage broker.
func (b *Broker) Prepare(ctx context.Context, id account.ID, height uint64, op account.Operation) (account.Extract, error) {
	return b.prepare.Submit(ctx, id, height, op)
}

// Commit forwards to the commit-stage broker.
func (b *Broker) Commit(ctx context.Context, id account.ID, height uint64, op account.Operation) (commit.Completion, error) {
	return b.commit.Submit(ctx, id, height, op)
}

// ServeClients accepts client connections on listener, handling inbound
// signup/prepare/commit envelopes one at a time per connection until the
// client disconnects.
func (b *Broker) ServeClients(listener *transport.ClientListener) error {
	return listener.Serve(func(s transport.Session) {
		defer s.Close()
		for {
			var env wire.Envelope
			if err := s.Receive(&env); err != nil {
				return
			}
			resp, err := b.dispatchClient(context.Background(), env)
			if err != nil {
				b.log.WithError(err).WithField("kind", env.Kind).Warn("client request failed")
				return
			}
			if err := s.Send(resp); err != nil {
				return
			}
		}
	})
}

// validateCommitProof checks req.Extract independently of anything the
// replica set has recorded: its prepare must match the request's own
// (id, height, commitment), its inclusion proof must reconstruct a root,
// and its witness certificate must carry a plurality of signatures over
// that root under the shared Witness header.
func (b *Broker) validateCommitProof(req wire.CommitRequest, op account.Operation) error {
	extract := req.Extract
	prepare := extract.Prepare
	if prepare.ID != req.ID || prepare.Height != req.Height || prepare.Commitment != account.Commitment(op) {
		return ErrInvalidCommitProof
	}
	if string(extract.Proof.Leaf) != string(prepare.Bytes()) {
		return ErrInvalidCommitProof
	}
	root := extract.Proof.Root()
	if extract.Witness == nil {
		return ErrInvalidCommitProof
	}
	if err := extract.Witness.VerifyPlurality(b.view, crypto.WitnessStatement(root)); err != nil {
		return ErrInvalidCommitProof
	}
	return nil
}

func (b *Broker) dispatchClient(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	switch env.Kind {
	case wire.KindSignupRequest:
		var req wire.SignupRequest
		if err := env.Unwrap(&req); err != nil {
			return wire.Envelope{}, err
		}
		assignment, err := b.Signup(ctx, req.Request)
		if err != nil {
			return wire.Wrap(wire.KindSignupResponse, wire.SignupResponse{Error: err.Error()})
		}
		return wire.Wrap(wire.KindSignupResponse, wire.SignupResponse{Assignment: &assignment})

	case wire.KindPrepareRequest:
		var req wire.PrepareRequest
		if err := env.Unwrap(&req); err != nil {
			return wire.Envelope{}, err
		}
		op, err := req.Decode()
		if err != nil {
			return wire.Wrap(wire.KindPrepareResponse, wire.PrepareResponse{Error: err.Error()})
		}
		extract, err := b.Prepare(ctx, req.ID, req.Height, op)
		if err != nil {
			return wire.Wrap(wire.KindPrepareResponse, wire.PrepareResponse{Error: err.Error()})
		}
		return wire.Wrap(wire.KindPrepareResponse, wire.PrepareResponse{Extract: &extract})

	case wire.KindCommitRequest:
		var req wire.CommitRequest
		if err := env.Unwrap(&req); err != nil {
			return wire.Envelope{}, err
		}
		op, err := req.Decode()
		if err != nil {
			return wire.Wrap(wire.KindCommitResponse, wire.CommitResponse{Error: err.Error()})
		}
		if err := b.validateCommitProof(req, op); err != nil {
			return wire.Wrap(wire.KindCommitResponse, wire.CommitResponse{Error: err.Error()})
		}
		completion, err := b.Commit(ctx, req.ID, req.Height, op)
		if err != nil {
			return wire.Wrap(wire.KindCommitResponse, wire.CommitResponse{Error: err.Error()})
		}
		return wire.Wrap(wire.KindCommitResponse, wire.CommitResponse{
			Payload:    &completion.Payload,
			Proof:      &completion.Proof,
			Completion: completion.Completion,
			Excepted:   completion.Excepted(),
		})

	default:
		return wire.Envelope{}, fmt.Errorf("node: broker received unknown client rpc kind %q", env.Kind)
	}
}
