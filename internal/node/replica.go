package node

import (
	"context"
	"errors"
	"fmt"

	"carbon/internal/commit"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/prepare"
	"carbon/internal/signup"
	"carbon/internal/transport"
	"carbon/internal/view"
	"carbon/internal/wire"

	"github.com/sirupsen/logrus"
)

// Replica bundles one process's replica-side state: its database, its
// prepare- and commit-stage handlers, and the signup assigner role it
// plays for its own slice of the id space. It answers exactly the internal
// RPC kinds a Broker issues (spec.md §6: replicas never talk to clients
// directly).
type Replica struct {
	db       *database.Database
	sk       crypto.PrivateKey
	identity crypto.Identity
	view     *view.View
	prepare  *prepare.Replica
	commit   *commit.Replica
	signup   signup.Settings
	log      *logrus.Entry
}

// NewReplica builds a replica bound to v, signing key sk and database db.
func NewReplica(v *view.View, sk crypto.PrivateKey, db *database.Database, signupSettings signup.Settings, log *logrus.Entry) *Replica {
	return &Replica{
		db:       db,
		sk:       sk,
		identity: crypto.IdentityOf(sk.Public()),
		view:     v,
		prepare:  prepare.NewReplica(db, sk, v),
		commit:   commit.NewReplica(db, sk, v.Hash()),
		signup:   signupSettings,
		log:      log,
	}
}

// Serve installs the replica's RPC dispatcher on host: one request, one
// response, per inbound stream.
func (r *Replica) Serve(host *transport.Host) {
	host.Serve(func(s transport.Session) {
		defer s.Close()

		var env wire.Envelope
		if err := s.Receive(&env); err != nil {
			return
		}
		resp, err := r.dispatch(env)
		if err != nil {
			r.log.WithError(err).WithField("kind", env.Kind).Warn("replica rpc failed")
			return
		}
		if err := s.Send(resp); err != nil {
			r.log.WithError(err).Warn("replica rpc response send failed")
		}
	})
}

func (r *Replica) dispatch(env wire.Envelope) (wire.Envelope, error) {
	switch env.Kind {
	case kindReduce:
		return r.handleReduce(env)
	case kindWitness:
		return r.handleWitness(env)
	case kindPrepareCommit:
		return r.handlePrepareCommit(env)
	case kindApply:
		return r.handleApply(env)
	case kindAttach:
		return r.handleAttach(env)
	case kindAllocate:
		return r.handleAllocate(env)
	case kindCertify:
		return r.handleCertify(env)
	case kindPing:
		return wire.Wrap(kindPingResult, pingResponse{})
	default:
		return wire.Envelope{}, fmt.Errorf("node: replica received unknown rpc kind %q", env.Kind)
	}
}

func (r *Replica) handleReduce(env wire.Envelope) (wire.Envelope, error) {
	var req reduceRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	batch, err := database.NewPrepareBatch(req.Prepares, nil)
	if err != nil {
		return wire.Wrap(kindReduceResult, reduceResponse{Error: err.Error()})
	}
	verdict := r.prepare.Endorse(batch)
	for _, eq := range verdict.Equivocations {
		r.log.WithField("id", eq.First.Prepare.ID).Warn("equivocation detected during reduce")
	}
	return wire.Wrap(kindReduceResult, reduceResponse{Shard: verdict.Shard})
}

// handleWitness answers both the prepare stage's and the commit stage's
// witness round: both sign the identical RootStatement under the shared
// Witness header (crypto.WitnessStatement), so one handler serves either
// caller without needing to know which stage asked.
func (r *Replica) handleWitness(env wire.Envelope) (wire.Envelope, error) {
	var req witnessRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	shard := r.sk.Sign(crypto.WitnessStatement(req.Root))
	return wire.Wrap(kindWitnessResult, witnessResponse{Shard: shard})
}

// handlePrepareCommit answers the prepare stage's quorum commit round
// (spec.md §4.7 step 6): it applies the already-witnessed batch to this
// replica's prepare ledger and returns the resulting BatchCommitShard.
func (r *Replica) handlePrepareCommit(env wire.Envelope) (wire.Envelope, error) {
	var req prepareCommitRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	batch, err := database.NewPrepareBatch(req.Prepares, req.Witness)
	if err != nil {
		return wire.Wrap(kindPrepareCommitResult, prepareCommitResponse{Error: err.Error()})
	}
	verdict := r.prepare.Commit(batch)
	return wire.Wrap(kindPrepareCommitResult, prepareCommitResponse{Exceptions: verdict.Exceptions, Shard: verdict.Shard})
}

func (r *Replica) handleApply(env wire.Envelope) (wire.Envelope, error) {
	var req applyRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	payloads, err := decodePayloads(req.Payloads)
	if err != nil {
		return wire.Wrap(kindApplyResult, applyResponse{Error: err.Error()})
	}
	batch, err := database.NewCommitBatch(payloads, req.Witness)
	if err != nil {
		return wire.Wrap(kindApplyResult, applyResponse{Error: err.Error()})
	}
	verdict := r.commit.Commit(batch)
	return wire.Wrap(kindApplyResult, applyResponse{Root: verdict.Root, Exceptions: verdict.Exceptions, Shard: verdict.Shard})
}

func (r *Replica) handleAttach(env wire.Envelope) (wire.Envelope, error) {
	var req attachRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	r.commit.Attach(req.Root, req.Completion)
	return wire.Wrap(kindAttachResult, attachResponse{})
}

// handleAllocate grants the requester a free id drawn at random from this
// replica's own allocation range (database.SignupBook.AllocateNext via
// signup.PickID), or returns its existing allocation if it already
// has one (spec.md §4.6 step 2 is idempotent per identity).
func (r *Replica) handleAllocate(env wire.Envelope) (wire.Envelope, error) {
	var req allocateRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	if err := req.Request.Validate(r.view, r.identity, r.signup); err != nil {
		return wire.Wrap(kindAllocateResult, allocateResponse{Error: err.Error()})
	}

	start, end, err := signup.AllocationRange(r.view, r.identity)
	if err != nil {
		return wire.Wrap(kindAllocateResult, allocateResponse{Error: err.Error()})
	}

	identity := req.Request.Identity()
	id := r.db.Signup.AllocateNext(identity, start, end, r.signup.PriorityAttempts)
	alloc := signup.NewIdAllocation(r.sk, req.Request, id)
	return wire.Wrap(kindAllocateResult, allocateResponse{Allocation: &alloc})
}

func (r *Replica) handleCertify(env wire.Envelope) (wire.Envelope, error) {
	var req certifyRequest
	if err := env.Unwrap(&req); err != nil {
		return wire.Envelope{}, err
	}
	if err := req.Claim.Validate(r.view, req.Request.Assigner, req.Request); err != nil {
		return wire.Wrap(kindCertifyResult, certifyResponse{Error: err.Error()})
	}
	if err := r.db.Signup.Claim(req.Claim); err != nil && !errors.Is(err, signup.ErrAlreadyClaimed) {
		return wire.Wrap(kindCertifyResult, certifyResponse{Error: err.Error()})
	}
	shard := signup.CertifyShard(r.sk, req.Claim)
	return wire.Wrap(kindCertifyResult, certifyResponse{Shard: shard})
}
