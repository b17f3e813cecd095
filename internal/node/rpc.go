// Package node wires the protocol packages (prepare, commit, signup,
// database) to the transport layer, playing both the replica-side RPC
// handler role and the broker-side orchestrator/client-listener role
// spec.md §6 assigns to two distinct processes. Grounded on the teacher's
// core/network.go handler-registration style and
// original_source/src/brokers/*/broker/orchestrate.rs's broker-dials-
// replicas shape, generalized from gossip topics and direct Rust method
// calls to one request/response exchange per internal/transport stream.
package node

import (
	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/signup"
	"carbon/internal/wire"

	"encoding/json"
)

// Internal broker<->replica RPC kinds. These never cross the client-facing
// listener — wire.go's Kind* constants cover that surface.
const (
	kindReduce              wire.Kind = "node.reduce"
	kindReduceResult        wire.Kind = "node.reduce_result"
	kindWitness             wire.Kind = "node.witness"
	kindWitnessResult       wire.Kind = "node.witness_result"
	kindPrepareCommit       wire.Kind = "node.prepare_commit"
	kindPrepareCommitResult wire.Kind = "node.prepare_commit_result"
	kindApply               wire.Kind = "node.apply"
	kindApplyResult         wire.Kind = "node.apply_result"
	kindAttach              wire.Kind = "node.attach"
	kindAttachResult        wire.Kind = "node.attach_result"
	kindAllocate            wire.Kind = "node.allocate"
	kindAllocateResult      wire.Kind = "node.allocate_result"
	kindCertify             wire.Kind = "node.certify"
	kindCertifyResult       wire.Kind = "node.certify_result"
	kindPing                wire.Kind = "node.ping"
	kindPingResult          wire.Kind = "node.ping_result"
)

// reduceRequest carries a prepare batch's ordered prepares rather than the
// batch itself: merkle.Vector keeps its tree unexported, so the wire form
// is the item list a remote replica rebuilds the identical vector from via
// database.NewPrepareBatch.
type reduceRequest struct {
	Prepares []account.Prepare `json:"prepares"`
}

type reduceResponse struct {
	Shard crypto.Shard `json:"shard,omitempty"`
	Error string       `json:"error,omitempty"`
}

type witnessRequest struct {
	Root [32]byte `json:"root"`
}

type witnessResponse struct {
	Shard crypto.Shard `json:"shard,omitempty"`
	Error string       `json:"error,omitempty"`
}

// prepareCommitRequest carries the same ordered prepares as reduceRequest,
// plus the witness certificate the broker has since collected, so the
// remote replica can rebuild the identical witnessed PrepareBatch before
// applying it (spec.md §4.7 step 6).
type prepareCommitRequest struct {
	Prepares []account.Prepare   `json:"prepares"`
	Witness  *crypto.Certificate `json:"witness,omitempty"`
}

type prepareCommitResponse struct {
	Exceptions []uint64     `json:"exceptions,omitempty"`
	Shard      crypto.Shard `json:"shard,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// wirePayload is account.Payload's wire form: Operation is an interface,
// so it travels as the same self-describing envelope
// account.MarshalOperation/UnmarshalOperation already gives wire.go's
// client-facing requests.
type wirePayload struct {
	Entry     account.Entry   `json:"entry"`
	Operation json.RawMessage `json:"operation"`
}

func encodePayloads(payloads []account.Payload) ([]wirePayload, error) {
	out := make([]wirePayload, len(payloads))
	for i, p := range payloads {
		encoded, err := account.MarshalOperation(p.Operation)
		if err != nil {
			return nil, err
		}
		out[i] = wirePayload{Entry: p.Entry, Operation: encoded}
	}
	return out, nil
}

func decodePayloads(items []wirePayload) ([]account.Payload, error) {
	out := make([]account.Payload, len(items))
	for i, it := range items {
		op, err := account.UnmarshalOperation(it.Operation)
		if err != nil {
			return nil, err
		}
		out[i] = account.Payload{Entry: it.Entry, Operation: op}
	}
	return out, nil
}

type applyRequest struct {
	Payloads []wirePayload       `json:"payloads"`
	Witness  *crypto.Certificate `json:"witness,omitempty"`
}

type applyResponse struct {
	Root       [32]byte     `json:"root"`
	Exceptions []uint64     `json:"exceptions,omitempty"`
	Shard      crypto.Shard `json:"shard,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type attachRequest struct {
	Root       [32]byte                  `json:"root"`
	Completion *database.BatchCompletion `json:"completion"`
}

type attachResponse struct{}

type allocateRequest struct {
	Request signup.IdRequest `json:"request"`
}

type allocateResponse struct {
	Allocation *signup.IdAllocation `json:"allocation,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// certifyRequest carries both the claim and the original request: a
// replica cannot validate a claim's allocation without the request it was
// issued against (signup.IdClaim.Validate's own signature requires it).
type certifyRequest struct {
	Request signup.IdRequest `json:"request"`
	Claim   signup.IdClaim   `json:"claim"`
}

type certifyResponse struct {
	Shard crypto.Shard `json:"shard,omitempty"`
	Error string       `json:"error,omitempty"`
}

type pingRequest struct{}
type pingResponse struct{}
