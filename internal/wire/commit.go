package wire

import (
	"encoding/json"

	"carbon/internal/account"
	"carbon/internal/database"
	"carbon/internal/merkle"
)

// CommitRequest submits an already-prepared operation for commit-stage
// processing (spec.md §4.8 step 1). Extract carries the prepare-stage
// evidence the client collected, so a broker can reject a request outright
// if its own replica set never accepted a matching prepare.
type CommitRequest struct {
	ID        account.ID      `json:"id"`
	Height    uint64          `json:"height"`
	Operation json.RawMessage `json:"operation"`
	Extract   account.Extract `json:"extract"`
}

// NewCommitRequest encodes op and extract into a CommitRequest.
func NewCommitRequest(id account.ID, height uint64, op account.Operation, extract account.Extract) (CommitRequest, error) {
	encoded, err := account.MarshalOperation(op)
	if err != nil {
		return CommitRequest{}, err
	}
	return CommitRequest{ID: id, Height: height, Operation: encoded, Extract: extract}, nil
}

// Decode recovers the request's Operation.
func (r CommitRequest) Decode() (account.Operation, error) {
	return account.UnmarshalOperation(r.Operation)
}

// CommitResponse carries the batch's completion evidence — the payload's
// Merkle proof and the batch completion certificate plus exception set —
// or a failure reason (spec.md §4.8 step 4). Excepted distinguishes a
// clean apply from one the replica set refused.
type CommitResponse struct {
	Payload    *account.Payload          `json:"payload,omitempty"`
	Proof      *merkle.Proof             `json:"proof,omitempty"`
	Completion *database.BatchCompletion `json:"completion,omitempty"`
	Excepted   bool                      `json:"excepted,omitempty"`
	Error      string                    `json:"error,omitempty"`
}
