package wire

import (
	"encoding/json"

	"carbon/internal/account"
)

// PrepareRequest is a client's bid to have one operation committed at
// (id, height) — spec.md §4.7 step 1. Operation is carried through
// account.MarshalOperation/UnmarshalOperation since Operation is an
// interface with several concrete variants.
type PrepareRequest struct {
	ID        account.ID      `json:"id"`
	Height    uint64          `json:"height"`
	Operation json.RawMessage `json:"operation"`
}

// NewPrepareRequest encodes op into a PrepareRequest.
func NewPrepareRequest(id account.ID, height uint64, op account.Operation) (PrepareRequest, error) {
	encoded, err := account.MarshalOperation(op)
	if err != nil {
		return PrepareRequest{}, err
	}
	return PrepareRequest{ID: id, Height: height, Operation: encoded}, nil
}

// Decode recovers the request's Operation.
func (r PrepareRequest) Decode() (account.Operation, error) {
	return account.UnmarshalOperation(r.Operation)
}

// PrepareResponse carries the accepted prepare's certified extract, or a
// failure reason (spec.md §4.7 step 6).
type PrepareResponse struct {
	Extract *account.Extract `json:"extract,omitempty"`
	Error   string           `json:"error,omitempty"`
}
