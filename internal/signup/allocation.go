package signup

import (
	"encoding/json"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/view"
)

// allocationBody is the signed body of an IdAllocation (header IdAllocation):
// view||id||identity, grounded on
// original_source/src/signup/id_allocation.rs's private Allocation struct.
type allocationBody struct {
	View     [32]byte        `json:"view"`
	ID       account.ID      `json:"id"`
	Identity crypto.Identity `json:"identity"`
}

func (b allocationBody) encode() []byte {
	encoded, _ := json.Marshal(b)
	return encoded
}

func (b allocationBody) statement() crypto.Statement {
	return crypto.BytesStatement{H: crypto.HeaderIdAllocation, B: b.encode()}
}

// IdAllocation is an assigner's signed grant of id to the requester behind
// request, within the assigner's allocation range.
type IdAllocation struct {
	ID        account.ID
	Signature crypto.Shard
}

// NewIdAllocation has assigner sk allocate id to request.
func NewIdAllocation(sk crypto.PrivateKey, request IdRequest, id account.ID) IdAllocation {
	body := allocationBody{View: request.View, ID: id, Identity: request.Identity()}
	return IdAllocation{ID: id, Signature: sk.Sign(body.statement())}
}

// Validate checks that allocation was signed by assigner's keycard in v and
// that the id assigned falls within assigner's range. request must have
// already been validated by the caller (mirrors the Rust comment: "In order
// to avoid panics, request must have been validated beforehand").
func (a IdAllocation) Validate(v *view.View, assignerIdentity crypto.Identity, request IdRequest) error {
	idx := v.IndexOf(assignerIdentity)
	if idx < 0 {
		return ErrUnknownAssigner
	}
	assignerKey := v.Members()[idx].Keycard

	body := allocationBody{View: request.View, ID: a.ID, Identity: request.Identity()}
	if err := assignerKey.Verify(body.statement(), a.Signature); err != nil {
		return err
	}

	start, end, err := AllocationRange(v, assignerIdentity)
	if err != nil {
		return err
	}
	if !inRange(a.ID, start, end) {
		return ErrIdOutOfRange
	}
	return nil
}
