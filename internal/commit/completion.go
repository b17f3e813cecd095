package commit

import (
	"carbon/internal/account"
	"carbon/internal/database"
	"carbon/internal/merkle"
)

// Completion is the evidence a client receives once its payload's batch
// finishes the commit stage: the payload, its Merkle inclusion proof
// against the batch root, and the batch's completion certificate plus
// exception set. Grounded on original_source/src/commit/completion.rs and
// completion_proof.rs, folded into one type since this module doesn't
// separate "proof of a BatchCompletion" from "proof bound to one payload".
type Completion struct {
	Payload    account.Payload
	Proof      merkle.Proof
	Completion *database.BatchCompletion
}

// Excepted reports whether the batch's replicas refused to apply this
// completion's payload.
func (c Completion) Excepted() bool {
	for _, id := range c.Completion.Exceptions {
		if id == uint64(c.Payload.ID()) {
			return true
		}
	}
	return false
}
