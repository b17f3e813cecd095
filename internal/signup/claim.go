package signup

import (
	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/view"
)

// IdClaim bundles a requester's keycard, the allocation an assigner granted
// it, and its rogue-safety proof — the unit a replica certifies into an
// IdAssignment. Grounded on original_source/src/signup/id_claim.rs.
type IdClaim struct {
	Keycard    crypto.PublicKey
	Allocation IdAllocation
	Rogue      crypto.RogueProof
}

// NewIdClaim builds a claim from a validated request/allocation pair.
func NewIdClaim(keycard crypto.PublicKey, allocation IdAllocation, rogue crypto.RogueProof) IdClaim {
	return IdClaim{Keycard: keycard, Allocation: allocation, Rogue: rogue}
}

// ID returns the claimed account Id.
func (c IdClaim) ID() account.ID { return c.Allocation.ID }

// Identity derives the claimant's identity from its keycard.
func (c IdClaim) Identity() crypto.Identity { return crypto.IdentityOf(c.Keycard) }

// Validate checks that the claim's keycard matches its allocation's
// requester, that the allocation itself is valid for request, and that the
// rogue-safety proof is valid, per
// original_source/src/signup/id_claim.rs's validate.
func (c IdClaim) Validate(v *view.View, assignerIdentity crypto.Identity, request IdRequest) error {
	if c.Identity() != request.Identity() {
		return ErrKeycardMismatch
	}
	if err := c.Allocation.Validate(v, assignerIdentity, request); err != nil {
		return err
	}
	return c.Rogue.Validate(c.Keycard)
}
