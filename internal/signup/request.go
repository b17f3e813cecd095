package signup

import (
	"encoding/json"

	"carbon/internal/crypto"
	"carbon/internal/view"
)

// requestBody is the signed body of an IdRequest (header IdRequest):
// keycard||view||assigner, grounded on
// original_source/src/signup/id_request.rs's private Request struct.
type requestBody struct {
	Keycard  []byte          `json:"keycard"`
	View     [32]byte        `json:"view"`
	Assigner crypto.Identity `json:"assigner"`
}

// IdRequest is a client's bid for an account Id: it proves possession of its
// keycard, spends proof-of-work tied to the request body, and attaches a
// rogue-safety proof so its keycard cannot be used as a rogue-key-attack
// component in an unrelated aggregation.
type IdRequest struct {
	Keycard  crypto.PublicKey
	View     [32]byte
	Assigner crypto.Identity
	Work     ProofOfWork
	Rogue    crypto.RogueProof
}

// NewIdRequest builds and proves a fresh IdRequest for v, to be routed to assigner.
func NewIdRequest(sk crypto.PrivateKey, v *view.View, assigner crypto.Identity, settings Settings) IdRequest {
	pk := sk.Public()
	body := requestBody{Keycard: pk.Bytes(), View: v.Hash(), Assigner: assigner}
	encoded, _ := json.Marshal(body)

	return IdRequest{
		Keycard:  pk,
		View:     v.Hash(),
		Assigner: assigner,
		Work:     NewProofOfWork(encoded, settings.WorkDifficulty),
		Rogue:    crypto.NewRogueProof(sk),
	}
}

// Identity derives the requester's canonical identity from its keycard.
func (r IdRequest) Identity() crypto.Identity {
	return crypto.IdentityOf(r.Keycard)
}

// Validate checks r against the view it claims and the assigner it was
// routed to, per original_source/src/signup/id_request.rs's validate.
func (r IdRequest) Validate(v *view.View, assigner crypto.Identity, settings Settings) error {
	if r.View != v.Hash() {
		return ErrForeignView
	}
	if r.Assigner != assigner {
		return ErrForeignAssigner
	}
	body := requestBody{Keycard: r.Keycard.Bytes(), View: r.View, Assigner: r.Assigner}
	encoded, _ := json.Marshal(body)
	if err := r.Work.Verify(encoded, settings.WorkDifficulty); err != nil {
		return err
	}
	return r.Rogue.Validate(r.Keycard)
}
