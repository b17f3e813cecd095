package signup

import (
	"encoding/json"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/view"
)

// assignmentBody is the signed body of an IdAssignment shard (header
// IdAssignment): id||keycard, grounded on
// original_source/src/signup/id_assignment.rs's private Statement struct.
type assignmentBody struct {
	ID      account.ID `json:"id"`
	Keycard []byte     `json:"keycard"`
}

func (b assignmentBody) statement() crypto.Statement {
	encoded, _ := json.Marshal(b)
	return crypto.BytesStatement{H: crypto.HeaderIdAssignment, B: encoded}
}

// AssignmentStatement returns the Statement a replica multisigns to certify
// claim into an IdAssignment.
func AssignmentStatement(claim IdClaim) crypto.Statement {
	return assignmentBody{ID: claim.ID(), Keycard: claim.Keycard.Bytes()}.statement()
}

// CertifyShard has replica sk sign off on claim.
func CertifyShard(sk crypto.PrivateKey, claim IdClaim) crypto.Shard {
	return sk.Sign(AssignmentStatement(claim))
}

// IdAssignment is a claim certified by a quorum of the view: the client's
// durable proof of Id ownership, handed back once signup completes.
type IdAssignment struct {
	ID        account.ID
	Keycard   crypto.PublicKey
	Signature crypto.Certificate
}

// NewIdAssignment pairs claim with the certificate a replica pipeline
// collected over AssignmentStatement(claim).
func NewIdAssignment(claim IdClaim, certificate crypto.Certificate) IdAssignment {
	return IdAssignment{ID: claim.ID(), Keycard: claim.Keycard, Signature: certificate}
}

// Validate checks that the assignment's certificate meets quorum over v for
// its own (id, keycard) statement.
func (a IdAssignment) Validate(v *view.View) error {
	stmt := assignmentBody{ID: a.ID, Keycard: a.Keycard.Bytes()}.statement()
	return a.Signature.VerifyQuorum(v, stmt)
}
