package crypto

// RogueProof defends signup allocation against rogue-key substitution in
// the BLS aggregate: a client proves possession of the secret key behind
// its keycard by signing a fixed, empty statement. Without this, a
// Byzantine client could publish a crafted public key chosen as a function
// of honest keys to forge an aggregate signature it never actually
// produced a share of. Grounded on original_source/src/crypto/rogue.rs,
// which signs the same fixed RogueChallenge statement.
type RogueProof struct {
	Shard Shard
}

var rogueChallenge = BytesStatement{H: HeaderRogueChallenge, B: nil}

// NewRogueProof signs the fixed challenge with sk.
func NewRogueProof(sk PrivateKey) RogueProof {
	return RogueProof{Shard: sk.Sign(rogueChallenge)}
}

// Validate verifies the proof was produced by the holder of pk's secret key.
func (r RogueProof) Validate(pk PublicKey) error {
	return pk.Verify(rogueChallenge, r.Shard)
}
