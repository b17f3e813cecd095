package crypto

import "crypto/sha256"

// Identity names a view member independent of its keycard — typically the
// hash of its keycard, assigned once when a view is constructed. It is the
// unit the certificate's bitvector is indexed by.
type Identity [32]byte

// Member is one entry of a view's ordered member list: the identity used
// for bitvector indexing plus the keycard shard signatures verify against.
type Member struct {
	Identity Identity
	Keycard  PublicKey
}

// ViewSet is the minimal shape Aggregator and Certificate need from a view:
// an ordered member list (bitvector order) and the plurality/quorum
// thresholds. internal/view.View implements this; crypto does not import
// internal/view to avoid a cycle (a view's members carry crypto.PublicKey
// keycards, so the dependency runs view -> crypto, not the reverse).
type ViewSet interface {
	Hash() [32]byte
	Members() []Member
	Plurality() int
	Quorum() int
}

// IdentityOf derives the Identity of a keycard as the SHA-256 hash of its
// encoded bytes.
func IdentityOf(pk PublicKey) Identity {
	return sha256.Sum256(pk.Bytes())
}
