package signup

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/bits"
)

// ErrWorkInvalid is returned when a presented proof of work does not meet
// the required difficulty for its statement.
var ErrWorkInvalid = errors.New("signup: proof of work invalid")

// ProofOfWork is a nonce whose hash, concatenated with the statement it was
// computed over, has at least Difficulty leading zero bits. Grounded on
// original_source/src/signup/id_request.rs's use of talk::crypto's Work
// primitive; bespoke leading-zero-bit PoW has no ready-made dependency in
// the example pack, so this is implemented directly on crypto/sha256.
type ProofOfWork struct {
	Nonce uint64
}

func workHash(statement []byte, nonce uint64) [32]byte {
	h := sha256.New()
	h.Write(statement)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	h.Write(nb[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func leadingZeroBits(h [32]byte) int {
	n := 0
	for _, b := range h {
		if b == 0 {
			n += 8
			continue
		}
		n += bits.LeadingZeros8(b)
		break
	}
	return n
}

// NewProofOfWork brute-forces a nonce meeting difficulty over statement.
func NewProofOfWork(statement []byte, difficulty uint8) ProofOfWork {
	for nonce := uint64(0); ; nonce++ {
		h := workHash(statement, nonce)
		if leadingZeroBits(h) >= int(difficulty) {
			return ProofOfWork{Nonce: nonce}
		}
	}
}

// Verify checks that w meets difficulty over statement.
func (w ProofOfWork) Verify(statement []byte, difficulty uint8) error {
	h := workHash(statement, w.Nonce)
	if leadingZeroBits(h) < int(difficulty) {
		return ErrWorkInvalid
	}
	return nil
}
