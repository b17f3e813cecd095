// Package account implements the per-account state machine (spec.md §4.3):
// deterministic transitions keyed by height, equivocation detection, and
// the Operation variants a Payload carries. Grounded on
// original_source/src/account/*.rs, expressed as Go tagged-union-by-
// interface rather than Rust enums, per Design Note §9.
package account

import "encoding/binary"

// ID is a 64-bit globally unique account identifier.
type ID uint64

// Bytes returns the big-endian encoding used wherever an ID needs to be
// hashed or signed over.
func (id ID) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return b[:]
}
