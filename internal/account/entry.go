package account

import "encoding/binary"

// Entry names a specific (id, height) payload. Entries are totally
// ordered by id first, then height.
type Entry struct {
	ID     ID
	Height uint64
}

// Less orders entries by id then height, as spec.md §3 requires for
// batch-wide sorting (prepares, payloads are committed in id order).
func (e Entry) Less(o Entry) bool {
	if e.ID != o.ID {
		return e.ID < o.ID
	}
	return e.Height < o.Height
}

// Bytes is the canonical encoding used as a Merkle/Set leaf and inside
// signed statements that reference an entry.
func (e Entry) Bytes() []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(e.ID))
	binary.BigEndian.PutUint64(b[8:16], e.Height)
	return b[:]
}

// Prepare is the committed triple (id, height, commitment) spec.md §3
// defines: commitment = hash(operation).
type Prepare struct {
	ID         ID
	Height     uint64
	Commitment [32]byte
}

func (p Prepare) Entry() Entry { return Entry{ID: p.ID, Height: p.Height} }

// Bytes is the canonical leaf/signed encoding for a Prepare.
func (p Prepare) Bytes() []byte {
	b := make([]byte, 16+32)
	binary.BigEndian.PutUint64(b[0:8], uint64(p.ID))
	binary.BigEndian.PutUint64(b[8:16], p.Height)
	copy(b[16:], p.Commitment[:])
	return b
}
