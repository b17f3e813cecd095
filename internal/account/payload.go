package account

// Payload is a committed (Entry, Operation) pair — the unit a commit batch
// carries and an Account applies (spec.md §3).
type Payload struct {
	Entry     Entry
	Operation Operation
}

func (p Payload) ID() ID         { return p.Entry.ID }
func (p Payload) Height() uint64 { return p.Entry.Height }

// Bytes is the canonical encoding used as a commit Vector leaf.
func (p Payload) Bytes() []byte {
	b := append([]byte{}, p.Entry.Bytes()...)
	b = append(b, byte(p.Operation.Kind()))
	b = append(b, p.Operation.Encode()...)
	return b
}
