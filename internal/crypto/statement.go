package crypto

import (
	"encoding/binary"
)

// Statement is any byte-serializable value paired with a fixed header tag.
// SignBytes returns header||body, the exact bytes handed to the signature
// scheme — this is what makes signing the same body under two headers
// non-fungible.
type Statement interface {
	Header() Header
	Body() []byte
}

// SignBytes prefixes a statement's body with its header octet.
func SignBytes(s Statement) []byte {
	b := s.Body()
	out := make([]byte, 1+len(b))
	out[0] = byte(s.Header())
	copy(out[1:], b)
	return out
}

// RootStatement carries a single 32-byte Merkle root. It backs
// ReductionStatement (header PrepareBatchRoot), the prepare WitnessStatement
// and the commit WitnessStatement — the root's provenance (prepare batch vs
// payload batch) disambiguates the two witness use sites within the
// protocol, the header merely marks the message as "a witness over some
// root".
type RootStatement struct {
	H    Header
	Root [32]byte
}

func (s RootStatement) Header() Header { return s.H }
func (s RootStatement) Body() []byte   { return s.Root[:] }

// ReductionStatement is RootStatement under PrepareBatchRoot, signed by
// clients that opt into reduction aggregation over a prepare batch root.
func ReductionStatement(root [32]byte) RootStatement {
	return RootStatement{H: HeaderPrepareBatchRoot, Root: root}
}

// WitnessStatement is RootStatement under the shared Witness header, used
// both for a prepare batch's witness shard and a payload batch's witness
// shard (spec.md §4.7 step 5 / §4.8 step 3).
func WitnessStatement(root [32]byte) RootStatement {
	return RootStatement{H: HeaderPrepareWitness, Root: root}
}

// ExceptionStatement binds a view, a root and a sorted exception id list —
// the body signed for a BatchCommitShard (header Commit) and a
// BatchCompletionShard (header Completion).
type ExceptionStatement struct {
	H          Header
	ViewHash   [32]byte
	Root       [32]byte
	Exceptions []uint64
}

func (s ExceptionStatement) Header() Header { return s.H }

func (s ExceptionStatement) Body() []byte {
	out := make([]byte, 0, 64+8*len(s.Exceptions))
	out = append(out, s.ViewHash[:]...)
	out = append(out, s.Root[:]...)
	for _, id := range s.Exceptions {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], id)
		out = append(out, b[:]...)
	}
	return out
}

// CommitStatement is the statement signed for a prepare BatchCommitShard.
func CommitStatement(viewHash, root [32]byte, exceptions []uint64) ExceptionStatement {
	return ExceptionStatement{H: HeaderCommit, ViewHash: viewHash, Root: root, Exceptions: exceptions}
}

// CompletionStatement is the statement signed for a commit BatchCompletionShard.
func CompletionStatement(viewHash, root [32]byte, exceptions []uint64) ExceptionStatement {
	return ExceptionStatement{H: HeaderCompletion, ViewHash: viewHash, Root: root, Exceptions: exceptions}
}

// BytesStatement wraps an arbitrary already-encoded body under a header;
// used for the IdAllocation and IdAssignment signup statements and the
// RogueChallenge proof, so the envelope stays generic enough for the
// lattice-agreement code mentioned in spec.md §9 to reuse.
type BytesStatement struct {
	H Header
	B []byte
}

func (s BytesStatement) Header() Header { return s.H }
func (s BytesStatement) Body() []byte   { return s.B }
