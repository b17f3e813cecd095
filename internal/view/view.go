// Package view models the immutable replica-set snapshot the broker and
// replica pipelines certify against. View generation and churn are out of
// scope (spec.md §1): this package only holds the shape Discovery would
// hand back and the ViewStore handle Design Note §9 asks for, so the core
// never reaches for a process-wide cache.
package view

import "carbon/internal/crypto"

// View is an immutable snapshot of the replica set: its ordered member
// list and the plurality/quorum thresholds derived from it.
type View struct {
	hash      [32]byte
	members   []crypto.Member
	plurality int
	quorum    int
}

// New builds a View from an ordered member list, deriving
// plurality = floor((n-1)/3)+1 and quorum = n - floor((n-1)/3) per spec.md §3.
func New(hash [32]byte, members []crypto.Member) *View {
	n := len(members)
	f := (n - 1) / 3
	return &View{
		hash:      hash,
		members:   members,
		plurality: f + 1,
		quorum:    n - f,
	}
}

func (v *View) Hash() [32]byte           { return v.hash }
func (v *View) Members() []crypto.Member { return v.members }
func (v *View) Plurality() int           { return v.plurality }
func (v *View) Quorum() int              { return v.quorum }
func (v *View) N() int                   { return len(v.members) }

// IndexOf returns the canonical bitvector index of identity, or -1.
func (v *View) IndexOf(id crypto.Identity) int {
	for i, m := range v.members {
		if m.Identity == id {
			return i
		}
	}
	return -1
}

var _ crypto.ViewSet = (*View)(nil)
