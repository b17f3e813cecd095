// Package churn recognizes the view-churn statement headers spec.md keeps
// as external collaborators (Install and Resolution, header values 1 and
// 3 in internal/crypto, plus Resignation) without implementing view generation
// itself — spec.md §1 scopes that out. What a replica or broker actually
// needs from churn is narrow: validate a certified view transition against
// the view it extends, derive the resulting member list, and hand it to a
// view.Store. Grounded on original_source/src/churn/{churn.rs,
// resolution.rs,resignation.rs} and original_source/src/view/install.rs.
package churn

import (
	"crypto/sha256"
	"encoding/json"
	"errors"

	"carbon/internal/crypto"
	"carbon/internal/view"
)

var (
	// ErrSourceMismatch is returned when an Install or Resolution names a
	// source view other than the one the caller is resolving it against.
	ErrSourceMismatch = errors.New("churn: source view does not match")
	// ErrNoIncrements mirrors original_source/src/view/install.rs's debug
	// assertion: a churn message with an empty change is never produced
	// honestly.
	ErrNoIncrements = errors.New("churn: transition carries no increments")
)

// Increment is one member added to or removed from a view by a churn
// transition (original_source's `Increment`, left opaque by the
// distillation — this is its minimal reconstruction: an addition or a
// removal, nothing else changes membership).
type Increment struct {
	Member crypto.Member `json:"member"`
	Remove bool          `json:"remove"`
}

// transitionBody is the signed body shared by Install and Resolution: the
// source view's hash plus the ordered increments a plurality (Install) or
// quorum (Resolution, over a past view) agreed to apply.
type transitionBody struct {
	H          crypto.Header
	Source     [32]byte    `json:"source"`
	Increments []Increment `json:"increments"`
}

func (b transitionBody) Header() crypto.Header { return b.H }
func (b transitionBody) Body() []byte {
	encoded, _ := json.Marshal(struct {
		Source     [32]byte    `json:"source"`
		Increments []Increment `json:"increments"`
	}{b.Source, b.Increments})
	return encoded
}

// nextMembers applies increments to source's member list in order.
func nextMembers(source *view.View, increments []Increment) []crypto.Member {
	members := append([]crypto.Member{}, source.Members()...)
	for _, inc := range increments {
		if inc.Remove {
			for idx, m := range members {
				if m.Identity == inc.Member.Identity {
					members = append(members[:idx], members[idx+1:]...)
					break
				}
			}
			continue
		}
		members = append(members, inc.Member)
	}
	return members
}

// nextHash derives the resulting view's hash deterministically from its
// source and increments, standing in for the out-of-scope view-generation
// algorithm's own identifier scheme.
func nextHash(source [32]byte, increments []Increment) [32]byte {
	body := transitionBody{Source: source, Increments: increments}
	return sha256.Sum256(body.Body())
}

// Install is a plurality-certified view transition a replica's own view
// generation produced (original_source/src/view/install.rs's Install).
type Install struct {
	Source      [32]byte
	Increments  []Increment
	Certificate crypto.Certificate
}

// Validate checks certificate against source's plurality, per
// original_source's Install::check.
func (i Install) Validate(source *view.View) error {
	if source.Hash() != i.Source {
		return ErrSourceMismatch
	}
	if len(i.Increments) == 0 {
		return ErrNoIncrements
	}
	stmt := transitionBody{H: crypto.HeaderInstall, Source: i.Source, Increments: i.Increments}
	return i.Certificate.VerifyPlurality(source, stmt)
}

// Resolve validates install against source, derives the resulting view and
// installs it into store, returning the new view. store is the bundled
// MemoryStore rather than the narrower Store interface: Install is how a
// view actually gets written, and only the in-process stand-in exposes it
// (a real deployment learns new views from Discovery instead).
func Resolve(store *view.MemoryStore, source *view.View, install Install) (*view.View, error) {
	if err := install.Validate(source); err != nil {
		return nil, err
	}
	next := view.New(nextHash(install.Source, install.Increments), nextMembers(source, install.Increments))
	store.Install(next)
	return next, nil
}

// Resolution is a quorum-certified vote that a transition already applies
// to some past or current view, used to resolve disagreement about which
// Install a stalled replica should adopt
// (original_source/src/churn/resolution.rs). Unlike Install it is
// certified over a quorum, not a plurality, since it settles a dispute
// rather than proposing a fresh change.
type Resolution struct {
	Source      [32]byte
	Increments  []Increment
	Certificate crypto.Certificate
}

// Validate checks certificate against source's quorum.
func (r Resolution) Validate(source *view.View) error {
	if source.Hash() != r.Source {
		return ErrSourceMismatch
	}
	stmt := transitionBody{H: crypto.HeaderResolution, Source: r.Source, Increments: r.Increments}
	return r.Certificate.VerifyQuorum(source, stmt)
}

// Resignation is a single replica's signed notice that it is voluntarily
// leaving the view. original_source/src/churn/resignation.rs stubs both
// its validation and construction (`todo!()`); this module carries the
// same stub forward as a recognized, but unvalidated, event shape rather
// than inventing semantics the original never settled on.
type Resignation struct {
	Member    crypto.Identity
	Signature crypto.Shard
}

// Event is the tagged union Design Note §9 names: Churn ∈ {Resolution,
// Resignation}. A replica or broker that receives a churn message need
// only recognize which variant it is and route it on — this module does
// not decide how the resulting Change is voted into an Install.
type Event struct {
	Resolution  *Resolution
	Resignation *Resignation
}
