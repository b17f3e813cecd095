package database

import (
	"errors"
	"sync"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/signup"
)

// ErrIdAllocated is returned when an assigner is asked to allocate an id it
// has already handed out.
var ErrIdAllocated = errors.New("database: id already allocated")

// SignupBook is a replica's bookkeeping for the identities it has assigned
// and the claims it has certified, keyed the same way
// original_source/src/database/signup.rs's Signup struct is (allocated set,
// per-identity allocation, claimed set, per-id claim). zebra's persistent
// Collection<Id> is replaced by a plain map — see the database.go package
// comment.
type SignupBook struct {
	mu sync.Mutex

	allocated   map[account.ID]bool
	allocations map[crypto.Identity]account.ID

	claimed map[account.ID]bool
	claims  map[account.ID]signup.IdClaim
}

// NewSignupBook returns an empty book.
func NewSignupBook() *SignupBook {
	return &SignupBook{
		allocated:   make(map[account.ID]bool),
		allocations: make(map[crypto.Identity]account.ID),
		claimed:     make(map[account.ID]bool),
		claims:      make(map[account.ID]signup.IdClaim),
	}
}

// Allocate records that id has been granted to identity, failing if either
// the id or the identity already has an allocation (an assigner must never
// double-allocate, and a requester must never receive two distinct ids).
func (b *SignupBook) Allocate(identity crypto.Identity, id account.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocated[id] {
		return ErrIdAllocated
	}
	if _, ok := b.allocations[identity]; ok {
		return signup.ErrAlreadyAssigned
	}

	b.allocated[id] = true
	b.allocations[identity] = id
	return nil
}

// AllocationFor returns the id already allocated to identity, if any.
func (b *SignupBook) AllocationFor(identity crypto.Identity) (account.ID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.allocations[identity]
	return id, ok
}

// AllocateNext grants identity a free id out of [start, end), reusing its
// existing allocation if it already has one. The pick and the reservation
// happen under the same lock, so concurrent requests for distinct
// identities can never race onto the same id — unlike Allocate, which only
// reserves an id a caller already drew.
func (b *SignupBook) AllocateNext(identity crypto.Identity, start, end account.ID, priorityAttempts int) account.ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.allocations[identity]; ok {
		return id
	}

	id := signup.PickID(start, end, priorityAttempts, func(candidate account.ID) bool {
		return !b.allocated[candidate] && !b.claimed[candidate]
	})
	b.allocated[id] = true
	b.allocations[identity] = id
	return id
}

// Claim records claim as certified for its id, failing if id was already
// claimed.
func (b *SignupBook) Claim(claim signup.IdClaim) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := claim.ID()
	if b.claimed[id] {
		return signup.ErrAlreadyClaimed
	}
	b.claimed[id] = true
	b.claims[id] = claim
	return nil
}

// ClaimFor returns the claim recorded for id, if any.
func (b *SignupBook) ClaimFor(id account.ID) (signup.IdClaim, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.claims[id]
	return c, ok
}
