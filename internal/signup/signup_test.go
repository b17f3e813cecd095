package signup

import (
	"testing"

	"carbon/internal/crypto"
	"carbon/internal/view"
)

func newTestView(n int) (*view.View, []crypto.PrivateKey) {
	members := make([]crypto.Member, n)
	sks := make([]crypto.PrivateKey, n)
	for i := 0; i < n; i++ {
		sk := crypto.GeneratePrivateKey()
		sks[i] = sk
		pk := sk.Public()
		members[i] = crypto.Member{Identity: crypto.IdentityOf(pk), Keycard: pk}
	}
	return view.New([32]byte{1}, members), sks
}

func TestSignupFlow(t *testing.T) {
	v, sks := newTestView(4)
	assigner := v.Members()[0].Identity
	assignerSK := sks[0]
	settings := Settings{WorkDifficulty: 4, PriorityAttempts: 8}

	userSK := crypto.GeneratePrivateKey()
	request := NewIdRequest(userSK, v, assigner, settings)
	if err := request.Validate(v, assigner, settings); err != nil {
		t.Fatalf("request invalid: %v", err)
	}

	start, end, err := AllocationRange(v, assigner)
	if err != nil {
		t.Fatalf("allocation range: %v", err)
	}
	id := start
	if id >= end {
		t.Fatalf("empty allocation range")
	}

	allocation := NewIdAllocation(assignerSK, request, id)
	if err := allocation.Validate(v, assigner, request); err != nil {
		t.Fatalf("allocation invalid: %v", err)
	}

	claim := NewIdClaim(request.Keycard, allocation, request.Rogue)
	if err := claim.Validate(v, assigner, request); err != nil {
		t.Fatalf("claim invalid: %v", err)
	}
	if claim.ID() != id {
		t.Fatalf("claim id = %d, want %d", claim.ID(), id)
	}

	agg := crypto.NewAggregator(v, AssignmentStatement(claim))
	for i, m := range v.Members() {
		shard := CertifyShard(sks[i], claim)
		if err := agg.Add(m.Identity, m.Keycard, shard); err != nil {
			t.Fatalf("add shard %d: %v", i, err)
		}
	}
	cert, err := agg.Finalize(crypto.ThresholdQuorum)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	assignment := NewIdAssignment(claim, *cert)
	if err := assignment.Validate(v); err != nil {
		t.Fatalf("assignment invalid: %v", err)
	}
}

func TestIdAllocationOutOfRange(t *testing.T) {
	v, sks := newTestView(4)
	assigner := v.Members()[0].Identity
	other := v.Members()[1].Identity
	settings := DefaultSettings()

	userSK := crypto.GeneratePrivateKey()
	request := NewIdRequest(userSK, v, assigner, settings)

	_, end, _ := AllocationRange(v, other)
	bogus := NewIdAllocation(sks[0], request, end) // outside assigner's own range

	if err := bogus.Validate(v, assigner, request); err != ErrIdOutOfRange {
		t.Fatalf("expected ErrIdOutOfRange, got %v", err)
	}
}
