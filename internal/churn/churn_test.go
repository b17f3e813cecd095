package churn

import (
	"testing"

	"carbon/internal/crypto"
	"carbon/internal/view"
)

func testView(n int) (*view.View, []crypto.PrivateKey) {
	members := make([]crypto.Member, n)
	sks := make([]crypto.PrivateKey, n)
	for i := 0; i < n; i++ {
		sk := crypto.GeneratePrivateKey()
		sks[i] = sk
		pk := sk.Public()
		members[i] = crypto.Member{Identity: crypto.IdentityOf(pk), Keycard: pk}
	}
	return view.New([32]byte{7}, members), sks
}

func certify(t *testing.T, v *view.View, sks []crypto.PrivateKey, stmt crypto.Statement, threshold crypto.Threshold) *crypto.Certificate {
	t.Helper()
	agg := crypto.NewAggregator(v, stmt)
	for i, m := range v.Members() {
		shard := sks[i].Sign(stmt)
		if err := agg.Add(m.Identity, m.Keycard, shard); err != nil {
			t.Fatalf("add shard %d: %v", i, err)
		}
	}
	cert, err := agg.Finalize(threshold)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return cert
}

func TestInstallValidate(t *testing.T) {
	v, sks := testView(4)

	newSK := crypto.GeneratePrivateKey()
	newPK := newSK.Public()
	increments := []Increment{{Member: crypto.Member{Identity: crypto.IdentityOf(newPK), Keycard: newPK}}}

	stmt := transitionBody{H: crypto.HeaderInstall, Source: v.Hash(), Increments: increments}
	cert := certify(t, v, sks, stmt, crypto.ThresholdPlurality)

	install := Install{Source: v.Hash(), Increments: increments, Certificate: *cert}
	if err := install.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestInstallValidateRejectsWrongSource(t *testing.T) {
	v, sks := testView(4)
	increments := []Increment{{Member: v.Members()[0]}}
	stmt := transitionBody{H: crypto.HeaderInstall, Source: v.Hash(), Increments: increments}
	cert := certify(t, v, sks, stmt, crypto.ThresholdPlurality)

	install := Install{Source: [32]byte{0xff}, Increments: increments, Certificate: *cert}
	if err := install.Validate(v); err != ErrSourceMismatch {
		t.Fatalf("expected ErrSourceMismatch, got %v", err)
	}
}

func TestInstallValidateRejectsEmptyIncrements(t *testing.T) {
	v, sks := testView(4)
	stmt := transitionBody{H: crypto.HeaderInstall, Source: v.Hash()}
	cert := certify(t, v, sks, stmt, crypto.ThresholdAny)

	install := Install{Source: v.Hash(), Certificate: *cert}
	if err := install.Validate(v); err != ErrNoIncrements {
		t.Fatalf("expected ErrNoIncrements, got %v", err)
	}
}

func TestResolveInstallsNextView(t *testing.T) {
	v, sks := testView(4)
	store := view.NewMemoryStore()
	store.Install(v)

	newSK := crypto.GeneratePrivateKey()
	newPK := newSK.Public()
	newIdentity := crypto.IdentityOf(newPK)
	increments := []Increment{{Member: crypto.Member{Identity: newIdentity, Keycard: newPK}}}

	stmt := transitionBody{H: crypto.HeaderInstall, Source: v.Hash(), Increments: increments}
	cert := certify(t, v, sks, stmt, crypto.ThresholdPlurality)
	install := Install{Source: v.Hash(), Increments: increments, Certificate: *cert}

	next, err := Resolve(store, v, install)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if next.N() != v.N()+1 {
		t.Fatalf("next view has %d members, want %d", next.N(), v.N()+1)
	}
	found := false
	for _, m := range next.Members() {
		if m.Identity == newIdentity {
			found = true
		}
	}
	if !found {
		t.Fatalf("new member missing from resolved view")
	}

	fetched, err := store.Get(next.Hash())
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if fetched.Hash() != next.Hash() {
		t.Fatalf("installed view hash mismatch")
	}
}

func TestResolveRejectsInvalidInstall(t *testing.T) {
	v, _ := testView(4)
	store := view.NewMemoryStore()
	store.Install(v)

	install := Install{Source: [32]byte{0xaa}, Increments: []Increment{{Member: v.Members()[0]}}}
	if _, err := Resolve(store, v, install); err != ErrSourceMismatch {
		t.Fatalf("expected ErrSourceMismatch, got %v", err)
	}
}

func TestResolutionValidateRequiresQuorum(t *testing.T) {
	v, sks := testView(4)
	increments := []Increment{{Member: v.Members()[0], Remove: true}}
	stmt := transitionBody{H: crypto.HeaderResolution, Source: v.Hash(), Increments: increments}

	// Only a plurality's worth of shards: below quorum for n=4 (quorum=3).
	agg := crypto.NewAggregator(v, stmt)
	for i := 0; i < v.Plurality(); i++ {
		m := v.Members()[i]
		shard := sks[i].Sign(stmt)
		if err := agg.Add(m.Identity, m.Keycard, shard); err != nil {
			t.Fatalf("add shard: %v", err)
		}
	}
	cert, err := agg.Finalize(crypto.ThresholdAny)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	resolution := Resolution{Source: v.Hash(), Increments: increments, Certificate: *cert}
	if err := resolution.Validate(v); err == nil {
		t.Fatalf("expected insufficient power error, got nil")
	}
}

func TestResolutionValidateAcceptsQuorum(t *testing.T) {
	v, sks := testView(4)
	increments := []Increment{{Member: v.Members()[0], Remove: true}}
	stmt := transitionBody{H: crypto.HeaderResolution, Source: v.Hash(), Increments: increments}
	cert := certify(t, v, sks, stmt, crypto.ThresholdQuorum)

	resolution := Resolution{Source: v.Hash(), Increments: increments, Certificate: *cert}
	if err := resolution.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestNextMembersRemoval(t *testing.T) {
	v, _ := testView(3)
	target := v.Members()[1]
	increments := []Increment{{Member: target, Remove: true}}

	next := nextMembers(v, increments)
	if len(next) != v.N()-1 {
		t.Fatalf("got %d members, want %d", len(next), v.N()-1)
	}
	for _, m := range next {
		if m.Identity == target.Identity {
			t.Fatalf("removed member still present")
		}
	}
}
