package crypto

import "testing"

type fakeView struct {
	members   []Member
	plurality int
	quorum    int
}

func (v fakeView) Hash() [32]byte  { return [32]byte{} }
func (v fakeView) Members() []Member { return v.members }
func (v fakeView) Plurality() int  { return v.plurality }
func (v fakeView) Quorum() int     { return v.quorum }

func newTestView(n int) (fakeView, []PrivateKey) {
	sks := make([]PrivateKey, n)
	members := make([]Member, n)
	for i := 0; i < n; i++ {
		sks[i] = GeneratePrivateKey()
		var id Identity
		id[0] = byte(i + 1)
		members[i] = Member{Identity: id, Keycard: sks[i].Public()}
	}
	return fakeView{members: members, plurality: (n-1)/3 + 1, quorum: n - (n-1)/3}, sks
}

func TestAggregatorFinalizeQuorum(t *testing.T) {
	v, sks := newTestView(4)
	stmt := WitnessStatement([32]byte{1, 2, 3})
	agg := NewAggregator(v, stmt)

	for i, sk := range sks[:v.Quorum()] {
		if err := agg.Add(v.Members()[i].Identity, sk.Public(), sk.Sign(stmt)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	cert, err := agg.Finalize(ThresholdQuorum)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if cert.Power() != v.Quorum() {
		t.Fatalf("power = %d, want %d", cert.Power(), v.Quorum())
	}
	if err := cert.VerifyQuorum(v, stmt); err != nil {
		t.Fatalf("verify quorum: %v", err)
	}
}

func TestAggregatorInsufficientPower(t *testing.T) {
	v, sks := newTestView(4)
	stmt := WitnessStatement([32]byte{9})
	agg := NewAggregator(v, stmt)

	if err := agg.Add(v.Members()[0].Identity, sks[0].Public(), sks[0].Sign(stmt)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := agg.Finalize(ThresholdQuorum); err != ErrInsufficientPower {
		t.Fatalf("expected ErrInsufficientPower, got %v", err)
	}
}

func TestAggregatorRejectsForeignIdentity(t *testing.T) {
	v, _ := newTestView(4)
	stmt := WitnessStatement([32]byte{1})
	agg := NewAggregator(v, stmt)

	outsider := GeneratePrivateKey()
	var foreign Identity
	foreign[0] = 0xFF
	if err := agg.Add(foreign, outsider.Public(), outsider.Sign(stmt)); err != ErrForeignComponent {
		t.Fatalf("expected ErrForeignComponent, got %v", err)
	}
}

func TestAggregatorRejectsInvalidShard(t *testing.T) {
	v, sks := newTestView(4)
	stmt := WitnessStatement([32]byte{1})
	other := WitnessStatement([32]byte{2})
	agg := NewAggregator(v, stmt)

	badShard := sks[0].Sign(other)
	if err := agg.Add(v.Members()[0].Identity, sks[0].Public(), badShard); err != ErrShardInvalid {
		t.Fatalf("expected ErrShardInvalid, got %v", err)
	}
}

func TestDistinctPowerRejectsOverlap(t *testing.T) {
	v, sks := newTestView(4)
	stmt := WitnessStatement([32]byte{1})

	mk := func(idx ...int) *Certificate {
		a := NewAggregator(v, stmt)
		for _, i := range idx {
			_ = a.Add(v.Members()[i].Identity, sks[i].Public(), sks[i].Sign(stmt))
		}
		c, err := a.Finalize(ThresholdAny)
		if err != nil {
			t.Fatalf("finalize: %v", err)
		}
		return c
	}

	a := mk(0, 1)
	b := mk(1, 2)
	if _, _, err := DistinctPower([]*Certificate{a, b}); err != ErrDuplicateSigner {
		t.Fatalf("expected ErrDuplicateSigner, got %v", err)
	}

	c := mk(2, 3)
	if _, power, err := DistinctPower([]*Certificate{a, c}); err != nil || power != 4 {
		t.Fatalf("distinct power = %d, err = %v", power, err)
	}
}
