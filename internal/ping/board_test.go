package ping

import (
	"testing"
	"time"

	"carbon/internal/crypto"
)

func TestRankingsSortsByLatestSubmission(t *testing.T) {
	members := make([]crypto.Member, 3)
	for i := range members {
		members[i].Identity[0] = byte(i + 1)
	}
	b := New(members)

	b.Submit(members[2].Identity, 3*time.Second)
	b.Submit(members[0].Identity, 1*time.Second)
	b.Submit(members[1].Identity, 2*time.Second)

	rankings := b.Rankings()
	want := []crypto.Identity{members[0].Identity, members[1].Identity, members[2].Identity}
	for i := range want {
		if rankings[i] != want[i] {
			t.Fatalf("rankings[%d] = %v, want %v", i, rankings[i], want[i])
		}
	}
}

func TestFailedPingRanksWorst(t *testing.T) {
	members := make([]crypto.Member, 2)
	members[0].Identity[0] = 1
	members[1].Identity[0] = 2
	b := New(members)

	b.Submit(members[0].Identity, 500*time.Millisecond)
	b.Submit(members[1].Identity, 10*time.Millisecond)
	b.Fail(members[1].Identity)

	rankings := b.Rankings()
	if rankings[0] != members[0].Identity {
		t.Fatalf("expected previously-pinged replica to rank first after the other failed")
	}
}
