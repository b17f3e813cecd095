package prepare

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/database"
	"carbon/internal/ping"
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
	return view.New([32]byte{2}, members), sks
}

// replicaSet wires a Replica per view member, backed by its own database,
// and exposes an EndorseFunc that dispatches to the right one by identity.
type replicaSet struct {
	byIdentity map[crypto.Identity]*Replica
}

func newReplicaSet(v *view.View, sks []crypto.PrivateKey) *replicaSet {
	rs := &replicaSet{byIdentity: make(map[crypto.Identity]*Replica, len(sks))}
	for i, m := range v.Members() {
		db := database.New(account.DefaultSettings())
		rs.byIdentity[m.Identity] = NewReplica(db, sks[i], v)
	}
	return rs
}

func (rs *replicaSet) endorse(_ context.Context, identity crypto.Identity, batch *database.PrepareBatch) (Verdict, error) {
	return rs.byIdentity[identity].Endorse(batch), nil
}

func (rs *replicaSet) witness(_ context.Context, identity crypto.Identity, root [32]byte) (crypto.Shard, error) {
	return rs.byIdentity[identity].Witness(root), nil
}

func (rs *replicaSet) commit(_ context.Context, identity crypto.Identity, batch *database.PrepareBatch) (CommitVerdict, error) {
	return rs.byIdentity[identity].Commit(batch), nil
}

func TestBrokerSubmitProducesCertifiedExtract(t *testing.T) {
	v, sks := newTestView(4)
	rs := newReplicaSet(v, sks)
	board := ping.New(v.Members())

	b := NewBroker(v, board, rs.endorse, rs.witness, rs.commit, Settings{SpongeCapacity: 8, SpongeTimeout: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	op := account.MintOp{Amount: 10}
	extract, err := b.Submit(context.Background(), account.ID(1), 1, op)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if extract.Prepare.ID != account.ID(1) || extract.Prepare.Height != 1 {
		t.Fatalf("unexpected prepare in extract: %+v", extract.Prepare)
	}
	if extract.Prepare.Commitment != account.Commitment(op) {
		t.Fatalf("extract commitment does not match submitted operation")
	}
	if extract.Witness == nil {
		t.Fatalf("extract missing witness certificate")
	}
	if extract.Witness.Power() < v.Plurality() {
		t.Fatalf("witness certificate power %d below plurality %d", extract.Witness.Power(), v.Plurality())
	}
	root := singleLeafRoot(extract.Prepare.Bytes())
	if err := extract.Witness.VerifyPlurality(v, crypto.WitnessStatement(root)); err != nil {
		t.Fatalf("witness does not verify: %v", err)
	}
	if err := extract.Proof.Verify(root); err != nil {
		t.Fatalf("inclusion proof does not verify: %v", err)
	}
}

func singleLeafRoot(leaf []byte) [32]byte {
	return sha256.Sum256(leaf)
}

func TestBrokerBatchesConcurrentSubmissions(t *testing.T) {
	v, sks := newTestView(4)
	rs := newReplicaSet(v, sks)
	board := ping.New(v.Members())

	b := NewBroker(v, board, rs.endorse, rs.witness, rs.commit, Settings{SpongeCapacity: 4, SpongeTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	type outcome struct {
		extract account.Extract
		err     error
	}
	results := make(chan outcome, 4)
	for i := 0; i < 4; i++ {
		i := i
		go func() {
			extract, err := b.Submit(context.Background(), account.ID(i+1), 1, account.MintOp{Amount: uint64(i)})
			results <- outcome{extract, err}
		}()
	}

	var witnesses = map[*crypto.Certificate]bool{}
	for i := 0; i < 4; i++ {
		o := <-results
		if o.err != nil {
			t.Fatalf("submit %d: %v", i, o.err)
		}
		witnesses[o.extract.Witness] = true
	}
	if len(witnesses) != 1 {
		t.Fatalf("expected all 4 submissions to share one batch witness, got %d distinct witnesses", len(witnesses))
	}
}
