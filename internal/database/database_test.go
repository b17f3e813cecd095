package database

import (
	"testing"

	"carbon/internal/account"
)

func mkPrepare(id account.ID, height uint64, tag byte) account.Prepare {
	var commitment [32]byte
	commitment[0] = tag
	return account.Prepare{ID: id, Height: height, Commitment: commitment}
}

func TestPrepareLedgerDetectsEquivocation(t *testing.T) {
	ledger := NewPrepareLedger()

	p1 := mkPrepare(1, 1, 0xAA)
	eq, err := ledger.Record(1, 1, p1.Commitment, StandaloneHandle{E: account.Extract{Prepare: p1}})
	if err != nil || eq != nil {
		t.Fatalf("first prepare should be accepted cleanly: eq=%v err=%v", eq, err)
	}

	p2 := mkPrepare(1, 1, 0xBB)
	eq, err = ledger.Record(1, 1, p2.Commitment, StandaloneHandle{E: account.Extract{Prepare: p2}})
	if err != nil {
		t.Fatalf("conflicting prepare: %v", err)
	}
	if eq == nil {
		t.Fatalf("expected an equivocation to be detected")
	}
	if eq.First.Prepare.Commitment != p1.Commitment || eq.Second.Prepare.Commitment != p2.Commitment {
		t.Fatalf("equivocation evidence mismatch")
	}

	// A third, unrelated prepare at the same height must also report the
	// stored equivocation rather than re-deriving it.
	p3 := mkPrepare(1, 1, 0xCC)
	eq2, err := ledger.Record(1, 1, p3.Commitment, StandaloneHandle{E: account.Extract{Prepare: p3}})
	if err != nil || eq2 != eq {
		t.Fatalf("expected the same cached equivocation to be returned")
	}
}

func TestPrepareLedgerDuplicateIsHarmless(t *testing.T) {
	ledger := NewPrepareLedger()
	p := mkPrepare(2, 1, 0x01)
	handle := StandaloneHandle{E: account.Extract{Prepare: p}}

	if _, err := ledger.Record(2, 1, p.Commitment, handle); err != nil {
		t.Fatalf("first record: %v", err)
	}
	eq, err := ledger.Record(2, 1, p.Commitment, handle)
	if err != nil || eq != nil {
		t.Fatalf("duplicate prepare must not be treated as equivocation: eq=%v err=%v", eq, err)
	}
}

func TestPrepareLedgerStaleRejected(t *testing.T) {
	ledger := NewPrepareLedger()
	p1 := mkPrepare(3, 5, 0x01)
	if _, err := ledger.Record(3, 5, p1.Commitment, StandaloneHandle{E: account.Extract{Prepare: p1}}); err != nil {
		t.Fatalf("record: %v", err)
	}

	p0 := mkPrepare(3, 4, 0x02)
	if _, err := ledger.Record(3, 4, p0.Commitment, StandaloneHandle{E: account.Extract{Prepare: p0}}); err != ErrStalePrepare {
		t.Fatalf("expected ErrStalePrepare, got %v", err)
	}
}

func TestPrepareBatchHolderUnrefCollects(t *testing.T) {
	prepares := []account.Prepare{mkPrepare(1, 1, 1), mkPrepare(2, 1, 2)}
	batch, err := NewPrepareBatch(prepares, nil)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}
	holder := NewPrepareBatchHolder(batch)

	if holder.Unref(0) {
		t.Fatalf("holder should not be collectible after only one unref")
	}
	if !holder.Unref(1) {
		t.Fatalf("holder should be collectible once every entry is unreferenced")
	}
}

func TestCommitLedgerInstallIsIdempotent(t *testing.T) {
	payloads := []account.Payload{
		{Entry: account.Entry{ID: 1, Height: 1}, Operation: account.MintOp{Amount: 10}},
	}
	batch, err := NewCommitBatch(payloads, nil)
	if err != nil {
		t.Fatalf("new batch: %v", err)
	}

	ledger := NewCommitLedger()
	h1 := ledger.Install(batch)
	h2 := ledger.Install(batch)
	if h1 != h2 {
		t.Fatalf("installing the same batch twice should return the same holder")
	}

	handle, ok := ledger.Lookup(account.Entry{ID: 1, Height: 1})
	if !ok {
		t.Fatalf("expected payload to be indexed")
	}
	if handle.Payload().Entry.ID != 1 {
		t.Fatalf("resolved payload has wrong entry")
	}
}

func TestAccountsApplyPersists(t *testing.T) {
	accounts := NewAccounts(account.DefaultSettings())
	payload := account.Payload{Entry: account.Entry{ID: 9, Height: 1}, Operation: account.MintOp{Amount: 50}}
	acc, ok := accounts.Apply(payload, nil)
	if !ok || acc.Height() != 1 {
		t.Fatalf("apply failed: ok=%v height=%d", ok, acc.Height())
	}

	again := accounts.Get(9)
	if again.Height() != 1 {
		t.Fatalf("expected persisted state, got height %d", again.Height())
	}
}
