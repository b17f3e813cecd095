package account

import "testing"

func TestWithdrawThenDeposit(t *testing.T) {
	settings := DefaultSettings()
	a := New(ID(1))

	a, ok := a.Apply(Payload{Entry: Entry{ID: 1, Height: 1}, Operation: MintOp{Amount: 100}}, nil, settings)
	if !ok || a.Height() != 1 {
		t.Fatalf("mint failed: ok=%v height=%d", ok, a.Height())
	}

	withdraw := WithdrawOp{Beneficiary: 1, Slot: 0, Amount: 30}
	a, ok = a.Apply(Payload{Entry: Entry{ID: 1, Height: 2}, Operation: withdraw}, nil, settings)
	if !ok {
		t.Fatalf("withdraw failed")
	}
	if bal := a.(*CorrectAccount).Balance(); bal != 70 {
		t.Fatalf("balance after withdraw = %d, want 70", bal)
	}

	deposit := DepositOp{Withdraw: Entry{ID: 1, Height: 2}, Collect: false}
	a, ok = a.Apply(Payload{Entry: Entry{ID: 1, Height: 3}, Operation: deposit}, withdraw, settings)
	if !ok {
		t.Fatalf("deposit failed")
	}
	if bal := a.(*CorrectAccount).Balance(); bal != 100 {
		t.Fatalf("balance after deposit = %d, want 100", bal)
	}
	if !a.IsCorrect() {
		t.Fatalf("account should remain correct")
	}
}

func TestOverdraftCorrupts(t *testing.T) {
	settings := DefaultSettings()
	a := New(ID(2))

	a, ok := a.Apply(Payload{Entry: Entry{ID: 2, Height: 1}, Operation: MintOp{Amount: 10}}, nil, settings)
	if !ok {
		t.Fatalf("mint failed")
	}

	a, ok = a.Apply(Payload{Entry: Entry{ID: 2, Height: 2}, Operation: WithdrawOp{Beneficiary: 2, Slot: 0, Amount: 20}}, nil, settings)
	if ok {
		t.Fatalf("expected overdraft to fail apply")
	}
	if a.IsCorrect() {
		t.Fatalf("expected account to be corrupted after overdraft")
	}
	if a.Height() != 2 {
		t.Fatalf("corrupted height = %d, want 2 (height still advances)", a.Height())
	}
}

func TestIdempotentReplay(t *testing.T) {
	settings := DefaultSettings()
	a := New(ID(3))
	a, _ = a.Apply(Payload{Entry: Entry{ID: 3, Height: 1}, Operation: MintOp{Amount: 5}}, nil, settings)

	replayed, ok := a.Apply(Payload{Entry: Entry{ID: 3, Height: 1}, Operation: MintOp{Amount: 999}}, nil, settings)
	if !ok {
		t.Fatalf("replay at current height should return true on a Correct account")
	}
	if replayed.(*CorrectAccount).Balance() != 5 {
		t.Fatalf("replay must not re-apply the operation")
	}

	stale, ok := a.Apply(Payload{Entry: Entry{ID: 3, Height: 0}, Operation: MintOp{Amount: 999}}, nil, settings)
	if !ok || stale.(*CorrectAccount).Balance() != 5 {
		t.Fatalf("stale height replay should be a no-op")
	}
}

func TestCorruptedAbsorbing(t *testing.T) {
	settings := DefaultSettings()
	a := New(ID(4))
	a, _ = a.Apply(Payload{Entry: Entry{ID: 4, Height: 1}, Operation: WithdrawOp{Beneficiary: 4, Amount: 1}}, nil, settings)
	if a.IsCorrect() {
		t.Fatalf("expected immediate overdraft corruption")
	}

	a, ok := a.Apply(Payload{Entry: Entry{ID: 4, Height: 2}, Operation: MintOp{Amount: 100}}, nil, settings)
	if ok || a.IsCorrect() {
		t.Fatalf("corrupted account must never transition back to correct")
	}
}
