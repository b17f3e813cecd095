package wire

import (
	"testing"

	"carbon/internal/account"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req, err := NewPrepareRequest(7, 1, account.MintOp{Amount: 42})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	env, err := Wrap(KindPrepareRequest, req)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if env.Kind != KindPrepareRequest {
		t.Fatalf("kind = %s, want %s", env.Kind, KindPrepareRequest)
	}

	var decoded PrepareRequest
	if err := env.Unwrap(&decoded); err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if decoded.ID != 7 || decoded.Height != 1 {
		t.Fatalf("decoded request mismatch: %+v", decoded)
	}

	op, err := decoded.Decode()
	if err != nil {
		t.Fatalf("decode operation: %v", err)
	}
	mint, ok := op.(account.MintOp)
	if !ok || mint.Amount != 42 {
		t.Fatalf("decoded operation mismatch: %+v", op)
	}
}
