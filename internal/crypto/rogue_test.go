package crypto

import "testing"

func TestRogueProof(t *testing.T) {
	sk := GeneratePrivateKey()
	proof := NewRogueProof(sk)
	if err := proof.Validate(sk.Public()); err != nil {
		t.Fatalf("validate: %v", err)
	}

	other := GeneratePrivateKey()
	if err := proof.Validate(other.Public()); err == nil {
		t.Fatalf("expected validation failure against foreign keycard")
	}
}
