package merkle

import "testing"

func identityLeaf(b []byte) []byte { return b }

func TestVectorRoundTrip(t *testing.T) {
	items := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	v, err := New(items, identityLeaf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	root := v.Root()

	for i := range items {
		proof, err := v.Prove(i)
		if err != nil {
			t.Fatalf("prove %d: %v", i, err)
		}
		if err := proof.Verify(root); err != nil {
			t.Fatalf("verify %d: %v", i, err)
		}
	}
}

func TestVectorRejectsWrongLeafOrRoot(t *testing.T) {
	items := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	v, _ := New(items, identityLeaf)
	root := v.Root()

	proof, _ := v.Prove(1)
	proof.Leaf = []byte("tampered")
	if err := proof.Verify(root); err == nil {
		t.Fatalf("expected verification failure for tampered leaf")
	}

	proof2, _ := v.Prove(1)
	if err := proof2.Verify([32]byte{0xFF}); err == nil {
		t.Fatalf("expected verification failure for wrong root")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New[[]byte](nil, identityLeaf); err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSetExportExcludesNamedItems(t *testing.T) {
	items := [][]byte{[]byte("d0"), []byte("d1"), []byte("d2"), []byte("d3")}
	s, err := NewSet(items, identityLeaf)
	if err != nil {
		t.Fatalf("new set: %v", err)
	}

	exported, err := s.Export(map[int]bool{2: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported.Included) != 3 || len(exported.ExcludedIndices) != 1 {
		t.Fatalf("unexpected export shape: %+v", exported)
	}
	if err := exported.Verify(); err != nil {
		t.Fatalf("verify export: %v", err)
	}
}
