package account

import (
	"carbon/internal/crypto"
	"carbon/internal/merkle"
)

// Extract is a single prepare together with its witness certificate and
// Merkle inclusion proof — the evidence a replica keeps when it detects
// equivocation (spec.md Glossary: "Extract"). Grounded on
// original_source/src/commit/extract.rs, which pairs the same three
// pieces for identical reasons.
type Extract struct {
	Prepare Prepare
	Witness *crypto.Certificate
	Proof   merkle.Proof
}

// Equivocation is retained on an account once two accepted prepares at the
// same height carry different commitments (spec.md §4.3).
type Equivocation struct {
	First  Extract
	Second Extract
}
