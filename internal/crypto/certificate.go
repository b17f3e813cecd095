package crypto

// Certificate is a bitvector of signers over a view's member list plus the
// aggregated multisignature those signers produced over one statement.
type Certificate struct {
	Signers   Bitmap
	Signature AggregateSignature
}

// Power is the number of distinct signers, i.e. Signers.Power().
func (c *Certificate) Power() int { return c.Signers.Power() }

// VerifyThreshold requires Power >= k and re-derives the signer keycard set
// from the bitvector (view members in canonical order), then verifies the
// aggregate signature against that set.
func (c *Certificate) VerifyThreshold(v ViewSet, stmt Statement, k int) error {
	if c.Power() < k {
		return ErrInsufficientPower
	}
	members := v.Members()
	keycards := make([]PublicKey, 0, c.Power())
	for i, m := range members {
		if c.Signers.Get(i) {
			keycards = append(keycards, m.Keycard)
		}
	}
	return VerifyAggregate(c.Signature, keycards, stmt)
}

// VerifyPlurality requires Power >= v.Plurality().
func (c *Certificate) VerifyPlurality(v ViewSet, stmt Statement) error {
	return c.VerifyThreshold(v, stmt, v.Plurality())
}

// VerifyQuorum requires Power >= v.Quorum().
func (c *Certificate) VerifyQuorum(v ViewSet, stmt Statement) error {
	return c.VerifyThreshold(v, stmt, v.Quorum())
}

// DistinctPower ORs the bitvectors of certs together, failing if any two
// share a signer — used for accountability when combining certificates
// from independent rounds (e.g. commit-stage dependency collection).
func DistinctPower(certs []*Certificate) (Bitmap, int, error) {
	if len(certs) == 0 {
		return nil, 0, nil
	}
	union := make(Bitmap, len(certs[0].Signers))
	copy(union, certs[0].Signers)
	for _, c := range certs[1:] {
		if union.Overlaps(c.Signers) {
			return nil, 0, ErrDuplicateSigner
		}
		union = union.Or(c.Signers)
	}
	return union, union.Power(), nil
}
