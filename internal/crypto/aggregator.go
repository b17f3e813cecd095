package crypto

import "sync"

// Threshold names the power bar Finalize must clear.
type Threshold int

const (
	// ThresholdPlurality requires power >= view.Plurality().
	ThresholdPlurality Threshold = iota
	// ThresholdQuorum requires power >= view.Quorum().
	ThresholdQuorum
	// ThresholdAny finalizes with whatever power has accumulated,
	// even zero — used by callers that only want the aggregate bytes
	// and perform their own threshold check.
	ThresholdAny
)

type component struct {
	identity Identity
	shard    Shard
}

// Aggregator accumulates per-identity shards over a single statement and
// produces a Certificate once enough distinct, verified shards have been
// added.
type Aggregator struct {
	view ViewSet
	stmt Statement

	mu         sync.Mutex
	seen       map[Identity]bool
	components []component
}

// NewAggregator constructs an aggregator for stmt over the given view.
func NewAggregator(v ViewSet, stmt Statement) *Aggregator {
	return &Aggregator{
		view: v,
		stmt: stmt,
		seen: make(map[Identity]bool),
	}
}

// Add verifies shard against keycard and the aggregator's statement, then
// appends (identity, shard) if the identity is a view member and has not
// already contributed. Re-adding the same identity is a silent no-op —
// callers race independent replica responses and duplicates are routine.
func (a *Aggregator) Add(identity Identity, keycard PublicKey, shard Shard) error {
	if !a.isMember(identity) {
		return ErrForeignComponent
	}
	if err := keycard.Verify(a.stmt, shard); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[identity] {
		return nil
	}
	a.seen[identity] = true
	a.components = append(a.components, component{identity: identity, shard: shard})
	return nil
}

func (a *Aggregator) isMember(id Identity) bool {
	for _, m := range a.view.Members() {
		if m.Identity == id {
			return true
		}
	}
	return false
}

// Power reports the number of distinct shards collected so far.
func (a *Aggregator) Power() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.components)
}

// Finalize sets, for each collected component, the bit at its signer's
// index in the view's canonical member list, aggregates the signatures in
// the order they were added (BLS aggregation is order-insensitive) and
// returns the resulting Certificate. It fails with ErrInsufficientPower if the
// collected power does not clear threshold.
func (a *Aggregator) Finalize(threshold Threshold) (*Certificate, error) {
	a.mu.Lock()
	comps := make([]component, len(a.components))
	copy(comps, a.components)
	a.mu.Unlock()

	members := a.view.Members()
	bm := NewBitmap(len(members))
	shards := make([]Shard, 0, len(comps))

	for _, c := range comps {
		for i, m := range members {
			if m.Identity == c.identity {
				bm.Set(i)
				break
			}
		}
		shards = append(shards, c.shard)
	}

	required := 0
	switch threshold {
	case ThresholdPlurality:
		required = a.view.Plurality()
	case ThresholdQuorum:
		required = a.view.Quorum()
	case ThresholdAny:
		required = 0
	}
	if bm.Power() < required {
		return nil, ErrInsufficientPower
	}
	if len(shards) == 0 {
		return &Certificate{Signers: bm, Signature: nil}, nil
	}

	agg, err := Aggregate(shards)
	if err != nil {
		return nil, err
	}
	return &Certificate{Signers: bm, Signature: agg}, nil
}
