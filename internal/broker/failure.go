package broker

import "carbon/internal/account"

// FailureKind tags a broker.Failure's variant.
type FailureKind int

const (
	// FailureThrottle: an earlier submission in the same batch already
	// carried this account id, so this one was dropped from the batch.
	FailureThrottle FailureKind = iota
	// FailureCollision: two brokered entries in the same batch collided
	// (same id+height submitted twice with different operations).
	FailureCollision
	// FailureError: a certificate could not be collected from the replica
	// set within the retry budget.
	FailureError
)

// Failure is the tagged-union outcome a broker submission can end in,
// grounded on original_source/src/brokers/*/broker_failure.rs.
type Failure struct {
	Kind     FailureKind
	Brokered []account.Entry // FailureCollision: entries the broker already committed to
	Collided []account.Entry // FailureCollision: entries that collided with them
	Err      error           // FailureError
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureThrottle:
		return "broker: throttled"
	case FailureCollision:
		return "broker: collision between brokered and submitted entries"
	default:
		if f.Err != nil {
			return "broker: " + f.Err.Error()
		}
		return "broker: error"
	}
}
