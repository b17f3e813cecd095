package signup

import (
	"math"

	"carbon/internal/account"
	"carbon/internal/crypto"
	"carbon/internal/view"
)

// AllocationRange returns the half-open [start, end) slice of the Id space
// an assigner member owns, splitting math.MaxUint64 evenly by member index.
// Grounded on original_source/src/signup/allocation_range.rs.
func AllocationRange(v *view.View, assigner crypto.Identity) (start, end account.ID, err error) {
	index := v.IndexOf(assigner)
	if index < 0 {
		return 0, 0, ErrUnknownAssigner
	}
	width := math.MaxUint64 / uint64(v.N())
	start = account.ID(uint64(index) * width)
	end = account.ID(uint64(index+1) * width)
	return start, end, nil
}

func inRange(id, start, end account.ID) bool {
	return id >= start && id < end
}
