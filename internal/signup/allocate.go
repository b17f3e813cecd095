package signup

import (
	"math"
	"math/rand/v2"

	"carbon/internal/account"
)

// priorityRangeWidth bounds the shared, heavily-contended sub-range every
// allocator whose AllocationRange starts at zero draws from first —
// original_source/src/processing/processor/signup/handlers/id_requests.rs's
// `priority_range = 0..(u32::MAX as u64)`. Every other assigner's range
// starts well above this width, so only the first assigner ever contends
// on it; that contention is deliberate, since it is where a rogue
// requester racing for a specific low id would probe.
const priorityRangeWidth = account.ID(math.MaxUint32)

// PickID draws an id for a fresh signup out of [start, end). If the range
// starts at zero, up to priorityAttempts draws come from the shared
// priority sub-range before falling back to the full range; every other
// assigner draws from its full range from the start. free reports whether
// a drawn id is still unclaimed and unallocated; PickID keeps drawing
// until free returns true, mirroring original_source's allocate_id loop.
func PickID(start, end account.ID, priorityAttempts int, free func(account.ID) bool) account.ID {
	priorityAvailable := start == 0
	for attempt := 0; ; attempt++ {
		var id account.ID
		if priorityAvailable && attempt < priorityAttempts {
			id = account.ID(rand.Uint64N(uint64(priorityRangeWidth)))
		} else {
			id = start + account.ID(rand.Uint64N(uint64(end-start)))
		}
		if free(id) {
			return id
		}
	}
}
