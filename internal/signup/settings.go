// Package signup implements the C6 identity-acquisition protocol (spec.md
// §4.6): a client proves rogue-safety and spends proof-of-work to request an
// Id from an assigner replica, which allocates one from its slice of the Id
// space and the view certifies the resulting claim into an IdAssignment.
// Grounded on original_source/src/signup/*.
package signup

// Settings bounds proof-of-work cost and allocator retry behavior.
type Settings struct {
	WorkDifficulty   uint8
	PriorityAttempts int
}

// DefaultSettings mirrors original_source/src/signup/signup_settings.rs,
// widened with the priority-retry knob spec.md §4.6 adds.
func DefaultSettings() Settings {
	return Settings{WorkDifficulty: 8, PriorityAttempts: 8}
}
