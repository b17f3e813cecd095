package account

import "errors"

// Operation-level errors. None of these cross a session boundary (spec.md
// §7: "application error ... not an error to the replica"); they only
// decide whether apply corrupts the account.
var (
	ErrOverdraft          = errors.New("account: overdraft")
	ErrDependencyMismatch = errors.New("account: dependency mismatch")
	ErrSlotNotMonotone    = errors.New("account: withdraw slot not monotone")
	ErrMotionCapacity     = errors.New("account: motion capacity exceeded")
	ErrUnknownMotion      = errors.New("account: abandon of unknown motion")
)
