package signup

import "errors"

var (
	ErrForeignView     = errors.New("signup: request carries a foreign view identifier")
	ErrForeignAssigner = errors.New("signup: request names a different assigner")
	ErrKeycardMismatch = errors.New("signup: claim keycard does not match its allocation")
	ErrIdOutOfRange    = errors.New("signup: allocated id falls outside the assigner's range")
	ErrUnknownAssigner = errors.New("signup: assigner is not a member of the view")
	ErrAlreadyClaimed  = errors.New("signup: id has already been claimed")
	ErrAlreadyAssigned = errors.New("signup: identity has already been allocated an id")
)
