package wire

import "carbon/internal/signup"

// SignupRequest is a client's bid for an account Id (spec.md §4.6 step 1).
type SignupRequest struct {
	Request signup.IdRequest `json:"request"`
}

// SignupResponse carries the certified assignment, or a failure reason.
type SignupResponse struct {
	Assignment *signup.IdAssignment `json:"assignment,omitempty"`
	Error      string                `json:"error,omitempty"`
}
