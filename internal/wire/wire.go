// Package wire defines the tagged request/response bodies exchanged over
// internal/transport: client-facing Signup/Prepare/Commit requests and
// their responses, each wrapped in an Envelope carrying a "kind"
// discriminator so one listener can multiplex several message shapes
// (spec.md §6). Grounded on the teacher's walletserver JSON request/response
// handler style, generalized from HTTP handlers to framed Session messages.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates an Envelope's Body.
type Kind string

const (
	KindSignupRequest   Kind = "signup_request"
	KindSignupResponse  Kind = "signup_response"
	KindPrepareRequest  Kind = "prepare_request"
	KindPrepareResponse Kind = "prepare_response"
	KindCommitRequest   Kind = "commit_request"
	KindCommitResponse  Kind = "commit_response"
)

// Envelope is the outermost shape sent over a Session. ID tags the
// envelope for log correlation across the broker's fan-out to the replica
// set — it carries no protocol meaning and is never checked by a handler.
type Envelope struct {
	ID   string          `json:"id"`
	Kind Kind            `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// Wrap encodes v as the Body of a Kind-tagged Envelope, stamping it with a
// fresh ID.
func Wrap(kind Kind, v any) (Envelope, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: encode %s body: %w", kind, err)
	}
	return Envelope{ID: uuid.New().String(), Kind: kind, Body: body}, nil
}

// Unwrap decodes e's Body into v.
func (e Envelope) Unwrap(v any) error {
	if err := json.Unmarshal(e.Body, v); err != nil {
		return fmt.Errorf("wire: decode %s body: %w", e.Kind, err)
	}
	return nil
}
