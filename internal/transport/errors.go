package transport

import "errors"

var (
	ErrConnectionFailed    = errors.New("transport: connection failed")
	ErrConnectionBroken    = errors.New("transport: connection broken")
	ErrUnexpectedMessage   = errors.New("transport: unexpected message")
	ErrFrameTooLarge       = errors.New("transport: frame exceeds maximum size")
)
