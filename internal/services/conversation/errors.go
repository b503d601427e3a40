// File: internal/services/conversation/errors.go
package conversation

import "errors"

var (
	// ErrRequestInFlight rejects a submit while a reply is still pending.
	ErrRequestInFlight = errors.New("a reply is already pending")
	ErrEmptyInput      = errors.New("message cannot be empty")
	ErrInvalidMode     = errors.New("unknown mode")
	ErrNoActiveThread  = errors.New("no active thread")
	// ErrCompletionFailed wraps every remote completion failure.
	ErrCompletionFailed = errors.New("completion failed")
)
