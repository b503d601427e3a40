// File: internal/services/threads/errors.go
package threads

import "errors"

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrInvalidTitle   = errors.New("thread title cannot be empty")
	ErrNotLoaded      = errors.New("thread store has not been loaded")
)
