// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
)

// GenericFailureMessage is what users see when nothing more specific is known.
const GenericFailureMessage = "Failed to get response"

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeHTTP       ErrorType = "HTTP"
	ErrTypePayload    ErrorType = "PAYLOAD"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeValidation ErrorType = "VALIDATION"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Mode      string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewNetworkError(operation string, cause error) *AIError {
	return &AIError{Type: ErrTypeNetwork, Operation: operation, Message: GenericFailureMessage, Cause: cause}
}

func NewHTTPError(operation string, status int, msg string) *AIError {
	if msg == "" {
		msg = GenericFailureMessage
	}
	return &AIError{Type: ErrTypeHTTP, Operation: operation, Code: status, Message: msg}
}

func NewPayloadError(operation string, cause error) *AIError {
	return &AIError{Type: ErrTypePayload, Operation: operation, Message: GenericFailureMessage, Cause: cause}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

// UserMessage returns the reason to show in a notification for err.
func UserMessage(err error) string {
	var aiErr *AIError
	if errors.As(err, &aiErr) && aiErr.Message != "" {
		return aiErr.Message
	}
	return GenericFailureMessage
}
