// File: internal/services/identity/interface.go
package identity

import (
	"context"
	"errors"

	"github.com/altracloud/altrachat/internal/domain"
)

// ErrInvalidCredential is returned when a sign-in credential cannot be verified.
var ErrInvalidCredential = errors.New("invalid sign-in credential")

// Provider signs users in and out against an external identity service.
type Provider interface {
	SignIn(ctx context.Context, credential string) (domain.UserIdentity, error)
	SignOut(ctx context.Context, identity domain.UserIdentity) error
}

// Logger defines the logging interface used by identity providers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
