// File: internal/services/ai/interface.go
package ai

import (
	"context"

	"github.com/altracloud/altrachat/internal/domain"
)

// ResponseTypeImage marks a completion whose Response is an image URL or data URI.
const ResponseTypeImage = "image"

// Completion is the reply for one message.
type Completion struct {
	Response string `json:"response"`
	Type     string `json:"type,omitempty"`
}

// IsImage reports whether the completion stands for a whole-message image.
func (c Completion) IsImage() bool {
	return c.Type == ResponseTypeImage
}

// Completer sends one user message in the given mode and returns the reply.
type Completer interface {
	Complete(ctx context.Context, message string, mode domain.Mode) (Completion, error)
}

// Logger defines the logging interface used by AI clients
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
