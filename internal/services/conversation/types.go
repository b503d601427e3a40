// File: internal/services/conversation/types.go
package conversation

import (
	"context"

	"github.com/altracloud/altrachat/internal/domain"
)

// State is where the controller is in a turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// ThreadStore is the part of the thread store the controller writes to.
type ThreadStore interface {
	CurrentID() string
	AppendMessage(ctx context.Context, threadID string, msg domain.Message) error
}

// Logger defines the logging interface used by the controller
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
