// File: internal/handlers/views.go
package handlers

import (
	"time"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/services/format"
)

type userView struct {
	domain.UserIdentity
	Initial string `json:"initial"`
}

func newUserView(u domain.UserIdentity) userView {
	return userView{UserIdentity: u, Initial: u.Initial()}
}

// messageView is a stored message plus its formatted segments.
type messageView struct {
	Content   string             `json:"content"`
	Sender    domain.Sender      `json:"sender"`
	Timestamp time.Time          `json:"timestamp"`
	Kind      domain.MessageKind `json:"kind,omitempty"`
	Segments  []domain.Segment   `json:"segments"`
}

func newMessageView(m domain.Message) messageView {
	return messageView{
		Content:   m.Content,
		Sender:    m.Sender,
		Timestamp: m.Timestamp,
		Kind:      m.Kind,
		Segments:  format.FormatMessage(m),
	}
}

type threadListView struct {
	CurrentThreadID string                 `json:"currentThreadId"`
	Threads         []domain.ThreadSummary `json:"threads"`
}
