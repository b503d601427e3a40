// File: internal/domain/message.go
package domain

import "time"

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageKind is a rendering hint recorded when the message is created.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindCode  MessageKind = "code"
)

// Message represents a single message within a thread. Content is stored raw
// and never rewritten; formatting happens when it is rendered.
type Message struct {
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"kind,omitempty"`
}

// NewUserMessage builds a message typed by the user.
func NewUserMessage(content string, at time.Time) Message {
	return Message{Content: content, Sender: SenderUser, Timestamp: at, Kind: KindText}
}

// NewAssistantMessage builds a reply from the assistant.
func NewAssistantMessage(content string, kind MessageKind, at time.Time) Message {
	if kind == "" {
		kind = KindText
	}
	return Message{Content: content, Sender: SenderAssistant, Timestamp: at, Kind: kind}
}
