// File: internal/domain/thread.go
package domain

import "time"

const (
	// DefaultThreadTitle is shown until the first user message names the thread.
	DefaultThreadTitle = "New Chat"

	// GreetingMessage seeds every new thread so that none is ever persisted empty.
	GreetingMessage = "Hello! I'm AltraChat. How can I help you today?"
)

// Thread represents a single conversation thread.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`

	// TitleSet records that the title was derived or renamed and must not change again.
	TitleSet bool `json:"titleSet,omitempty"`
}

// ThreadSummary is the sidebar view of a thread.
type ThreadSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the id/title/createdAt projection of the thread.
func (t *Thread) Summary() ThreadSummary {
	return ThreadSummary{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt}
}

// Clone returns a copy whose message slice does not alias the original.
func (t *Thread) Clone() Thread {
	c := *t
	c.Messages = append([]Message(nil), t.Messages...)
	return c
}
