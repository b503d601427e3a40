// File: internal/services/conversation/notifications.go
package conversation

import (
	"sync"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient, dismissible message for the user.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notifier receives notifications meant for the user.
type Notifier interface {
	Notify(n Notification)
}

// NotificationQueue buffers notifications until the UI drains them. When full,
// the oldest entry is dropped.
type NotificationQueue struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

func NewNotificationQueue(max int) *NotificationQueue {
	if max <= 0 {
		max = 20
	}
	return &NotificationQueue{max: max}
}

func (q *NotificationQueue) Notify(n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Variant == "" {
		n.Variant = VariantDefault
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if len(q.items) > q.max {
		q.items = q.items[len(q.items)-q.max:]
	}
}

// Drain returns pending notifications oldest first and empties the queue.
func (q *NotificationQueue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len reports how many notifications are pending.
func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
