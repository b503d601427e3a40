// File: internal/services/identity/watcher.go
package identity

import (
	"sync"

	"github.com/altracloud/altrachat/internal/domain"
)

// Event reports a change of the signed-in user. Identity is nil on sign-out.
type Event struct {
	UID      string
	Identity *domain.UserIdentity
}

// SignedOut reports whether the event is a sign-out.
func (e Event) SignedOut() bool {
	return e.Identity == nil
}

// Watcher fans identity changes out to subscribers.
type Watcher struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (w *Watcher) Subscribe(fn func(Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Publish calls every subscriber synchronously.
func (w *Watcher) Publish(e Event) {
	w.mu.RLock()
	fns := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
