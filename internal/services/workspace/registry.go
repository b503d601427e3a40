// File: internal/services/workspace/registry.go
package workspace

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/repository/blob"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/conversation"
	"github.com/altracloud/altrachat/internal/services/identity"
	"github.com/altracloud/altrachat/internal/services/threads"
)

// Logger defines the logging interface used by the registry
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Workspace is everything one signed-in user works with.
type Workspace struct {
	Identity      domain.UserIdentity
	Threads       *threads.Store
	Conversation  *conversation.Controller
	Notifications *conversation.NotificationQueue
}

type Config struct {
	CompletionTimeout time.Duration
	NotificationLimit int
}

// Registry hands out per-user workspaces, building them on first use.
type Registry struct {
	mu         sync.Mutex
	repo       blob.Repository
	completer  ai.Completer
	logger     Logger
	config     Config
	workspaces map[string]*entry
}

// entry is a registry slot. ready is closed once the load finished, after
// which ws or err is set and never changes.
type entry struct {
	ready chan struct{}
	ws    *Workspace
	err   error

	// a sign-out arrived while a turn was in flight
	closing bool
}

func NewRegistry(repo blob.Repository, completer ai.Completer, logger Logger, config Config) *Registry {
	return &Registry{
		repo:       repo,
		completer:  completer,
		logger:     logger,
		config:     config,
		workspaces: make(map[string]*entry),
	}
}

// StorageKey is the blob key holding a user's threads. The uid is hashed so
// that provider ids never appear in storage keys.
func StorageKey(uid string) string {
	sum := blake2b.Sum256([]byte(uid))
	return "threads:" + hex.EncodeToString(sum[:])
}

// For returns the user's workspace, loading their threads if needed.
// Concurrent calls for one user share a single load; loads for different
// users do not wait on each other.
func (r *Registry) For(ctx context.Context, user domain.UserIdentity) (*Workspace, error) {
	if err := user.IsValid(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	e, ok := r.workspaces[user.UID]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		r.workspaces[user.UID] = e
	}
	r.mu.Unlock()

	if !ok {
		r.open(ctx, user, e)
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e.closing = false
	e.ws.Identity = user
	return e.ws, nil
}

func (r *Registry) open(ctx context.Context, user domain.UserIdentity, e *entry) {
	defer close(e.ready)

	store := threads.NewStore(r.repo, StorageKey(user.UID), r.logger)
	if err := store.Load(ctx); err != nil {
		r.logger.Error("failed to load workspace", "uid", user.UID, "error", err)
		e.err = err
		r.mu.Lock()
		if r.workspaces[user.UID] == e {
			delete(r.workspaces, user.UID)
		}
		r.mu.Unlock()
		return
	}

	queue := conversation.NewNotificationQueue(r.config.NotificationLimit)
	e.ws = &Workspace{
		Identity:      user,
		Threads:       store,
		Notifications: queue,
		Conversation: conversation.NewController(store, r.completer, queue, r.logger, conversation.Config{
			Timeout: r.config.CompletionTimeout,
			OnIdle:  func() { r.closeIfPending(user.UID, e) },
		}),
	}
	r.logger.Debug("workspace opened", "uid", user.UID)
}

// Evict drops the cached workspace. Persisted threads are kept. A workspace
// whose turn is still in flight stays until the turn ends, so the reply is
// recorded by the same store and no second controller can start a turn.
func (r *Registry) Evict(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.workspaces[uid]
	if !ok {
		return
	}
	select {
	case <-e.ready:
	default:
		delete(r.workspaces, uid)
		return
	}
	if e.ws.Conversation.State() == conversation.StateAwaitingReply {
		e.closing = true
		r.logger.Debug("workspace close deferred until reply", "uid", uid)
		return
	}
	delete(r.workspaces, uid)
	r.logger.Debug("workspace closed", "uid", uid)
}

func (r *Registry) closeIfPending(uid string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.closing && r.workspaces[uid] == e {
		delete(r.workspaces, uid)
		r.logger.Debug("workspace closed", "uid", uid)
	}
}

// HandleIdentityEvent closes the workspace of a user who signed out.
func (r *Registry) HandleIdentityEvent(e identity.Event) {
	if e.SignedOut() {
		r.Evict(e.UID)
	}
}

// Len reports how many workspaces are open or loading.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
