package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/repository/blob"
	"github.com/altracloud/altrachat/internal/services"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/conversation"
	"github.com/altracloud/altrachat/internal/services/identity"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, message string, _ domain.Mode) (ai.Completion, error) {
	return ai.Completion{Response: "echo: " + message}, nil
}

// heldCompleter answers like echoCompleter but holds the first call until
// release is closed.
type heldCompleter struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newHeldCompleter() *heldCompleter {
	return &heldCompleter{started: make(chan struct{}), release: make(chan struct{})}
}

func (h *heldCompleter) Complete(ctx context.Context, message string, _ domain.Mode) (ai.Completion, error) {
	first := false
	h.once.Do(func() { first = true })
	if first {
		close(h.started)
		<-h.release
	}
	return ai.Completion{Response: "echo: " + message}, nil
}

// slowRepository blocks Get for one key until release is closed.
type slowRepository struct {
	blob.Repository
	key     string
	gets    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *slowRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.key {
		if s.gets.Add(1) == 1 {
			close(s.started)
		}
		<-s.release
	}
	return s.Repository.Get(ctx, key)
}

func newRegistry(repo blob.Repository) *Registry {
	return NewRegistry(repo, echoCompleter{}, &services.NoOpLogger{}, Config{})
}

func TestRegistry_ForIsCachedPerUser(t *testing.T) {
	r := newRegistry(blob.NewMemoryRepository())
	ctx := context.Background()

	a1, err := r.For(ctx, domain.UserIdentity{UID: "alice"})
	require.NoError(t, err)
	a2, err := r.For(ctx, domain.UserIdentity{UID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)
	b, err := r.For(ctx, domain.UserIdentity{UID: "bob"})
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, "Alice", a2.Identity.DisplayName)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_UsersAreIsolated(t *testing.T) {
	r := newRegistry(blob.NewMemoryRepository())
	ctx := context.Background()

	alice, err := r.For(ctx, domain.UserIdentity{UID: "alice"})
	require.NoError(t, err)
	bob, err := r.For(ctx, domain.UserIdentity{UID: "bob"})
	require.NoError(t, err)

	_, err = alice.Conversation.Submit(ctx, "hello", domain.ModeChat)
	require.NoError(t, err)

	at, _ := alice.Threads.Current()
	bt, _ := bob.Threads.Current()
	assert.Len(t, at.Messages, 3)
	assert.Len(t, bt.Messages, 1)
}

func TestRegistry_EvictKeepsPersistedThreads(t *testing.T) {
	repo := blob.NewMemoryRepository()
	r := newRegistry(repo)
	ctx := context.Background()
	user := domain.UserIdentity{UID: "alice"}

	ws, err := r.For(ctx, user)
	require.NoError(t, err)
	_, err = ws.Conversation.Submit(ctx, "remember me", domain.ModeChat)
	require.NoError(t, err)
	id := ws.Threads.CurrentID()

	r.HandleIdentityEvent(identity.Event{UID: "alice"})
	assert.Equal(t, 0, r.Len())

	reopened, err := r.For(ctx, user)
	require.NoError(t, err)
	assert.NotSame(t, ws, reopened)
	assert.Equal(t, id, reopened.Threads.CurrentID())
	th, _ := reopened.Threads.Current()
	assert.Equal(t, "remember me", th.Title)
}

func TestRegistry_SignInEventKeepsWorkspace(t *testing.T) {
	r := newRegistry(blob.NewMemoryRepository())
	user := domain.UserIdentity{UID: "alice"}
	_, err := r.For(context.Background(), user)
	require.NoError(t, err)

	r.HandleIdentityEvent(identity.Event{UID: "alice", Identity: &user})
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RejectsAnonymous(t *testing.T) {
	r := newRegistry(blob.NewMemoryRepository())
	_, err := r.For(context.Background(), domain.UserIdentity{})
	assert.Error(t, err)
}

func TestStorageKey(t *testing.T) {
	k := StorageKey("alice")
	assert.Equal(t, k, StorageKey("alice"))
	assert.NotEqual(t, k, StorageKey("bob"))
	assert.NotContains(t, k, "alice")
	assert.Len(t, k, len("threads:")+64)
}

func TestRegistry_SignOutDuringTurnKeepsWorkspace(t *testing.T) {
	repo := blob.NewMemoryRepository()
	completer := newHeldCompleter()
	r := NewRegistry(repo, completer, &services.NoOpLogger{}, Config{})
	ctx := context.Background()
	user := domain.UserIdentity{UID: "alice"}

	ws, err := r.For(ctx, user)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ws.Conversation.Submit(ctx, "first", domain.ModeChat)
		done <- err
	}()
	<-completer.started

	r.HandleIdentityEvent(identity.Event{UID: "alice"})
	assert.Equal(t, 1, r.Len())

	// another session of the same user still sees the busy workspace
	again, err := r.For(ctx, user)
	require.NoError(t, err)
	assert.Same(t, ws, again)
	_, err = again.Conversation.Submit(ctx, "second", domain.ModeChat)
	assert.ErrorIs(t, err, conversation.ErrRequestInFlight)

	close(completer.release)
	require.NoError(t, <-done)

	reopened := newRegistry(repo)
	fresh, err := reopened.For(ctx, user)
	require.NoError(t, err)
	th, _ := fresh.Threads.Current()
	require.Len(t, th.Messages, 3)
	assert.Equal(t, "first", th.Messages[1].Content)
	assert.Equal(t, "echo: first", th.Messages[2].Content)
}

func TestRegistry_DeferredCloseHappensAfterReply(t *testing.T) {
	completer := newHeldCompleter()
	r := NewRegistry(blob.NewMemoryRepository(), completer, &services.NoOpLogger{}, Config{})
	ctx := context.Background()

	ws, err := r.For(ctx, domain.UserIdentity{UID: "alice"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ws.Conversation.Submit(ctx, "hi", domain.ModeChat)
		done <- err
	}()
	<-completer.started

	r.Evict("alice")
	assert.Equal(t, 1, r.Len())

	close(completer.release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SlowLoadDoesNotBlockOtherUsers(t *testing.T) {
	repo := &slowRepository{
		Repository: blob.NewMemoryRepository(),
		key:        StorageKey("alice"),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	r := newRegistry(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Workspace, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := r.For(ctx, domain.UserIdentity{UID: "alice"})
			assert.NoError(t, err)
			results[i] = ws
		}(i)
	}
	<-repo.started

	bobDone := make(chan error, 1)
	go func() {
		_, err := r.For(ctx, domain.UserIdentity{UID: "bob"})
		bobDone <- err
	}()
	select {
	case err := <-bobDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loading bob waited on alice's load")
	}

	close(repo.release)
	wg.Wait()
	require.NotNil(t, results[0])
	assert.Same(t, results[0], results[1])
	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestRegistry_WaitingCallerHonorsContext(t *testing.T) {
	repo := &slowRepository{
		Repository: blob.NewMemoryRepository(),
		key:        StorageKey("alice"),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	r := newRegistry(repo)
	defer close(repo.release)

	go func() { _, _ = r.For(context.Background(), domain.UserIdentity{UID: "alice"}) }()
	<-repo.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.For(ctx, domain.UserIdentity{UID: "alice"})
	assert.ErrorIs(t, err, context.Canceled)
}
