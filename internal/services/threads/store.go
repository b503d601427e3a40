// File: internal/services/threads/store.go
package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/repository/blob"
)

// snapshot is the persisted form of the whole store. It is rewritten in full
// on every mutation.
type snapshot struct {
	CurrentThreadID string          `json:"currentThreadId"`
	Threads         []domain.Thread `json:"threads"`
}

// Store owns one user's conversation threads and which of them is current.
type Store struct {
	mu        sync.Mutex
	repo      blob.Repository
	key       string
	logger    Logger
	now       func() time.Time
	newID     func() string
	threads   []domain.Thread
	currentID string
	loaded    bool
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for new thread ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store persisting under key in repo. Call Load before use.
func NewStore(repo blob.Repository, key string, logger Logger, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		key:    key,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads persisted state. Missing or malformed data is discarded and the
// store starts over with a single fresh thread.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = nil
	s.currentID = ""

	data, err := s.repo.Get(ctx, s.key)
	switch {
	case errors.Is(err, blob.ErrBlobNotFound):
		s.logger.Debug("no persisted threads, bootstrapping", "key", s.key)
	case err != nil:
		return fmt.Errorf("load threads: %w", err)
	default:
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Warn("discarding unparsable thread state", "key", s.key, "error", err)
		} else if err := validateSnapshot(&snap); err != nil {
			s.logger.Warn("discarding malformed thread state", "key", s.key, "error", err)
		} else {
			s.threads = snap.Threads
			s.currentID = snap.CurrentThreadID
		}
	}

	s.loaded = true

	if len(s.threads) == 0 {
		s.createLocked()
		return s.persistLocked(ctx)
	}
	if s.indexLocked(s.currentID) < 0 {
		s.currentID = s.newestLocked()
	}
	s.logger.Info("threads loaded", "key", s.key, "count", len(s.threads))
	return nil
}

// CreateThread starts a new thread seeded with the assistant greeting and
// makes it current.
func (s *Store) CreateThread(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return "", ErrNotLoaded
	}

	undo := s.checkpointLocked()
	id := s.createLocked()
	if err := s.persistLocked(ctx); err != nil {
		undo()
		return "", err
	}
	s.logger.Info("thread created", "thread_id", id)
	return id, nil
}

// ListThreads returns the thread summaries in creation order.
func (s *Store) ListThreads() []domain.ThreadSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ThreadSummary, 0, len(s.threads))
	for i := range s.threads {
		out = append(out, s.threads[i].Summary())
	}
	return out
}

// SelectThread makes id the current thread. An unknown id leaves the store
// untouched and returns ErrThreadNotFound.
func (s *Store) SelectThread(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(id) < 0 {
		return ErrThreadNotFound
	}
	if s.currentID == id {
		return nil
	}

	undo := s.checkpointLocked()
	s.currentID = id
	if err := s.persistLocked(ctx); err != nil {
		undo()
		return err
	}
	return nil
}

// DeleteThread removes a thread. When it was current, the newest remaining
// thread takes over; when none remain a fresh thread is created.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrThreadNotFound
	}

	undo := s.checkpointLocked()
	s.threads = append(s.threads[:idx:idx], s.threads[idx+1:]...)

	if s.currentID == id {
		if len(s.threads) == 0 {
			s.createLocked()
		} else {
			s.currentID = s.newestLocked()
		}
	}

	if err := s.persistLocked(ctx); err != nil {
		undo()
		return err
	}
	s.logger.Info("thread deleted", "thread_id", id, "current_thread_id", s.currentID)
	return nil
}

// AppendMessage adds msg to the end of the thread. The first user message
// after the greeting names the thread.
func (s *Store) AppendMessage(ctx context.Context, threadID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(threadID)
	if idx < 0 {
		return ErrThreadNotFound
	}

	undo := s.checkpointLocked()
	t := &s.threads[idx]
	t.Messages = append(t.Messages, msg)
	if len(t.Messages) == 2 && msg.Sender == domain.SenderUser && !t.TitleSet {
		t.Title = DeriveTitle(msg.Content)
		t.TitleSet = true
	}

	if err := s.persistLocked(ctx); err != nil {
		undo()
		return err
	}
	return nil
}

// RenameThread sets an explicit title. Automatic derivation never overrides it.
func (s *Store) RenameThread(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrThreadNotFound
	}

	undo := s.checkpointLocked()
	s.threads[idx].Title = truncateRunes(title, maxRenameLength)
	s.threads[idx].TitleSet = true
	if err := s.persistLocked(ctx); err != nil {
		undo()
		return err
	}
	return nil
}

// Thread returns a copy of the thread with the given id.
func (s *Store) Thread(id string) (domain.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Thread{}, false
	}
	return s.threads[idx].Clone(), true
}

// Current returns a copy of the current thread.
func (s *Store) Current() (domain.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(s.currentID)
	if idx < 0 {
		return domain.Thread{}, false
	}
	return s.threads[idx].Clone(), true
}

// CurrentID returns the id of the current thread.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// --- helpers; callers hold s.mu ---

func (s *Store) createLocked() string {
	now := s.now()
	t := domain.Thread{
		ID:        s.newID(),
		Title:     domain.DefaultThreadTitle,
		Messages:  []domain.Message{domain.NewAssistantMessage(domain.GreetingMessage, domain.KindText, now)},
		CreatedAt: now,
	}
	s.threads = append(s.threads, t)
	s.currentID = t.ID
	return t.ID
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.threads {
		if s.threads[i].ID == id {
			return i
		}
	}
	return -1
}

// newestLocked picks the most recently created thread; ties go to the later one.
func (s *Store) newestLocked() string {
	best := -1
	for i := range s.threads {
		if best < 0 || !s.threads[i].CreatedAt.Before(s.threads[best].CreatedAt) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return s.threads[best].ID
}

func (s *Store) checkpointLocked() func() {
	saved := make([]domain.Thread, len(s.threads))
	for i := range s.threads {
		saved[i] = s.threads[i].Clone()
	}
	current := s.currentID
	return func() {
		s.threads = saved
		s.currentID = current
	}
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(snapshot{CurrentThreadID: s.currentID, Threads: s.threads})
	if err != nil {
		return fmt.Errorf("encode threads: %w", err)
	}
	if err := s.repo.Put(ctx, s.key, data); err != nil {
		s.logger.Error("failed to persist threads", "key", s.key, "error", err)
		return fmt.Errorf("persist threads: %w", err)
	}
	return nil
}

func validateSnapshot(snap *snapshot) error {
	seen := make(map[string]struct{}, len(snap.Threads))
	for i := range snap.Threads {
		t := &snap.Threads[i]
		if t.ID == "" {
			return fmt.Errorf("thread %d has no id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate thread id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
		if len(t.Messages) == 0 {
			return fmt.Errorf("thread %s has no messages", t.ID)
		}
		for _, m := range t.Messages {
			if m.Sender != domain.SenderUser && m.Sender != domain.SenderAssistant {
				return fmt.Errorf("thread %s has a message with sender %q", t.ID, m.Sender)
			}
		}
	}
	return nil
}
