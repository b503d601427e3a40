// File: internal/services/conversation/controller.go
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/services/ai"
)

// Controller runs the turn-taking for one user: it records the user's
// message, asks the completer for a reply and records that. At most one
// request is outstanding at a time; submits made meanwhile are rejected.
type Controller struct {
	mu    sync.Mutex
	state State
	draft string

	store     ThreadStore
	completer ai.Completer
	notifier  Notifier
	logger    Logger
	now       func() time.Time

	// optional deadline for the remote call; zero waits indefinitely
	timeout time.Duration
	onIdle  func()
}

// Config holds the optional knobs of a Controller.
type Config struct {
	Timeout time.Duration
	Now     func() time.Time
	// OnIdle runs after each turn ends, outside the controller's lock.
	OnIdle func()
}

func NewController(store ThreadStore, completer ai.Completer, notifier Notifier, logger Logger, cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		state:     StateIdle,
		store:     store,
		completer: completer,
		notifier:  notifier,
		logger:    logger,
		now:       now,
		timeout:   cfg.Timeout,
		onIdle:    cfg.OnIdle,
	}
}

// State reports whether a reply is pending.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetDraft records what the user is typing.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SubmitDraft submits whatever is in the draft.
func (c *Controller) SubmitDraft(ctx context.Context, mode domain.Mode) (*domain.Message, error) {
	return c.Submit(ctx, c.Draft(), mode)
}

// Submit sends input in the given mode and returns the assistant's reply.
//
// The user message is appended to the current thread before the remote call
// is made and stays there whatever the outcome. On failure no assistant
// message is appended, a notification carrying the reason is raised, and the
// returned error wraps ErrCompletionFailed.
func (c *Controller) Submit(ctx context.Context, input string, mode domain.Mode) (*domain.Message, error) {
	threadID, err := c.begin(ctx, input, mode)
	if err != nil {
		return nil, err
	}
	defer c.finish()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := c.now()
	completion, err := c.completer.Complete(callCtx, input, mode)
	if err != nil {
		c.logger.Warn("completion failed", "thread_id", threadID, "mode", mode, "error", err)
		c.notifyError(ai.UserMessage(err))
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	kind := mode.MessageKind()
	if completion.IsImage() {
		kind = domain.KindImage
	}
	reply := domain.NewAssistantMessage(completion.Response, kind, c.now())

	if err := c.store.AppendMessage(ctx, threadID, reply); err != nil {
		c.logger.Error("failed to record reply", "thread_id", threadID, "error", err)
		c.notifyError("Could not save the response")
		return nil, err
	}

	c.logger.Info("reply recorded",
		"thread_id", threadID, "mode", mode,
		"kind", kind, "duration_ms", c.now().Sub(started).Milliseconds())
	return &reply, nil
}

// begin validates the submit and moves to AwaitingReply. The user message is
// appended under the lock so that append order equals submit order.
func (c *Controller) begin(ctx context.Context, input string, mode domain.Mode) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAwaitingReply {
		return "", ErrRequestInFlight
	}
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	if !mode.Valid() {
		return "", ErrInvalidMode
	}

	threadID := c.store.CurrentID()
	if threadID == "" {
		return "", ErrNoActiveThread
	}

	if err := c.store.AppendMessage(ctx, threadID, domain.NewUserMessage(input, c.now())); err != nil {
		c.logger.Error("failed to record user message", "thread_id", threadID, "error", err)
		return "", err
	}

	c.draft = ""
	c.state = StateAwaitingReply
	return threadID, nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	if c.onIdle != nil {
		c.onIdle()
	}
}

func (c *Controller) notifyError(description string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Notification{
		Title:       "Error",
		Description: description,
		Variant:     VariantDestructive,
		CreatedAt:   c.now(),
	})
}

// IsRejection reports whether err means the submit was refused up front and
// nothing was recorded.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRequestInFlight) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrInvalidMode)
}
