// File: internal/handlers/chat_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/middleware"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/conversation"
	"github.com/altracloud/altrachat/internal/services/threads"
	"github.com/altracloud/altrachat/internal/services/workspace"
)

// ChatHandler serves the thread and message API for the signed-in user.
type ChatHandler struct {
	workspaces *workspace.Registry
	logger     Logger
}

func NewChatHandler(workspaces *workspace.Registry, logger Logger) *ChatHandler {
	return &ChatHandler{workspaces: workspaces, logger: logger}
}

// workspaceFor resolves the caller's workspace, writing the error response
// itself when that fails.
func (h *ChatHandler) workspaceFor(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	user, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Sign in required", http.StatusUnauthorized)
		return nil, false
	}
	ws, err := h.workspaces.For(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to open workspace", "uid", user.UID, "error", err)
		writeError(w, "Could not load your conversations", http.StatusInternalServerError)
		return nil, false
	}
	return ws, true
}

// GetMe returns the signed-in user's identity.
func (h *ChatHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, "Sign in required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// ListThreads returns the thread summaries and the current thread id.
func (h *ChatHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, threadList(ws))
}

// CreateThread starts a new thread and makes it current.
func (h *ChatHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	id, err := ws.Threads.CreateThread(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	thread, _ := ws.Threads.Thread(id)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"thread":          thread.Summary(),
		"currentThreadId": id,
	})
}

// SelectThread makes the thread in the path current.
func (h *ChatHandler) SelectThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	if err := ws.Threads.SelectThread(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadList(ws))
}

type renameRequest struct {
	Title string `json:"title"`
}

// RenameThread sets an explicit title.
func (h *ChatHandler) RenameThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	if err := ws.Threads.RenameThread(r.Context(), id, req.Title); err != nil {
		h.writeStoreError(w, err)
		return
	}
	thread, _ := ws.Threads.Thread(id)
	writeJSON(w, http.StatusOK, thread.Summary())
}

// DeleteThread removes a thread; the response names the new current thread.
func (h *ChatHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	if err := ws.Threads.DeleteThread(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadList(ws))
}

// GetThreadMessages returns a thread's messages with their formatted segments.
func (h *ChatHandler) GetThreadMessages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	thread, found := ws.Threads.Thread(mux.Vars(r)["id"])
	if !found {
		writeError(w, "Thread not found", http.StatusNotFound)
		return
	}

	views := make([]messageView, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		views = append(views, newMessageView(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"thread":   thread.Summary(),
		"messages": views,
	})
}

type sendMessageRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// SendMessage submits the user's input to the current thread and waits for
// the reply.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// A client disconnect must not abandon a turn whose user message is already recorded.
	ctx := context.WithoutCancel(r.Context())
	reply, err := ws.Conversation.Submit(ctx, req.Message, mode)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrRequestInFlight):
		writeError(w, "A response is already being generated", http.StatusConflict)
		return
	case errors.Is(err, conversation.ErrEmptyInput):
		writeError(w, "Message cannot be empty", http.StatusBadRequest)
		return
	case errors.Is(err, conversation.ErrInvalidMode):
		writeError(w, "Unsupported mode", http.StatusBadRequest)
		return
	case errors.Is(err, conversation.ErrCompletionFailed):
		writeError(w, ai.UserMessage(err), http.StatusBadGateway)
		return
	default:
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": newMessageView(*reply),
		"threads": threadList(ws),
	})
}

// GetNotifications drains the user's pending notifications.
func (h *ChatHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": ws.Notifications.Drain()})
}

func (h *ChatHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, threads.ErrThreadNotFound):
		writeError(w, "Thread not found", http.StatusNotFound)
	case errors.Is(err, threads.ErrInvalidTitle):
		writeError(w, "Title cannot be empty", http.StatusBadRequest)
	default:
		h.logger.Error("thread store operation failed", "error", err)
		writeError(w, "Could not save your conversation", http.StatusInternalServerError)
	}
}

func threadList(ws *workspace.Workspace) threadListView {
	return threadListView{
		CurrentThreadID: ws.Threads.CurrentID(),
		Threads:         ws.Threads.ListThreads(),
	}
}
