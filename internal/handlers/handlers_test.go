package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altracloud/altrachat/internal/auth"
	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/middleware"
	"github.com/altracloud/altrachat/internal/render"
	"github.com/altracloud/altrachat/internal/repository/blob"
	"github.com/altracloud/altrachat/internal/services"
	"github.com/altracloud/altrachat/internal/services/ai"
	"github.com/altracloud/altrachat/internal/services/conversation"
	"github.com/altracloud/altrachat/internal/services/identity"
	"github.com/altracloud/altrachat/internal/services/workspace"
)

var testSecret = []byte("handler-test-secret")

type fakeCompleter struct {
	reply ai.Completion
	err   error
	block chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, message string, mode domain.Mode) (ai.Completion, error) {
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

type fakeProvider struct {
	watcher  *identity.Watcher
	signedIn domain.UserIdentity
}

func (p *fakeProvider) SignIn(_ context.Context, credential string) (domain.UserIdentity, error) {
	if credential != "good-token" {
		return domain.UserIdentity{}, identity.ErrInvalidCredential
	}
	p.watcher.Publish(identity.Event{UID: p.signedIn.UID, Identity: &p.signedIn})
	return p.signedIn, nil
}

func (p *fakeProvider) SignOut(_ context.Context, user domain.UserIdentity) error {
	p.watcher.Publish(identity.Event{UID: user.UID})
	return nil
}

type testServer struct {
	router    *mux.Router
	registry  *workspace.Registry
	completer *fakeCompleter
	cookie    *http.Cookie
	user      domain.UserIdentity
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := &services.NoOpLogger{}
	completer := &fakeCompleter{reply: ai.Completion{Response: "Hi there"}}
	registry := workspace.NewRegistry(blob.NewMemoryRepository(), completer, logger, workspace.Config{})

	watcher := identity.NewWatcher()
	watcher.Subscribe(registry.HandleIdentityEvent)
	user := domain.UserIdentity{UID: "uid-1", DisplayName: "ada", Email: "ada@example.com"}
	provider := &fakeProvider{watcher: watcher, signedIn: user}

	pages, err := NewPageHandler("../../web/templates", registry, render.NewRenderer(render.DefaultStyle),
		FirebaseWebConfig{ProjectID: "altrachat-test"}, logger)
	require.NoError(t, err)

	authHandler := NewAuthHandler(provider, testSecret, false, logger)
	chatHandler := NewChatHandler(registry, logger)

	r := mux.NewRouter()
	r.HandleFunc("/", pages.ShowIndexPage).Methods("GET")
	r.HandleFunc("/api/log", LogFrontendEvent(logger)).Methods("POST")
	r.HandleFunc("/auth/signin", authHandler.SignIn).Methods("POST")
	r.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST")

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(middleware.NewSessionMiddleware(testSecret, false, logger))
	protected.HandleFunc("/chat", pages.ShowChatPage).Methods("GET")
	api := protected.PathPrefix("/api").Subrouter()
	api.HandleFunc("/me", chatHandler.GetMe).Methods("GET")
	api.HandleFunc("/threads", chatHandler.ListThreads).Methods("GET")
	api.HandleFunc("/threads", chatHandler.CreateThread).Methods("POST")
	api.HandleFunc("/threads/{id}/select", chatHandler.SelectThread).Methods("PUT")
	api.HandleFunc("/threads/{id}", chatHandler.RenameThread).Methods("PATCH")
	api.HandleFunc("/threads/{id}", chatHandler.DeleteThread).Methods("DELETE")
	api.HandleFunc("/threads/{id}/messages", chatHandler.GetThreadMessages).Methods("GET")
	api.HandleFunc("/messages", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/notifications", chatHandler.GetNotifications).Methods("GET")
	r.NotFoundHandler = http.HandlerFunc(pages.NotFound)

	token, err := auth.GenerateSessionToken(user, testSecret, time.Now())
	require.NoError(t, err)

	return &testServer{
		router:    r,
		registry:  registry,
		completer: completer,
		cookie:    &http.Cookie{Name: middleware.SessionCookieName, Value: token},
		user:      user,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.AddCookie(s.cookie)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type threadsResponse struct {
	CurrentThreadID string                 `json:"currentThreadId"`
	Threads         []domain.ThreadSummary `json:"threads"`
}

func TestSignIn(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(`{"idToken":"good-token"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	got, err := auth.ValidateSessionToken(cookies[0].Value, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.UID)
	assert.Contains(t, rec.Body.String(), `"initial":"A"`)
}

func TestSignIn_Rejected(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{"idToken":"bad-token"}`, `{}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, rec.Code, body)
		assert.Empty(t, rec.Result().Cookies())
	}
}

func TestSignOut_EvictsWorkspace(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/threads", nil).Code)
	assert.Equal(t, 1, s.registry.Len())

	rec := s.do(t, http.MethodPost, "/auth/signout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.registry.Len())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=;")
}

func TestAPIRequiresSession(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMe(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"uid":"uid-1"`)
}

func TestThreadLifecycle(t *testing.T) {
	s := newTestServer(t)

	first := decode[threadsResponse](t, s.do(t, http.MethodGet, "/api/threads", nil))
	require.Len(t, first.Threads, 1)
	assert.Equal(t, domain.DefaultThreadTitle, first.Threads[0].Title)
	firstID := first.CurrentThreadID

	rec := s.do(t, http.MethodPost, "/api/threads", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]interface{}](t, rec)
	secondID := created["currentThreadId"].(string)
	assert.NotEqual(t, firstID, secondID)

	rec = s.do(t, http.MethodPut, "/api/threads/"+firstID+"/select", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, firstID, decode[threadsResponse](t, rec).CurrentThreadID)

	rec = s.do(t, http.MethodPatch, "/api/threads/"+firstID, map[string]string{"title": "  Trip planning "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trip planning", decode[domain.ThreadSummary](t, rec).Title)

	rec = s.do(t, http.MethodPatch, "/api/threads/"+firstID, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/threads/"+firstID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	after := decode[threadsResponse](t, rec)
	assert.Equal(t, secondID, after.CurrentThreadID)
	assert.Len(t, after.Threads, 1)
}

func TestThreadNotFound(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/threads/nope/select", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/threads/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/threads/nope/messages", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPatch, "/api/threads/nope", map[string]string{"title": "x"}).Code)
}

func TestSendMessage(t *testing.T) {
	s := newTestServer(t)
	s.completer.reply = ai.Completion{Response: "Try this:\n```go\nfmt.Println(1)\n```"}

	rec := s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "Print one in Go", "mode": "code"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Message messageView     `json:"message"`
		Threads threadsResponse `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.SenderAssistant, resp.Message.Sender)
	assert.Equal(t, domain.KindCode, resp.Message.Kind)
	require.Len(t, resp.Message.Segments, 3)
	assert.Equal(t, domain.SegmentCode, resp.Message.Segments[1].Kind)
	assert.Equal(t, "go", resp.Message.Segments[1].Language)
	assert.Equal(t, "Print one in Go", resp.Threads.Threads[0].Title)

	rec = s.do(t, http.MethodGet, "/api/threads/"+resp.Threads.CurrentThreadID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs struct {
		Messages []messageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs.Messages, 3)
	assert.Equal(t, "Print one in Go", msgs.Messages[1].Content)
}

func TestSendMessage_Errors(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "hi", "mode": "video"}).Code)

	s.completer.err = ai.NewHTTPError("proxy_request", 500, "upstream exploded")
	rec := s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream exploded")

	rec = s.do(t, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes struct {
		Notifications []map[string]interface{} `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, "Error", notes.Notifications[0]["title"])
	assert.Equal(t, "destructive", notes.Notifications[0]["variant"])
}

func TestSendMessage_InFlightConflict(t *testing.T) {
	s := newTestServer(t)
	s.completer.block = make(chan struct{})

	done := make(chan int, 1)
	go func() {
		done <- s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "first"}).Code
	}()

	ws, err := s.registry.For(context.Background(), s.user)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return ws.Conversation.State() == conversation.StateAwaitingReply
	}, 2*time.Second, 5*time.Millisecond)

	rec := s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "second"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(s.completer.block)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestPages(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in with Google")
	assert.Contains(t, rec.Body.String(), `data-firebase-project-id="altrachat-test"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	s.completer.reply = ai.Completion{Response: "**Bold** answer"}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/messages", map[string]string{"message": "<b>hi</b>"}).Code)

	rec = s.do(t, http.MethodGet, "/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, domain.GreetingMessage[:5])
	assert.Contains(t, body, "<strong>Bold</strong>")
	assert.NotContains(t, body, "<b>hi</b>")

	rec = s.do(t, http.MethodGet, "/no-such-page", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page Not Found")
}

func TestChatPageRedirectsWithoutSession(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLogFrontendEvent(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"level":"error","message":"boom"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{`))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSON_RejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}{"b":2}`))
	var v map[string]int
	assert.Error(t, decodeJSON(httptest.NewRecorder(), req, &v))
}
