// File: internal/handlers/page_handlers.go
package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/middleware"
	"github.com/altracloud/altrachat/internal/render"
	"github.com/altracloud/altrachat/internal/services/workspace"
)

var pageTemplates = []string{"index.html", "chat.html", "error.html"}

// FirebaseWebConfig is the public configuration the sign-in page needs.
type FirebaseWebConfig struct {
	APIKey     string
	AuthDomain string
	ProjectID  string
}

// PageHandler renders the server-side pages.
type PageHandler struct {
	templates  map[string]*template.Template
	workspaces *workspace.Registry
	renderer   *render.Renderer
	firebase   FirebaseWebConfig
	logger     Logger
}

// NewPageHandler parses one template set per page, each combined with layout.html.
func NewPageHandler(templateDir string, workspaces *workspace.Registry, renderer *render.Renderer, firebase FirebaseWebConfig, logger Logger) (*PageHandler, error) {
	cache := make(map[string]*template.Template, len(pageTemplates))
	for _, tmpl := range pageTemplates {
		ts, err := template.New(tmpl).ParseFiles(
			filepath.Join(templateDir, "layout.html"),
			filepath.Join(templateDir, tmpl),
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", tmpl, err)
		}
		cache[tmpl] = ts
	}
	return &PageHandler{
		templates:  cache,
		workspaces: workspaces,
		renderer:   renderer,
		firebase:   firebase,
		logger:     logger,
	}, nil
}

func (h *PageHandler) renderTemplate(w http.ResponseWriter, status int, tmpl string, data map[string]interface{}) {
	addSecurityHeaders(w)

	if data == nil {
		data = make(map[string]interface{})
	}
	data["Firebase"] = h.firebase

	t, ok := h.templates[tmpl]
	if !ok {
		h.logger.Error("template not found", "template", tmpl)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("template render failed", "template", tmpl, "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; "+
		"script-src 'self' https://www.gstatic.com https://apis.google.com; "+
		"connect-src 'self' https://*.googleapis.com; "+
		"frame-src https://*.firebaseapp.com https://accounts.google.com; "+
		"img-src 'self' data: https:; "+
		"style-src 'self' 'unsafe-inline'")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func (h *PageHandler) ShowIndexPage(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, http.StatusOK, "index.html", nil)
}

type renderedMessage struct {
	Sender    domain.Sender
	HTML      template.HTML
	Timestamp time.Time
}

// ShowChatPage renders the current thread with the sidebar of all threads.
func (h *PageHandler) ShowChatPage(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ws, err := h.workspaces.For(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to open workspace", "uid", user.UID, "error", err)
		h.ShowErrorPage(w, http.StatusInternalServerError, "Something went wrong", "Your conversations could not be loaded.")
		return
	}

	current, _ := ws.Threads.Current()
	messages := make([]renderedMessage, 0, len(current.Messages))
	for _, m := range current.Messages {
		html, err := h.renderer.Message(m)
		if err != nil {
			h.logger.Warn("message render failed, showing plain text", "thread_id", current.ID, "error", err)
			html = template.HTML("<p>" + template.HTMLEscapeString(m.Content) + "</p>")
		}
		messages = append(messages, renderedMessage{Sender: m.Sender, HTML: html, Timestamp: m.Timestamp})
	}

	h.renderTemplate(w, http.StatusOK, "chat.html", map[string]interface{}{
		"User":            newUserView(user),
		"Threads":         ws.Threads.ListThreads(),
		"CurrentThreadID": current.ID,
		"CurrentTitle":    current.Title,
		"Messages":        messages,
	})
}

func (h *PageHandler) ShowErrorPage(w http.ResponseWriter, status int, message, description string) {
	h.renderTemplate(w, status, "error.html", map[string]interface{}{
		"Code":        status,
		"Message":     message,
		"Description": description,
	})
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.ShowErrorPage(w, http.StatusNotFound, "Page Not Found", "The page you are looking for does not exist.")
}

func (h *PageHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.ShowErrorPage(w, http.StatusMethodNotAllowed, "Method Not Allowed", "The method is not allowed for this resource.")
}
