// File: internal/handlers/log_handler.go
package handlers

import (
	"net/http"
	"strings"
)

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`             // "debug", "info", "warn" or "error"
	Message string `json:"message"`           // The main log message
	Context any    `json:"context,omitempty"` // Optional extra data (e.g., stack trace)
}

// LogFrontendEvent forwards browser log events to the server log.
func LogFrontendEvent(logger Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload FrontendLogPayload
		if err := decodeJSON(w, r, &payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		kv := []interface{}{"source", "client", "client_message", payload.Message, "context", payload.Context}
		switch strings.ToLower(payload.Level) {
		case "error":
			logger.Error("CLIENT_LOG", kv...)
		case "warn", "warning":
			logger.Warn("CLIENT_LOG", kv...)
		case "debug":
			logger.Debug("CLIENT_LOG", kv...)
		default:
			logger.Info("CLIENT_LOG", kv...)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
