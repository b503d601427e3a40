// File: internal/services/ai/proxy_client.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/altracloud/altrachat/internal/domain"
)

type proxyRequest struct {
	Message string      `json:"message"`
	Mode    domain.Mode `json:"mode"`
}

type proxyResponse struct {
	Response *string `json:"response"`
	Type     string  `json:"type,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// ProxyClient posts messages to the completion proxy, which picks the model
// and system prompt for the mode.
type ProxyClient struct {
	endpoint   string
	key        string
	maxBytes   int64
	httpClient *http.Client
	logger     Logger
}

func NewProxyClient(config *Config, logger Logger) *ProxyClient {
	return &ProxyClient{
		endpoint:   config.ProxyURL,
		key:        config.ProxyKey,
		maxBytes:   config.MaxResponseBytes,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

func (c *ProxyClient) Complete(ctx context.Context, message string, mode domain.Mode) (Completion, error) {
	body, err := json.Marshal(proxyRequest{Message: message, Mode: mode})
	if err != nil {
		return Completion{}, NewPayloadError("encode_request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, NewConfigError(fmt.Sprintf("invalid proxy endpoint: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("completion proxy unreachable", "mode", mode, "error", err)
		return Completion{}, NewNetworkError("proxy_request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return Completion{}, NewNetworkError("proxy_read", err)
	}

	var payload proxyResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("completion proxy returned an error status",
			"mode", mode, "status", resp.StatusCode, "error", payload.Error)
		aiErr := NewHTTPError("proxy_request", resp.StatusCode, payload.Error)
		aiErr.Mode = string(mode)
		return Completion{}, aiErr
	}
	if decodeErr != nil {
		return Completion{}, NewPayloadError("proxy_decode", decodeErr)
	}
	if payload.Response == nil || *payload.Response == "" {
		return Completion{}, NewPayloadError("proxy_decode", fmt.Errorf("response field missing"))
	}

	c.logger.Debug("completion received", "mode", mode, "bytes", len(raw), "type", payload.Type)
	return Completion{Response: *payload.Response, Type: payload.Type}, nil
}
