// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type Config struct {
	// Proxy endpoint that selects model and system prompt server-side
	ProxyURL string
	ProxyKey string

	// Direct access to an OpenAI-compatible gateway, used when no proxy is set
	GatewayKey     string
	GatewayBaseURL string

	// Zero means no deadline. Callers never cancel in-flight requests themselves.
	Timeout time.Duration

	// Model Parameters
	Temperature float32
	ImageSize   string

	// Upper bound on a response body; generated images arrive inline as data URIs
	MaxResponseBytes int64
}

func (c *Config) Validate() error {
	if c.ProxyURL == "" && c.GatewayKey == "" {
		return fmt.Errorf("either COMPLETION_PROXY_URL or GATEWAY_API_KEY is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("max response bytes must be positive")
	}
	return nil
}

// UsesProxy reports whether requests go through the proxy endpoint.
func (c *Config) UsesProxy() bool {
	return c.ProxyURL != ""
}

func DefaultConfig() *Config {
	return &Config{
		GatewayBaseURL:   "https://ai.gateway.lovable.dev/v1",
		Temperature:      0.7,
		ImageSize:        openai.CreateImageSize1024x1024,
		MaxResponseBytes: 32 << 20,
	}
}
