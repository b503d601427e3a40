// File: internal/services/ai/gateway_client.go
package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/altracloud/altrachat/internal/domain"
)

// GatewayClient talks to an OpenAI-compatible gateway directly, doing the
// per-mode model and prompt selection itself.
type GatewayClient struct {
	config   *Config
	profiles ModeProfiles
	client   *openai.Client
	logger   Logger
}

func NewGatewayClient(config *Config, profiles ModeProfiles, logger Logger) *GatewayClient {
	clientConfig := openai.DefaultConfig(config.GatewayKey)
	if config.GatewayBaseURL != "" {
		clientConfig.BaseURL = config.GatewayBaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &GatewayClient{
		config:   config,
		profiles: profiles,
		client:   openai.NewClientWithConfig(clientConfig),
		logger:   logger,
	}
}

func (g *GatewayClient) Complete(ctx context.Context, message string, mode domain.Mode) (Completion, error) {
	if mode == domain.ModeImage {
		return g.generateImage(ctx, message)
	}
	return g.chat(ctx, message, mode)
}

func (g *GatewayClient) chat(ctx context.Context, message string, mode domain.Mode) (Completion, error) {
	profile := g.profiles.Profile(mode)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if profile.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: profile.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       profile.Model,
		Messages:    messages,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return Completion{}, g.wrapError("completion", mode, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Completion{}, NewPayloadError("completion", errors.New("empty completion response"))
	}

	return Completion{Response: resp.Choices[0].Message.Content}, nil
}

func (g *GatewayClient) generateImage(ctx context.Context, prompt string) (Completion, error) {
	profile := g.profiles.Profile(domain.ModeImage)

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          profile.Model,
		N:              1,
		Size:           g.config.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Completion{}, g.wrapError("image", domain.ModeImage, err)
	}

	if len(resp.Data) == 0 {
		return Completion{}, NewProviderError("image", "No image was generated", nil)
	}

	img := resp.Data[0]
	switch {
	case img.B64JSON != "":
		return Completion{Response: "data:image/png;base64," + img.B64JSON, Type: ResponseTypeImage}, nil
	case img.URL != "":
		return Completion{Response: img.URL, Type: ResponseTypeImage}, nil
	}
	return Completion{}, NewProviderError("image", "No image was generated", nil)
}

func (g *GatewayClient) wrapError(operation string, mode domain.Mode, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		g.logger.Error("gateway API error",
			"operation", operation, "mode", mode,
			"status", apiErr.HTTPStatusCode, "type", apiErr.Type, "message", apiErr.Message)
		aiErr := NewHTTPError(operation, apiErr.HTTPStatusCode, "")
		aiErr.Mode = string(mode)
		aiErr.Cause = err
		return aiErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		g.logger.Error("gateway request failed", "operation", operation, "mode", mode, "status", reqErr.HTTPStatusCode)
		aiErr := NewHTTPError(operation, reqErr.HTTPStatusCode, "")
		aiErr.Mode = string(mode)
		aiErr.Cause = err
		return aiErr
	}

	g.logger.Error("gateway unreachable", "operation", operation, "mode", mode, "error", err)
	return NewNetworkError(operation, err)
}
