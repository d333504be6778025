package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/physio/physio/internal/platform/httperr"
)

// Client is the narrow interface the generation workflow needs from the
// chat-completion provider. Implementations classify provider failures into
// the domain error taxonomy.
type Client interface {
	Generate(ctx context.Context, prompt, model string, temperature float32) (string, error)
}

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint. A single
// attempt is made per request; the caller decides whether to resubmit.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIClient constructs a provider client. baseURL overrides the API
// host for OpenAI-compatible gateways; leave empty for the default.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

// Generate sends the prompt as a single user message and returns the
// assistant's text. Failures map to the taxonomy: HTTP 429 → rate_limited,
// 5xx or network/timeout → provider_unavailable, an empty or blank
// completion → generation_failed.
func (c *OpenAIClient) Generate(ctx context.Context, prompt, model string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", httperr.GenerationFailed(errors.New("provider returned no choices"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", httperr.GenerationFailed(errors.New("provider returned an empty completion"))
	}
	return text, nil
}

// classify maps provider transport and API errors onto the domain taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return httperr.RateLimited()
		case apiErr.HTTPStatusCode >= 500:
			return httperr.ProviderUnavailable(err)
		default:
			return httperr.GenerationFailed(err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == 429:
			return httperr.RateLimited()
		case reqErr.HTTPStatusCode >= 500:
			return httperr.ProviderUnavailable(err)
		default:
			return httperr.GenerationFailed(err)
		}
	}

	// Timeouts, connection resets, DNS failures.
	return httperr.ProviderUnavailable(err)
}
