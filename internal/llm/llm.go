package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoCredential is returned when no API key is configured. It maps to a
// fixed, non-retryable configuration error at the HTTP boundary.
var ErrNoCredential = errors.New("llm: API key is not configured")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api    *openai.Client
	model  string
	hasKey bool
}

// New creates a new LLM client. An empty API key is allowed at construction
// so the server can start; analysis calls then fail with ErrNoCredential.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(config),
		model:  modelName,
		hasKey: apiKey != "",
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.hasKey {
		return ErrNoCredential
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// Analyze sends a text-only analysis request and returns the raw model
// output.
func (c *Client) Analyze(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.hasKey {
		return "", ErrNoCredential
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	return extractText(resp)
}

// AnalyzeImage sends a vision request with the student's handwritten work
// attached as a base64 data URL.
func (c *Client) AnalyzeImage(ctx context.Context, systemPrompt, userPrompt, imageData string) (string, error) {
	if !c.hasKey {
		return "", ErrNoCredential
	}

	imageURL := imageData
	if !strings.HasPrefix(imageURL, "data:") {
		imageURL = "data:image/jpeg;base64," + imageURL
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM vision call: %w", err)
	}
	return extractText(resp)
}

func extractText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("LLM returned empty analysis")
	}
	slog.Debug("LLM response", "chars", len(text))
	return text, nil
}
