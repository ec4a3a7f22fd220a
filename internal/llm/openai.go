package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"rxguardian/internal/logger"
)

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey      string
	BaseURL     string  // empty for api.openai.com
	Model       string  // gpt-4o-mini, gpt-4o, ...
	Temperature float32 // sampling temperature
	MaxTokens   int     // upper bound on the answer length
}

// OpenAIClient implements Completer on top of the chat completion API.
type OpenAIClient struct {
	client *openai.Client
	config Config
	log    zerolog.Logger
}

// NewOpenAIClient builds a client from cfg.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	const op = "NewOpenAIClient"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAPIKey)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return NewOpenAIClientWithDeps(openai.NewClientWithConfig(clientCfg), cfg), nil
}

// NewOpenAIClientWithDeps wraps an existing go-openai client.
func NewOpenAIClientWithDeps(client *openai.Client, cfg Config) *OpenAIClient {
	return &OpenAIClient{
		client: client,
		config: cfg,
		log:    logger.WithComponent("llm"),
	}
}

// Model returns the model the client currently sends requests to.
func (c *OpenAIClient) Model() string {
	return c.config.Model
}

// UseModel switches the model for subsequent requests. It is not safe to call
// concurrently with Complete.
func (c *OpenAIClient) UseModel(model string) {
	c.config.Model = model
}

// Complete sends prompt as a single user message. No retries are made.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.log.Debug().
		Str("model", c.config.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}

	c.log.Debug().
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Received chat completion")

	return content, nil
}
