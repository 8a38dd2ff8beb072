// Package openai adapts github.com/sashabaranov/go-openai to llm.Provider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"cv-analyzer/internal/llm"
)

const systemPrompt = "You are a resume analysis engine. Respond with JSON only. No markdown."

// Client implements llm.Provider using OpenAI Chat Completions.
type Client struct {
	cli   *openai.Client
	model string
}

// NewClient constructs a new OpenAI client. baseURL is optional.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{cli: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Generate requests a JSON object completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai response missing choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai response empty content")
	}
	return content, nil
}

var _ llm.Provider = (*Client)(nil)
