package polish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIPolisher talks to any OpenAI-compatible chat endpoint
// (OpenAI itself or DeepSeek).
type OpenAIPolisher struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIPolisher builds a client for opts.BaseURL (empty means OpenAI).
func NewOpenAIPolisher(name string, opts Options) *OpenAIPolisher {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	temp := opts.Temperature
	if temp == 0 {
		temp = 0.3
	}
	return &OpenAIPolisher{
		name:        name,
		client:      openai.NewClientWithConfig(config),
		model:       opts.Model,
		temperature: temp,
	}
}

func (p *OpenAIPolisher) Name() string { return p.name }

// Complete sends one system and one user message and returns the first choice.
func (p *OpenAIPolisher) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: "Please rewrite this email:\n\n" + user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
