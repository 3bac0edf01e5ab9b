package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAI answers questions through the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds an OpenAI policy. Empty model falls back to the default.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if v := strings.TrimSpace(baseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}

	m := strings.TrimSpace(model)
	if m == "" {
		m = defaultOpenAIModel
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  m,
	}
}

// Name returns the policy identifier.
func (p *OpenAI) Name() string { return "openai" }

// Respond sends the question as a single user message.
func (p *OpenAI) Respond(ctx context.Context, question string) (string, error) {
	if p == nil || p.client == nil {
		return "", errors.New("policy: openai: nil client")
	}
	if ctx == nil {
		return "", errors.New("policy: openai: nil context")
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: DefaultSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("policy: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("policy: openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
