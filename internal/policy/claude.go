package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 1024
)

// Claude answers questions through the Anthropic Messages API.
type Claude struct {
	client *anthropic.Client
	model  string
}

// NewClaude builds a Claude policy. Empty model falls back to the default.
func NewClaude(apiKey, baseURL, model string) *Claude {
	opts := make([]option.RequestOption, 0, 2)
	if v := strings.TrimSpace(apiKey); v != "" {
		opts = append(opts, option.WithAPIKey(v))
	}
	if v := strings.TrimSpace(baseURL); v != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(v, "/")))
	}

	m := strings.TrimSpace(model)
	if m == "" {
		m = defaultClaudeModel
	}

	client := anthropic.NewClient(opts...)
	return &Claude{client: &client, model: m}
}

// Name returns the policy identifier.
func (p *Claude) Name() string { return "claude" }

// Respond sends the question as a single user message and concatenates the
// text blocks of the reply.
func (p *Claude) Respond(ctx context.Context, question string) (string, error) {
	if p == nil || p.client == nil {
		return "", errors.New("policy: claude: nil client")
	}
	if ctx == nil {
		return "", errors.New("policy: claude: nil context")
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{{
			Text: DefaultSystemPrompt,
			Type: "text",
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("policy: claude: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
