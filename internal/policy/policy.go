// Package policy adapts LLM providers to the environment's action
// boundary: a policy turns an observation into a textual response.
package policy

import (
	"context"
	"errors"
	"strings"
)

// DefaultSystemPrompt steers providers toward the boxed-answer convention
// the default extractor understands.
const DefaultSystemPrompt = `Answer the question. Show your reasoning, then put your final answer inside \boxed{}.`

// Policy produces one response per observation.
type Policy interface {
	Name() string
	Respond(ctx context.Context, question string) (string, error)
}

// Scripted is an offline policy that answers from a fixed function. Used
// for tests and dry runs.
type Scripted struct {
	ID string
	Fn func(question string) string
}

// Echo returns a scripted policy that always answers with the given text.
func Echo(response string) *Scripted {
	return &Scripted{ID: "echo", Fn: func(string) string { return response }}
}

// Name returns the policy identifier.
func (s *Scripted) Name() string {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return "scripted"
	}
	return s.ID
}

// Respond applies the scripted function.
func (s *Scripted) Respond(ctx context.Context, question string) (string, error) {
	if s == nil || s.Fn == nil {
		return "", errors.New("policy: nil scripted policy")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Fn(question), nil
}
