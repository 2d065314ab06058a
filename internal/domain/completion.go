package domain

import (
	"context"
	"fmt"
)

// Completer is the shared text generation contract between layers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// HealthChecker verifies completion provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CompletionResult carries generated text and token usage through the decorator chain.
type CompletionResult struct {
	Text             string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	// Offline marks placeholder output produced without calling a provider.
	Offline bool
	Cached  bool
	Note    string
}

// OfflineNote explains why a placeholder was returned.
const OfflineNote = "OPENAI_API_KEY not set. Add it to .env file to enable real AI responses."

// OfflineCompleter returns a fixed placeholder workflow instead of calling a provider.
type OfflineCompleter struct {
	text string
}

// NewOfflineCompleter creates a completer that always answers with text.
// An empty text selects the built-in placeholder workflow.
func NewOfflineCompleter(text string) *OfflineCompleter {
	if text == "" {
		text = offlinePlaceholder
	}
	return &OfflineCompleter{text: text}
}

// Complete returns the placeholder without looking at the prompt.
func (c *OfflineCompleter) Complete(ctx context.Context, _ string) (CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResult{}, fmt.Errorf("offline complete: %w", err)
	}
	return CompletionResult{
		Text:     c.text,
		Provider: "offline",
		Model:    "placeholder",
		Offline:  true,
		Note:     OfflineNote,
	}, nil
}

// HealthCheck always succeeds.
func (c *OfflineCompleter) HealthCheck(context.Context) error { return nil }

const offlinePlaceholder = `{
  "id": "offline-demo-workflow",
  "type": "notification",
  "condition": {"field": "duration", "operator": ">", "value": 120},
  "action": {"type": "email", "recipients": ["team@example.com"]},
  "priority": "medium"
}`
