package llm

import (
	"context"
	"fmt"
)

// GenerateInput carries everything a backend needs to produce livebook text.
type GenerateInput struct {
	SystemPrompt    string
	UserPrompt      string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Client abstracts a chat-completion backend. Implementations normalize
// their provider's response shape into plain document text.
type Client interface {
	Generate(ctx context.Context, input GenerateInput) (string, error)
}

// BackendError reports a non-success HTTP status from a generation backend.
type BackendError struct {
	Backend    string
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s backend: http status %d", e.Backend, e.StatusCode)
	}
	return fmt.Sprintf("%s backend: http status %d: %s", e.Backend, e.StatusCode, e.Detail)
}

// MalformedResponseError reports a 2xx response missing the expected
// content field. It is distinct from BackendError so callers never mistake
// a broken payload for an empty document.
type MalformedResponseError struct {
	Backend string
	Reason  string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s backend: malformed response: %s", e.Backend, e.Reason)
}
