package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// CompletionService turns an assembled context and conversation into prose.
// This is an optional service: when nil, question answering is disabled but
// retrieval still works.
//
// Implementations may include:
//   - OpenAI or any OpenAI-compatible endpoint (LM Studio, vLLM)
type CompletionService interface {
	// Complete runs one chat completion over messages.
	Complete(ctx context.Context, messages []domain.ChatTurn, opts CompletionOptions) (*domain.Completion, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionOptions configures generation behaviour.
type CompletionOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero means
	// the model default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
