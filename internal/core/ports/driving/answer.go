package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// AskOptions configures a question.
type AskOptions struct {
	Retrieve RetrieveOptions

	// History holds prior turns, oldest first. Only the most recent turns
	// up to the configured limit are sent.
	History []domain.ChatTurn
}

// AnswerService answers questions strictly from indexed documents.
type AnswerService interface {
	// Ask retrieves context for query and asks the completion service.
	// Returns domain.ErrLLMUnavailable when no completion service is set.
	Ask(ctx context.Context, query string, opts AskOptions) (*domain.Answer, error)
}
