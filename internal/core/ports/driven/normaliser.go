package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// Normaliser extracts plain text from one family of file types.
// It is the text extraction collaborator.
type Normaliser interface {
	// SupportedFileTypes returns the file types this normaliser handles.
	SupportedFileTypes() []domain.FileType

	// Normalise extracts text spans and file details from a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Extraction, error)
}
