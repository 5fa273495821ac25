package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// NormaliserRegistry selects the normaliser for a raw document by its
// declared file type.
type NormaliserRegistry interface {
	// Normalise extracts text using the normaliser registered for raw.FileType.
	// Any failure is reported wrapped in domain.ErrExtraction.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Extraction, error)

	// Register adds a normaliser for each of its file types.
	Register(normaliser Normaliser)

	// SupportedFileTypes returns all file types that can be extracted.
	SupportedFileTypes() []domain.FileType
}
