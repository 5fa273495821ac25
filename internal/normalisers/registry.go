package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers/csv"
	"github.com/custodia-labs/docquery/internal/normalisers/docx"
	"github.com/custodia-labs/docquery/internal/normalisers/html"
	"github.com/custodia-labs/docquery/internal/normalisers/json"
	"github.com/custodia-labs/docquery/internal/normalisers/markdown"
	"github.com/custodia-labs/docquery/internal/normalisers/pdf"
	"github.com/custodia-labs/docquery/internal/normalisers/plaintext"
	"github.com/custodia-labs/docquery/internal/normalisers/xlsx"
	"github.com/custodia-labs/docquery/internal/normalisers/xml"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps file types to normalisers. A later registration for a
// file type replaces the earlier one.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.FileType]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make(map[domain.FileType]driven.Normaliser),
	}
}

// DefaultRegistry returns a registry with a normaliser for every accepted
// file type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(xlsx.New())
	r.Register(plaintext.New())
	r.Register(csv.New())
	r.Register(json.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(xml.New())
	return r
}

// Register adds a normaliser for each of its file types.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ft := range normaliser.SupportedFileTypes() {
		r.normalisers[ft] = normaliser
	}
}

// Normalise extracts raw with the normaliser for its file type. Every
// failure wraps domain.ErrExtraction; a type without a normaliser also
// wraps domain.ErrUnsupportedType.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, domain.ErrInvalidInput)
	}

	r.mu.RLock()
	n, ok := r.normalisers[raw.FileType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: no normaliser for %q", domain.ErrExtraction, domain.ErrUnsupportedType, raw.FileType)
	}

	extraction, err := n.Normalise(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, raw.Filename, err)
	}
	if extraction == nil {
		return nil, fmt.Errorf("%w: %s: no output", domain.ErrExtraction, raw.Filename)
	}
	return extraction, nil
}

// SupportedFileTypes returns the registered file types, sorted.
func (r *Registry) SupportedFileTypes() []domain.FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.FileType, 0, len(r.normalisers))
	for ft := range r.normalisers {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
