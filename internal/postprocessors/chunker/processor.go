// Package chunker provides a fixed-size sliding-window chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Span is one window over the source text. Start and End are rune offsets,
// End exclusive.
type Span struct {
	Text  string
	Start int
	End   int
}

// Validate checks chunking parameters.
func Validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfiguration, chunkSize)
	}
	if overlap <= 0 {
		return fmt.Errorf("%w: overlap must be positive, got %d", domain.ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfiguration, overlap, chunkSize)
	}
	return nil
}

// Split slides a window of chunkSize characters over text, advancing by
// chunkSize-overlap each step. Characters are runes, so a multibyte
// character is never split. The last window may be shorter but is never
// empty; text shorter than chunkSize yields exactly one span.
func Split(text string, chunkSize, overlap int) ([]Span, error) {
	if err := Validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, domain.ErrEmptyInput
	}

	runes := []rune(text)
	n := len(runes)
	step := chunkSize - overlap
	spans := make([]Span, 0, n/step+1)

	for start := 0; ; start += step {
		end := min(start+chunkSize, n)
		spans = append(spans, Span{
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == n {
			break
		}
	}

	return spans, nil
}

// ChunkID returns the document-local chunk identifier for a sequence index.
func ChunkID(documentID string, sequence int) string {
	return fmt.Sprintf("%s#%04d", documentID, sequence)
}

// Processor splits document content into fixed-size chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// It fails with domain.ErrInvalidConfiguration on bad parameters.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := Validate(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	spans, err := Split(doc.Content, p.chunkSize, p.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{
			ID:         ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Sequence:   i,
			Content:    s.Text,
			Start:      s.Start,
			End:        s.End,
		}
	}
	return chunks, nil
}
