package domain

import (
	"fmt"
	"time"
)

// Document represents one uploaded file known to the index.
// It is created on ingest and mutated only by the batch orchestrator.
type Document struct {
	// ID is the unique, stable identifier for the document.
	ID string

	// Filename is the source filename as uploaded.
	Filename string

	// Title is the human-readable title (defaults to the filename stem).
	Title string

	// FileType is the declared file type tag.
	FileType FileType

	// Kind marks price lists and catalogs. Every chunk of such a document
	// is treated as pricing-bearing.
	Kind DocumentKind

	// OwnerID references the user or project the document belongs to.
	OwnerID string

	// Status is the lifecycle status.
	Status Status

	// FailureReason is set when Status is StatusFailed.
	FailureReason string

	// Content is the extracted text. Kept so the document can be
	// re-chunked and re-embedded without the original file.
	Content string

	// Details carries file-type-specific metadata produced by extraction.
	Details FileDetails

	// CreatedAt is when the document was first uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last changed.
	UpdatedAt time.Time
}

// Chunk is a contiguous, bounded slice of a document's text.
type Chunk struct {
	// ID is unique within the parent Document.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Sequence is the 0-based document-local order.
	Sequence int

	// Content is the raw text span.
	Content string

	// Start and End are rune offsets into the source text, End exclusive.
	Start int
	End   int

	// Embedding is nil until computed.
	Embedding []float32

	// Tags are structural hints detected during chunking.
	Tags []ChunkTag
}

// Embedded reports whether the chunk has a vector.
func (c *Chunk) Embedded() bool {
	return len(c.Embedding) > 0
}

// HasTag reports whether the chunk carries tag.
func (c *Chunk) HasTag(tag ChunkTag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidateChunks checks a chunk set before it replaces a document's chunks.
// Every chunk must belong to doc and carry a unique ID, and every embedded
// chunk must share one dimension, which is returned (0 when none are
// embedded).
func ValidateChunks(doc *Document, chunks []Chunk) (int, error) {
	dims := 0
	ids := make(map[string]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.DocumentID != doc.ID {
			return 0, fmt.Errorf("%w: chunk %q belongs to %q, not %q", ErrInvalidInput, c.ID, c.DocumentID, doc.ID)
		}
		if c.ID == "" || ids[c.ID] {
			return 0, fmt.Errorf("%w: missing or duplicate chunk id %q", ErrInvalidInput, c.ID)
		}
		ids[c.ID] = true
		if !c.Embedded() {
			continue
		}
		if dims == 0 {
			dims = len(c.Embedding)
		} else if len(c.Embedding) != dims {
			return 0, &DimensionMismatchError{Expected: dims, Actual: len(c.Embedding)}
		}
	}
	return dims, nil
}

// IndexedChunk pairs a chunk with its parent document.
// This is the element type of store scans used by retrieval.
type IndexedChunk struct {
	Document *Document
	Chunk    *Chunk
}

// Status is the document lifecycle status.
type Status string

const (
	// StatusPending means the document was accepted but not yet indexed.
	StatusPending Status = "pending"
	// StatusIndexed means the chunks are stored and every chunk with
	// indexable content is embedded.
	StatusIndexed Status = "indexed"
	// StatusFailed means the pipeline failed; see FailureReason.
	StatusFailed Status = "failed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusIndexed, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// DocumentKind classifies documents for pricing detection.
type DocumentKind string

const (
	KindGeneral   DocumentKind = "general"
	KindPriceList DocumentKind = "price_list"
	KindCatalog   DocumentKind = "catalog"
)

// IsValid reports whether k is a known kind.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindGeneral, KindPriceList, KindCatalog:
		return true
	}
	return false
}

// PricingSource reports whether every chunk of a document of this kind
// counts as pricing-bearing.
func (k DocumentKind) PricingSource() bool {
	return k == KindPriceList || k == KindCatalog
}

// ChunkTag is a structural hint attached to a chunk.
type ChunkTag string

const (
	// TagNumeric marks chunks dominated by digits.
	TagNumeric ChunkTag = "numeric"
	// TagTabular marks chunks whose lines share a column delimiter.
	TagTabular ChunkTag = "tabular"
	// TagPricing marks pricing-bearing chunks.
	TagPricing ChunkTag = "pricing"
	// TagIdentifier marks chunks containing at least one product identifier.
	TagIdentifier ChunkTag = "identifier"
)

// IsValid reports whether t is a known tag.
func (t ChunkTag) IsValid() bool {
	switch t {
	case TagNumeric, TagTabular, TagPricing, TagIdentifier:
		return true
	}
	return false
}
