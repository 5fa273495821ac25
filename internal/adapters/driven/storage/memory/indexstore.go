package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
//
// The store-wide lock guards only the set of documents. Each document has
// its own write lock and publishes an immutable snapshot, so writes to
// different documents run in parallel and readers never block writers.
type IndexStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	dimsMu sync.Mutex
	dims   int
}

type entry struct {
	mu      sync.Mutex
	removed bool
	current atomic.Pointer[snapshot]
}

// snapshot is never modified after it is published.
type snapshot struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{entries: make(map[string]*entry)}
}

// Dimensions returns the vector dimension, 0 until the first embedded upsert.
func (s *IndexStore) Dimensions() int {
	s.dimsMu.Lock()
	defer s.dimsMu.Unlock()
	return s.dims
}

// claimDims fixes the dimension on first use and rejects any other.
func (s *IndexStore) claimDims(dims int) error {
	if dims == 0 {
		return nil
	}
	s.dimsMu.Lock()
	defer s.dimsMu.Unlock()
	if s.dims == 0 {
		s.dims = dims
		return nil
	}
	if s.dims != dims {
		return &domain.DimensionMismatchError{Expected: s.dims, Actual: dims}
	}
	return nil
}

// lockEntry returns the live entry for id with its write lock held,
// creating it if needed.
func (s *IndexStore) lockEntry(id string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			e = &entry{}
			s.entries[id] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *IndexStore) lookup(id string) *snapshot {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.current.Load()
}

// SaveDocument stores or updates document metadata, keeping its chunks.
func (s *IndexStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}

	e := s.lockEntry(doc.ID)
	defer e.mu.Unlock()

	next := &snapshot{doc: copyDocument(doc)}
	if prev := e.current.Load(); prev != nil {
		next.chunks = prev.chunks
	}
	e.current.Store(next)
	return nil
}

// UpsertDocument replaces the document and all its chunks in one step.
func (s *IndexStore) UpsertDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id required", domain.ErrInvalidInput)
	}
	dims, err := domain.ValidateChunks(doc, chunks)
	if err != nil {
		return err
	}
	if err := s.claimDims(dims); err != nil {
		return err
	}

	next := &snapshot{doc: copyDocument(doc), chunks: make([]domain.Chunk, len(chunks))}
	for i := range chunks {
		next.chunks[i] = copyChunk(&chunks[i])
	}
	slices.SortStableFunc(next.chunks, func(a, b domain.Chunk) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	e := s.lockEntry(doc.ID)
	defer e.mu.Unlock()
	e.current.Store(next)
	return nil
}

// RemoveDocument deletes a document and its chunks.
func (s *IndexStore) RemoveDocument(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return nil
}

// GetDocument retrieves a document by ID.
func (s *IndexStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	snap := s.lookup(id)
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	doc := copyDocument(&snap.doc)
	return &doc, nil
}

// ListDocuments returns matching documents ordered by creation time.
func (s *IndexStore) ListDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	var docs []domain.Document
	for _, snap := range s.snapshots() {
		if filter.Matches(&snap.doc) {
			docs = append(docs, copyDocument(&snap.doc))
		}
	}
	return docs, nil
}

// GetChunks returns every chunk of a document, embedded or not.
func (s *IndexStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	snap := s.lookup(documentID)
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}
	chunks := make([]domain.Chunk, len(snap.chunks))
	for i := range snap.chunks {
		chunks[i] = copyChunk(&snap.chunks[i])
	}
	return chunks, nil
}

// AllChunks yields embedded chunks of matching documents. The set of
// snapshots is fixed when iteration starts, so one pass is stable even
// while writers run. Yielded values are shared and must not be modified.
func (s *IndexStore) AllChunks(ctx context.Context, filter domain.ChunkFilter) iter.Seq2[domain.IndexedChunk, error] {
	return func(yield func(domain.IndexedChunk, error) bool) {
		for _, snap := range s.snapshots() {
			if err := ctx.Err(); err != nil {
				yield(domain.IndexedChunk{}, err)
				return
			}
			if !filter.Matches(&snap.doc) {
				continue
			}
			for i := range snap.chunks {
				if !snap.chunks[i].Embedded() {
					continue
				}
				if !yield(domain.IndexedChunk{Document: &snap.doc, Chunk: &snap.chunks[i]}, nil) {
					return
				}
			}
		}
	}
}

// snapshots returns the current snapshot of every document ordered by
// creation time then id.
func (s *IndexStore) snapshots() []*snapshot {
	s.mu.RLock()
	snaps := make([]*snapshot, 0, len(s.entries))
	for _, e := range s.entries {
		if snap := e.current.Load(); snap != nil {
			snaps = append(snaps, snap)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(snaps, func(a, b *snapshot) int {
		if c := a.doc.CreatedAt.Compare(b.doc.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.doc.ID, b.doc.ID)
	})
	return snaps
}

// ResetVectors clears every stored vector and sets a new dimension.
func (s *IndexStore) ResetVectors(ctx context.Context, dims int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dims < 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidConfiguration, dims)
	}

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	s.dimsMu.Lock()
	defer s.dimsMu.Unlock()
	for _, e := range entries {
		e.mu.Lock()
		if prev := e.current.Load(); prev != nil {
			next := &snapshot{doc: prev.doc, chunks: make([]domain.Chunk, len(prev.chunks))}
			for i := range prev.chunks {
				next.chunks[i] = prev.chunks[i]
				next.chunks[i].Embedding = nil
			}
			e.current.Store(next)
		}
		e.mu.Unlock()
	}
	s.dims = dims
	return nil
}

// Close releases nothing; the store lives as long as the process.
func (s *IndexStore) Close() error {
	return nil
}

func copyDocument(doc *domain.Document) domain.Document {
	return *doc
}

func copyChunk(c *domain.Chunk) domain.Chunk {
	out := *c
	out.Embedding = slices.Clone(c.Embedding)
	out.Tags = slices.Clone(c.Tags)
	return out
}
