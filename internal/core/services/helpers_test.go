package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/postprocessors"
)

// --- Mock implementations ---

// vocabulary gives each word its own axis in mockEmbeddingService vectors.
var vocabulary = []string{"warranty", "battery", "price", "xr-200", "xr 200", "shipping", "laptop", "blender"}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// A text's vector counts vocabulary words plus a small constant axis, so
// texts sharing words are similar and no vector is zero.
type mockEmbeddingService struct {
	mu    sync.Mutex
	calls int

	// batchErr fails every call while set.
	batchErr error

	// corrupt lists substrings whose texts get a non-finite vector.
	corrupt []string

	// flaky gives a non-finite vector to texts containing the key for as
	// many calls as the value.
	flaky map[string]int

	// blank gives a zero vector to texts without letters or digits.
	blank bool

	// short returns one vector fewer than requested.
	short bool

	// block makes calls wait until the context is done.
	block bool
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary)+1)
	for i, w := range vocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(vocabulary)] = 0.1
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	batchErr, block, short := m.batchErr, m.block, m.short
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if batchErr != nil {
		return nil, batchErr
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, m.vectorFor(text))
	}
	if short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.corrupt {
		if strings.Contains(text, c) {
			return nanVector()
		}
	}
	for key, n := range m.flaky {
		if n > 0 && strings.Contains(text, key) {
			m.flaky[key] = n - 1
			return nanVector()
		}
	}
	if m.blank && !strings.ContainsFunc(text, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return make([]float32, len(vocabulary)+1)
	}
	return m.vector(text)
}

func nanVector() []float32 {
	v := make([]float32, len(vocabulary)+1)
	v[0] = float32(math.NaN())
	return v
}

func (m *mockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(vocabulary) + 1
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockCompletionService implements driven.CompletionService for testing.
type mockCompletionService struct {
	text     string
	err      error
	messages []domain.ChatTurn
	opts     driven.CompletionOptions
}

func (m *mockCompletionService) Complete(_ context.Context, messages []domain.ChatTurn, opts driven.CompletionOptions) (*domain.Completion, error) {
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Completion{
		Text:  m.text,
		Usage: domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}, nil
}

func (m *mockCompletionService) ModelName() string {
	return "mock-llm"
}

func (m *mockCompletionService) Ping(_ context.Context) error {
	return nil
}

func (m *mockCompletionService) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockNormaliserRegistry implements driven.NormaliserRegistry for testing.
// Content is split into paragraphs. Content "broken" fails.
type mockNormaliserRegistry struct {
	details domain.FileDetails
}

func (m *mockNormaliserRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if string(raw.Content) == "broken" {
		return nil, domain.ErrExtraction
	}
	return &domain.Extraction{
		Title:   "Extracted " + raw.Filename,
		Spans:   domain.SpansFromBlocks(strings.Split(string(raw.Content), "\n\n")),
		Details: m.details,
	}, nil
}

func (m *mockNormaliserRegistry) Register(_ driven.Normaliser) {}

func (m *mockNormaliserRegistry) SupportedFileTypes() []domain.FileType {
	return domain.AllFileTypes()
}

// --- Test helpers ---

type testEngine struct {
	store        *memory.IndexStore
	embedding    *mockEmbeddingService
	embedder     *Embedder
	orchestrator *Orchestrator
	ingest       *IngestService
	retrieval    *RetrievalService
}

func newTestEngine(t *testing.T, chunkSize, overlap int) *testEngine {
	t.Helper()
	svc := &mockEmbeddingService{}
	e := newEngine(t, svc, chunkSize, overlap)
	e.embedding = svc
	return e
}

// newHashingEngine wires the offline hashing embedder used by default.
func newHashingEngine(t *testing.T) *testEngine {
	t.Helper()
	return newEngine(t, hashing.NewEmbeddingService(hashing.Config{}), 1000, 200)
}

func newEngine(t *testing.T, svc driven.EmbeddingService, chunkSize, overlap int) *testEngine {
	t.Helper()

	store := memory.NewIndexStore()
	cfg := DefaultEmbedderConfig()
	cfg.BatchSize = 4
	cfg.CacheTTL = 0
	embedder := NewEmbedder(svc, cfg, nil)

	pipeline, err := postprocessors.DefaultPipeline(chunkSize, overlap)
	require.NoError(t, err)

	orch := NewOrchestrator(store, &mockNormaliserRegistry{}, pipeline, embedder, DefaultOrchestratorConfig(), nil)
	// Strictly increasing clock so creation order is deterministic.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var (
		clockMu sync.Mutex
		tick    int
	)
	orch.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	retrieval := NewRetrievalService(
		embedder,
		NewRetriever(store),
		NewMatcher(store, domain.DefaultBoostFactor),
		NewAssembler(domain.DefaultMaxTokens),
		DefaultRetrievalConfig(),
		nil,
	)

	return &testEngine{
		store:        store,
		embedder:     embedder,
		orchestrator: orch,
		ingest:       NewIngestService(store, orch),
		retrieval:    retrieval,
	}
}

func textRequest(id, filename, text string) domain.IngestRequest {
	return domain.IngestRequest{
		Document: domain.Document{ID: id, Filename: filename},
		Text:     text,
	}
}

// seed stores one document with pre-computed unit vectors per chunk.
func seed(t *testing.T, store *memory.IndexStore, doc domain.Document, contents []string, vecs [][]float32) {
	t.Helper()
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{
			ID:         doc.ID + "#" + string(rune('a'+i)),
			DocumentID: doc.ID,
			Sequence:   i,
			Content:    c,
			Embedding:  vecs[i],
		}
	}
	doc.Status = domain.StatusIndexed
	require.NoError(t, store.UpsertDocument(context.Background(), &doc, chunks))
}

func testDocument(id, filename string, created time.Time) domain.Document {
	return domain.Document{
		ID:        id,
		Filename:  filename,
		Title:     id,
		FileType:  domain.FileTypeText,
		Kind:      domain.KindGeneral,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func resultIDs(results []domain.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}
