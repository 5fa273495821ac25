package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

var testCreated = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testResults() []domain.SearchResult {
	return []domain.SearchResult{{
		Document: domain.Document{ID: "doc-1", Filename: "manual.pdf", Title: "Manual", CreatedAt: testCreated},
		Chunk:    domain.Chunk{ID: "doc-1#0000", DocumentID: "doc-1", Content: "The XR-200 battery lasts ten hours."},
		Score:    0.87,
	}}
}

// mockIngestService records calls and returns canned data.
type mockIngestService struct {
	mu       sync.Mutex
	indexed  []domain.IngestRequest
	removed  []string
	reindex  []string
	all      bool
	docs     []domain.Document
	chunks   []domain.Chunk
	stats    *domain.IndexStats
	err      error
	removeFn func(id string) error
}

func (m *mockIngestService) report(requests []domain.IngestRequest) domain.BatchReport {
	var r domain.BatchReport
	for _, req := range requests {
		r.Add(domain.Outcome{
			DocumentID: req.Document.ID,
			Filename:   req.Raw.Filename,
			Status:     domain.OutcomeIndexed,
			Chunks:     2,
		})
	}
	return r
}

func (m *mockIngestService) IndexDocuments(_ context.Context, requests []domain.IngestRequest) (domain.BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.BatchReport{}, m.err
	}
	m.indexed = append(m.indexed, requests...)
	return m.report(requests), nil
}

func (m *mockIngestService) Submit(ctx context.Context, requests []domain.IngestRequest) (driving.IngestTask, error) {
	report, err := m.IndexDocuments(ctx, requests)
	if err != nil {
		return nil, err
	}
	return newDoneTask(report), nil
}

func (m *mockIngestService) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeFn != nil {
		if err := m.removeFn(id); err != nil {
			return err
		}
	}
	m.removed = append(m.removed, id)
	return m.err
}

func (m *mockIngestService) removedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *mockIngestService) indexedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed)
}

func (m *mockIngestService) Reindex(_ context.Context, ids []string) (domain.BatchReport, error) {
	m.reindex = append(m.reindex, ids...)
	var r domain.BatchReport
	for _, id := range ids {
		r.Add(domain.Outcome{DocumentID: id, Status: domain.OutcomeIndexed, Chunks: 1})
	}
	return r, m.err
}

func (m *mockIngestService) ReindexAll(context.Context) (domain.BatchReport, error) {
	m.all = true
	return domain.BatchReport{}, m.err
}

func (m *mockIngestService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockIngestService) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Document
	for i := range m.docs {
		if filter.Matches(&m.docs[i]) {
			out = append(out, m.docs[i])
		}
	}
	return out, nil
}

func (m *mockIngestService) Chunks(_ context.Context, id string) ([]domain.Chunk, error) {
	if _, err := m.Get(context.Background(), id); err != nil {
		return nil, err
	}
	return m.chunks, nil
}

func (m *mockIngestService) Stats(context.Context, string) (*domain.IndexStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return &domain.IndexStats{}, nil
	}
	return m.stats, nil
}

// doneTask is an already finished ingest task.
type doneTask struct {
	report domain.BatchReport
	done   chan struct{}
}

func newDoneTask(report domain.BatchReport) *doneTask {
	t := &doneTask{report: report, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneTask) ID() string                { return "task-1" }
func (t *doneTask) Done() <-chan struct{}     { return t.done }
func (t *doneTask) Progress() domain.Progress { return domain.Progress{} }
func (t *doneTask) Cancel()                   {}

func (t *doneTask) Wait(context.Context) (domain.BatchReport, error) {
	return t.report, nil
}

// mockRetrievalService returns canned results.
type mockRetrievalService struct {
	err      error
	lastOpts driving.RetrieveOptions
	lastSrch domain.SearchOptions
}

func (m *mockRetrievalService) Search(_ context.Context, _ string, opts domain.SearchOptions) (*domain.SearchOutcome, error) {
	m.lastSrch = opts
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SearchOutcome{Results: testResults(), Scanned: 12}, nil
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &driving.Retrieval{
		Query:   query,
		Intent:  domain.IntentGeneral,
		Mode:    opts.Mode,
		Results: testResults(),
		Context: domain.ContextBlob{
			Text:      "=== manual.pdf ===\nThe XR-200 battery lasts ten hours.",
			Tokens:    12,
			MaxTokens: 16000,
			Included:  1,
			Sections:  []domain.ContextSection{{DocumentID: "doc-1", Filename: "manual.pdf"}},
		},
	}, nil
}

func (m *mockRetrievalService) MatchPricing(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	r, err := m.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	r.Intent = domain.IntentProductMatch
	r.Match = &domain.MatchOutcome{
		QueryIdentifiers: []domain.IdentifierMatch{{Raw: "XR-200", Normalized: "XR200"}},
		Records: []domain.MatchedPricingRecord{{
			Identifier: domain.IdentifierMatch{Normalized: "XR200", DocumentID: "doc-1"},
			Pricing: domain.SearchResult{
				Document: domain.Document{ID: "doc-2", Filename: "prices.csv"},
				Chunk:    domain.Chunk{ID: "doc-2#0000"},
				Score:    2.1,
				Boosted:  true,
			},
			Score: 1.5,
		}},
		Boosted: 1,
	}
	return r, nil
}

// mockAnswerService echoes the question.
type mockAnswerService struct {
	err     error
	history [][]domain.ChatTurn
}

func (m *mockAnswerService) Ask(_ context.Context, query string, opts driving.AskOptions) (*domain.Answer, error) {
	m.history = append(m.history, append([]domain.ChatTurn(nil), opts.History...))
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Answer{
		Response:  "Answer to: " + query,
		Model:     "test-model",
		FilesUsed: []string{"manual.pdf"},
		Results:   testResults(),
	}, nil
}

var errMock = errors.New("mock failure")

// setupTestServices installs doubles for every service and returns a
// function restoring the previous state.
func setupTestServices() (*mockIngestService, *mockRetrievalService, *mockAnswerService, func()) {
	oldConfig, oldIngest, oldRetrieval, oldAnswer := appConfig, ingestService, retrievalService, answerService

	ingest := &mockIngestService{}
	retrieval := &mockRetrievalService{}
	answer := &mockAnswerService{}

	appConfig = file.Default()
	ingestService = ingest
	retrievalService = retrieval
	answerService = answer

	return ingest, retrieval, answer, func() {
		appConfig, ingestService, retrievalService, answerService = oldConfig, oldIngest, oldRetrieval, oldAnswer
	}
}
