package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

type stubRetrieval struct{}

func (stubRetrieval) Search(context.Context, string, domain.SearchOptions) (*domain.SearchOutcome, error) {
	return &domain.SearchOutcome{}, nil
}

func (stubRetrieval) Retrieve(_ context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	return &driving.Retrieval{Query: query, Mode: opts.Mode}, nil
}

func (s stubRetrieval) MatchPricing(ctx context.Context, query string, opts driving.RetrieveOptions) (*driving.Retrieval, error) {
	return s.Retrieve(ctx, query, opts)
}

type stubIngest struct {
	docs []domain.Document
}

func (s *stubIngest) IndexDocuments(context.Context, []domain.IngestRequest) (domain.BatchReport, error) {
	return domain.BatchReport{}, nil
}

func (s *stubIngest) Submit(context.Context, []domain.IngestRequest) (driving.IngestTask, error) {
	return nil, nil
}

func (s *stubIngest) Remove(context.Context, string) error { return nil }

func (s *stubIngest) Reindex(context.Context, []string) (domain.BatchReport, error) {
	return domain.BatchReport{}, nil
}

func (s *stubIngest) ReindexAll(context.Context) (domain.BatchReport, error) {
	return domain.BatchReport{}, nil
}

func (s *stubIngest) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i], nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (s *stubIngest) List(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	return s.docs, nil
}

func (s *stubIngest) Chunks(context.Context, string) ([]domain.Chunk, error) {
	return []domain.Chunk{{ID: "c0"}, {ID: "c1"}}, nil
}

func (s *stubIngest) Stats(context.Context, string) (*domain.IndexStats, error) {
	return &domain.IndexStats{}, nil
}

func newTestApp(t *testing.T) (*App, *stubIngest) {
	t.Helper()
	ingest := &stubIngest{docs: []domain.Document{
		{ID: "doc-1", Filename: "prices.csv", Status: domain.StatusIndexed, Content: "XR200,299.99"},
	}}
	app, err := NewApp(&Ports{Retrieval: stubRetrieval{}, Ingest: ingest})
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app, ingest
}

func TestNewApp_RequiresPorts(t *testing.T) {
	_, err := NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingRetrievalService)

	_, err = NewApp(&Ports{Retrieval: stubRetrieval{}})
	assert.ErrorIs(t, err, ErrMissingIngestService)
}

func TestApp_StartsOnMenu(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "docquery")
	assert.NotContains(t, app.View(), "Ask")
}

func TestApp_NotReadyBeforeResize(t *testing.T) {
	app, err := NewApp(&Ports{Retrieval: stubRetrieval{}, Ingest: &stubIngest{}})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.True(t, app.Ready())
}

func TestApp_SearchRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewSearch})
	require.Equal(t, messages.ViewSearch, app.CurrentView())

	for _, r := range "XR200 price" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	completed, ok := msg.(messages.RetrievalCompleted)
	require.True(t, ok)
	assert.Equal(t, "XR200 price", completed.Retrieval.Query)

	app.Update(msg)
	assert.NoError(t, app.Err())
}

func TestApp_DocumentsToContentAndBack(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	require.NotNil(t, cmd)
	app.Update(cmd())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)

	_, cmd = app.Update(selected)
	assert.Equal(t, messages.ViewDocContent, app.CurrentView())
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Contains(t, app.View(), "prices.csv")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
}

func TestApp_HelpEscReturnsToMenu(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	assert.Contains(t, app.View(), "Cycle mode")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorIsRecorded(t *testing.T) {
	app, _ := newTestApp(t)
	boom := errors.New("boom")

	app.Update(messages.ErrorOccurred{Err: boom})
	assert.ErrorIs(t, app.Err(), boom)
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
