package documents

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// MockIngestService implements driving.IngestService for testing.
type MockIngestService struct {
	Docs      []domain.Document
	Removed   []string
	Reindexed []string
	Err       error
}

func (m *MockIngestService) IndexDocuments(context.Context, []domain.IngestRequest) (domain.BatchReport, error) {
	return domain.BatchReport{}, nil
}

func (m *MockIngestService) Submit(context.Context, []domain.IngestRequest) (driving.IngestTask, error) {
	return nil, nil
}

func (m *MockIngestService) Remove(_ context.Context, id string) error {
	m.Removed = append(m.Removed, id)
	return m.Err
}

func (m *MockIngestService) Reindex(_ context.Context, ids []string) (domain.BatchReport, error) {
	m.Reindexed = append(m.Reindexed, ids...)
	var r domain.BatchReport
	for _, id := range ids {
		r.Add(domain.Outcome{DocumentID: id, Status: domain.OutcomeIndexed})
	}
	return r, m.Err
}

func (m *MockIngestService) ReindexAll(context.Context) (domain.BatchReport, error) {
	return domain.BatchReport{}, nil
}

func (m *MockIngestService) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrDocumentNotFound
}

func (m *MockIngestService) List(context.Context, domain.DocumentFilter) ([]domain.Document, error) {
	return m.Docs, m.Err
}

func (m *MockIngestService) Chunks(context.Context, string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *MockIngestService) Stats(context.Context, string) (*domain.IndexStats, error) {
	return &domain.IndexStats{}, nil
}

func testDocs() []domain.Document {
	return []domain.Document{
		{ID: "doc-1", Filename: "manual.pdf", FileType: domain.FileTypePDF, Kind: domain.KindGeneral, Status: domain.StatusIndexed},
		{ID: "doc-2", Filename: "prices.csv", FileType: domain.FileTypeCSV, Kind: domain.KindPriceList, Status: domain.StatusIndexed},
		{ID: "doc-3", Filename: "broken.xlsx", FileType: domain.FileTypeXLSX, Status: domain.StatusFailed, FailureReason: domain.ReasonExtraction},
	}
}

func loaded(t *testing.T, mock *MockIngestService) *View {
	t.Helper()
	view := NewView(nil, nil, mock)
	cmd := view.Init()
	require.NotNil(t, cmd)
	view.Update(cmd())
	return view
}

func TestView_InitLoadsDocuments(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})

	assert.Len(t, view.Documents(), 3)
	assert.NoError(t, view.Err())
	assert.Contains(t, view.View(), "Documents (3)")
}

func TestView_NoService(t *testing.T) {
	view := NewView(nil, nil, nil)

	msg := view.Init()()

	assert.Equal(t, messages.DocumentsLoaded{Err: ErrNoIngestService}, msg)
}

func TestView_Navigate(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, view.SelectedIndex())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, "doc-2", view.SelectedDocument().ID)
}

func TestView_EnterSelectsDocument(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	selected, ok := cmd().(messages.DocumentSelected)
	require.True(t, ok)
	assert.Equal(t, "doc-2", selected.Document.ID)
}

func TestView_EnterWithoutDocuments(t *testing.T) {
	view := loaded(t, &MockIngestService{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Contains(t, view.View(), "No documents indexed")
}

func TestView_Remove(t *testing.T) {
	mock := &MockIngestService{Docs: testDocs()}
	view := loaded(t, mock)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)
	mock.Docs = mock.Docs[1:]
	_, reload := view.Update(cmd())
	require.NotNil(t, reload)
	view.Update(reload())

	assert.Equal(t, []string{"doc-1"}, mock.Removed)
	assert.Equal(t, "Removed doc-1", view.Status())
	assert.Len(t, view.Documents(), 2)
}

func TestView_RemoveError(t *testing.T) {
	mock := &MockIngestService{Docs: testDocs()}
	view := loaded(t, mock)
	mock.Err = domain.ErrDocumentNotFound

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	_, reload := view.Update(cmd())

	assert.Nil(t, reload)
	assert.ErrorIs(t, view.Err(), domain.ErrDocumentNotFound)
}

func TestView_Reindex(t *testing.T) {
	mock := &MockIngestService{Docs: testDocs()}
	view := loaded(t, mock)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.NotNil(t, cmd)
	view.Update(cmd())

	assert.Equal(t, []string{"doc-2"}, mock.Reindexed)
	assert.Equal(t, "Re-indexed doc-2", view.Status())
}

func TestView_ReindexFailureReason(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})
	var report domain.BatchReport
	report.Add(domain.Outcome{DocumentID: "doc-3", Status: domain.OutcomeFailed, Reason: domain.ReasonExtraction})

	view.Update(messages.DocumentReindexed{DocumentID: "doc-3", Report: report})

	assert.Contains(t, view.Status(), "failed: "+domain.ReasonExtraction)
}

func TestView_ReloadClampsSelection(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	view.Update(messages.DocumentsLoaded{Documents: testDocs()[:1]})

	assert.Equal(t, 0, view.SelectedIndex())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	view := NewView(nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_RenderStatuses(t *testing.T) {
	view := loaded(t, &MockIngestService{Docs: testDocs()})
	view.SetDimensions(100, 30)

	out := view.View()

	assert.Contains(t, out, "> manual.pdf")
	assert.Contains(t, out, "price_list")
	assert.Contains(t, out, "failed ("+domain.ReasonExtraction+")")
	assert.Contains(t, out, "d: remove")
}

func TestView_ScrollIndicator(t *testing.T) {
	docs := make([]domain.Document, 20)
	for i := range docs {
		docs[i] = domain.Document{ID: string(rune('a' + i))}
	}
	view := loaded(t, &MockIngestService{Docs: docs})
	view.SetDimensions(80, 12)

	for range 10 {
		view.Update(tea.KeyMsg{Type: tea.KeyDown})
	}

	assert.Equal(t, 10, view.SelectedIndex())
	assert.Contains(t, view.View(), "[8-11 of 20]")
}
