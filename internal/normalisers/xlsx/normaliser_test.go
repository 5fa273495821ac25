package xlsx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { require.NoError(t, f.Close()) }()

	require.NoError(t, f.SetSheetName("Sheet1", "Prices"))
	cells := map[string]any{
		"A1": "Model", "B1": "Price", "C1": "In stock",
		"A2": "XR-200", "B2": 1299, "C2": true,
		"A4": "XR-300", "C4": false,
	}
	for ref, v := range cells {
		require.NoError(t, f.SetCellValue("Prices", ref, v))
	}
	require.NoError(t, f.SetCellValue("Prices", "A3", "   "))

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellRichText("Notes", "A1", []excelize.RichTextRun{{Text: "Rich "}, {Text: "text"}}))

	_, err = f.NewSheet("Empty")
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func normalise(t *testing.T, content []byte) (*domain.Extraction, error) {
	t.Helper()
	return New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "prices.xlsx",
		FileType: domain.FileTypeXLSX,
		Content:  content,
	})
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeXLSX}, New().SupportedFileTypes())
}

func TestNormalise_Workbook(t *testing.T) {
	result, err := normalise(t, buildWorkbook(t))
	require.NoError(t, err)

	require.Len(t, result.Spans, 3)
	assert.Equal(t, "Sheet: Prices\nModel | Price | In stock\nXR-200 | 1299 | TRUE\nXR-300 |  | FALSE", result.Spans[0].Text)
	assert.Equal(t, "Sheet: Notes\nRich text", result.Spans[1].Text)
	assert.Equal(t, "Sheet: Empty", result.Spans[2].Text)
	assert.Equal(t, domain.TableDetails{Columns: 3, Rows: 4, Sheets: []string{"Prices", "Notes", "Empty"}}, result.Details)
}

func TestNormalise_Invalid(t *testing.T) {
	_, err := normalise(t, []byte("not a zip"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Normalise(ctx, &domain.RawDocument{Filename: "prices.xlsx", Content: buildWorkbook(t)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrimRow(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b"}, trimRow([]string{" a ", "", "b", " ", ""}))
	assert.Empty(t, trimRow([]string{"  ", ""}))
	assert.Empty(t, trimRow(nil))
}
