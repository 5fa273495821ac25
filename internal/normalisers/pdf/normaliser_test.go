package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// buildPDF writes a minimal uncompressed PDF with one text line per page
// and a correct cross-reference table.
func buildPDF(title string, pages ...string) []byte {
	n := len(pages)
	fontID := 3 + 2*n
	infoID := fontID + 1

	objects := make([]string, infoID+1)
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects[1] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects[3+2*i] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i)
		objects[4+2*i] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}
	objects[fontID] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	objects[infoID] = fmt.Sprintf("<< /Title (%s) >>", title)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for id := 1; id < len(objects); id++ {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, objects[id])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects))
	for id := 1; id < len(objects); id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects), infoID, xref)
	return buf.Bytes()
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypePDF}, New().SupportedFileTypes())
}

func TestNormalise_Pages(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "datasheet.pdf",
		FileType: domain.FileTypePDF,
		Content:  buildPDF("XR-200 Datasheet", "Battery life ten hours", "Warranty two years"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "XR-200 Datasheet", result.Title)
	assert.Equal(t, domain.PagedDetails{Pages: 2}, result.Details)
	require.Len(t, result.Spans, 2)
	assert.Contains(t, result.Spans[0].Text, "Battery")
	assert.Contains(t, result.Spans[1].Text, "Warranty")
	assert.Less(t, result.Spans[0].End, result.Spans[1].Start)
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_NotPDF(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "broken.pdf",
		FileType: domain.FileTypePDF,
		Content:  []byte("this is not a pdf"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Normalise(ctx, &domain.RawDocument{
		Filename: "datasheet.pdf",
		FileType: domain.FileTypePDF,
		Content:  buildPDF("t", "page"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
