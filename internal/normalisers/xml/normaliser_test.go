package xml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func normalise(t *testing.T, content []byte) *domain.Extraction {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "catalog.xml",
		FileType: domain.FileTypeXML,
		Content:  content,
	})
	require.NoError(t, err)
	return result
}

func blocks(e *domain.Extraction) []string {
	out := make([]string, 0, len(e.Spans))
	for _, s := range e.Spans {
		out = append(out, s.Text)
	}
	return out
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeXML}, New().SupportedFileTypes())
}

func TestNormalise_Catalog(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<catalog xmlns="urn:example:catalog">
  <title>Spring Price List</title>
  <product sku="XR-200">
    <name>XR-200 Laptop</name>
    <price currency="USD">1299.00</price>
  </product>
  <product sku="XR-300">
    <name>XR-300
      Laptop</name>
    <price currency="USD">1599.00</price>
    <discontinued/>
  </product>
</catalog>`

	result := normalise(t, []byte(content))

	assert.Equal(t, "Spring Price List", result.Title)
	assert.Equal(t, domain.MarkupDetails{Title: "Spring Price List", Root: "catalog"}, result.Details)
	assert.Equal(t, []string{
		"title: Spring Price List",
		"product sku=\"XR-200\"\nname: XR-200 Laptop\nprice currency=\"USD\": 1299.00",
		"product sku=\"XR-300\"\nname: XR-300 Laptop\nprice currency=\"USD\": 1599.00",
	}, blocks(result))
}

func TestNormalise_LeafRoot(t *testing.T) {
	result := normalise(t, []byte(`<note>Call the supplier</note>`))
	assert.Equal(t, []string{"note: Call the supplier"}, blocks(result))
	assert.Equal(t, domain.MarkupDetails{Root: "note"}, result.Details)
}

func TestNormalise_Latin1(t *testing.T) {
	content := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><p><name>caf`), 0xE9, '<', '/', 'n', 'a', 'm', 'e', '>', '<', '/', 'p', '>')
	result := normalise(t, content)
	assert.Equal(t, []string{"name: café"}, blocks(result))
}

func TestNormalise_MalformedFallsBackToText(t *testing.T) {
	result := normalise(t, []byte("<catalog><product>XR-200</catalog>\n\nsecond paragraph"))

	assert.Equal(t, domain.MarkupDetails{}, result.Details)
	assert.Equal(t, []string{"<catalog><product>XR-200</catalog>", "second paragraph"}, blocks(result))
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
