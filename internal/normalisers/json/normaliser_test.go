package json

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func normalise(t *testing.T, content string) (*domain.Extraction, error) {
	t.Helper()
	return New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "catalog.json",
		FileType: domain.FileTypeJSON,
		Content:  []byte(content),
	})
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeJSON}, New().SupportedFileTypes())
}

func TestNormalise_Object(t *testing.T) {
	result, err := normalise(t, `{"title":"Catalog","products":[{"model":"XR-200","price":1299.00}],"currency":"USD"}`)
	require.NoError(t, err)

	want := `{
  "currency": "USD",
  "products": [
    {
      "model": "XR-200",
      "price": 1299.00
    }
  ],
  "title": "Catalog"
}`
	assert.Equal(t, want, result.Text())
	assert.Equal(t, "Catalog", result.Title)
	assert.Equal(t, domain.StructuredDetails{TopLevelKeys: []string{"currency", "products", "title"}}, result.Details)
}

func TestNormalise_Array(t *testing.T) {
	result, err := normalise(t, `["a", "<b>"]`)
	require.NoError(t, err)

	assert.Equal(t, "[\n  \"a\",\n  \"<b>\"\n]", result.Text())
	assert.Equal(t, domain.StructuredDetails{}, result.Details)
}

func TestNormalise_Invalid(t *testing.T) {
	for _, input := range []string{`{"a":`, `{} {}`, ``} {
		_, err := normalise(t, input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, input)
	}
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
