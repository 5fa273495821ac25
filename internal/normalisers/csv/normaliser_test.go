package csv

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
		Filename: "prices.csv",
		FileType: domain.FileTypeCSV,
		Content:  []byte(content),
	})
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeCSV}, New().SupportedFileTypes())
}

func TestNormalise_Rows(t *testing.T) {
	result, err := normalise(t, "model,description,price\nXR-200,\"Laptop, 14 inch\",1299\n\nXR-300,Laptop,1599\n")
	require.NoError(t, err)

	assert.Equal(t, "model | description | price\nXR-200 | Laptop, 14 inch | 1299\nXR-300 | Laptop | 1599", result.Text())
	assert.Equal(t, domain.TableDetails{Columns: 3, Rows: 3}, result.Details)
	assert.Empty(t, result.Title)
}

func TestNormalise_RaggedRows(t *testing.T) {
	result, err := normalise(t, "a,b\n1,2,3\n4\n")
	require.NoError(t, err)

	assert.Equal(t, "a | b\n1 | 2 | 3\n4", result.Text())
	assert.Equal(t, domain.TableDetails{Columns: 3, Rows: 3}, result.Details)
}

func TestNormalise_Empty(t *testing.T) {
	result, err := normalise(t, "")
	require.NoError(t, err)
	assert.Empty(t, result.Spans)
	assert.Equal(t, domain.TableDetails{}, result.Details)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{"comma", "a,b,c\n1,2,3", ','},
		{"semicolon", "a;b;c\n1;2;3", ';'},
		{"tab", "a\tb\tc", '\t'},
		{"pipe", "a|b|c", '|'},
		{"quoted commas ignored", "\"x,y,z\";b", ';'},
		{"single column", "price", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectDelimiter(tt.input))
		})
	}
}

func TestNormalise_Semicolon(t *testing.T) {
	result, err := normalise(t, "model;price\nXR-200;1299,00\n")
	require.NoError(t, err)
	assert.Equal(t, "model | price\nXR-200 | 1299,00", result.Text())
}
