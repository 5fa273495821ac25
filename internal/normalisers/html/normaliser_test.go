package html

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func normalise(t *testing.T, content string) *domain.Extraction {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Filename: "page.html",
		FileType: domain.FileTypeHTML,
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return result
}

func TestSupportedFileTypes(t *testing.T) {
	assert.Equal(t, []domain.FileType{domain.FileTypeHTML}, New().SupportedFileTypes())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	result := normalise(t, "")
	assert.Empty(t, result.Spans)
	assert.Equal(t, domain.MarkupDetails{Root: "html"}, result.Details)
}

func TestNormalise_TitleExtraction(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedTitle string
	}{
		{
			name:          "title tag",
			content:       "<html><head><title>My Document</title></head><body></body></html>",
			expectedTitle: "My Document",
		},
		{
			name:          "title with extra spaces",
			content:       "<title>   Spaced \n Title   </title>",
			expectedTitle: "Spaced Title",
		},
		{
			name:          "title with HTML entities",
			content:       "<title>Tom &amp; Jerry</title>",
			expectedTitle: "Tom & Jerry",
		},
		{
			name:          "no title falls back to h1",
			content:       "<html><body><h1>XR-200 Price List</h1><p>Just content</p></body></html>",
			expectedTitle: "XR-200 Price List",
		},
		{
			name:          "no title or heading",
			content:       "<title></title><body>Content</body>",
			expectedTitle: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := normalise(t, tc.content)
			assert.Equal(t, tc.expectedTitle, result.Title)
			assert.Equal(t, domain.MarkupDetails{Title: tc.expectedTitle, Root: "html"}, result.Details)
		})
	}
}

func TestExtractBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple paragraph",
			input:    "<p>Hello World</p>",
			expected: []string{"Hello World"},
		},
		{
			name:     "nested tags",
			input:    "<div><p><strong>Bold</strong> text</p></div>",
			expected: []string{"Bold text"},
		},
		{
			name:     "script removed",
			input:    "<p>Before</p><script>alert('evil');</script><p>After</p>",
			expected: []string{"Before", "After"},
		},
		{
			name:     "style removed",
			input:    "<style>.foo { color: red; }</style><p>Content</p>",
			expected: []string{"Content"},
		},
		{
			name:     "noscript removed",
			input:    "<p>Content</p><noscript>No JS fallback</noscript>",
			expected: []string{"Content"},
		},
		{
			name:     "head removed",
			input:    "<head><meta charset='utf-8'><title>Title</title></head><body>Content</body>",
			expected: []string{"Content"},
		},
		{
			name:     "br to newline",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: []string{"Line 1\nLine 2\nLine 3"},
		},
		{
			name:     "block elements are paragraphs",
			input:    "<div>Block 1</div><div>Block 2</div>",
			expected: []string{"Block 1", "Block 2"},
		},
		{
			name:     "HTML entities decoded",
			input:    "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>",
			expected: []string{"<tag> & \"quotes\""},
		},
		{
			name:     "comments removed",
			input:    "<p>Before</p><!-- comment --><p>After</p>",
			expected: []string{"Before", "After"},
		},
		{
			name:     "list items",
			input:    "<ul>\n  <li>Item 1</li>\n  <li>Item 2</li>\n</ul>",
			expected: []string{"Item 1\nItem 2"},
		},
		{
			name:     "headings",
			input:    "<h1>Title</h1><h2>Subtitle</h2><p>Content</p>",
			expected: []string{"Title", "Subtitle", "Content"},
		},
		{
			name:     "links keep text",
			input:    `<a href="https://example.com">Click here</a>`,
			expected: []string{"Click here"},
		},
		{
			name:     "images removed",
			input:    `<p>See <img src="image.png" alt="Image"> here</p>`,
			expected: []string{"See here"},
		},
		{
			name:     "table rows",
			input:    "<table><tr><th>Model</th><th>Price</th></tr><tr><td>XR-200</td><td>$1,299</td></tr></table>",
			expected: []string{"Model | Price\nXR-200 | $1,299"},
		},
		{
			name:     "svg removed",
			input:    `<p>Before</p><svg width="100"><circle cx="50"/></svg><p>After</p>`,
			expected: []string{"Before", "After"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, extractBlocks(doc.Selection))
		})
	}
}

func TestNormalise_ComplexHTML(t *testing.T) {
	complexHTML := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Complex Page</title>
    <style>
        body { font-family: Arial; }
    </style>
</head>
<body>
    <header>
        <h1>Main Title</h1>
        <nav>
            <a href="/home">Home</a>
            <a href="/about">About</a>
        </nav>
    </header>

    <main>
        <article>
            <h2>Article Title</h2>
            <p>This is a <strong>paragraph</strong> with <em>emphasis</em>.</p>

            <ul>
                <li>First item</li>
                <li>Second item</li>
            </ul>
        </article>
    </main>

    <script>
        console.log('This should be removed');
    </script>

    <!-- This is a comment that should be removed -->

    <footer>
        <p>&copy; 2024 Example Corp</p>
    </footer>
</body>
</html>`

	result := normalise(t, complexHTML)
	assert.Equal(t, "Complex Page", result.Title)

	var blocks []string
	for _, s := range result.Spans {
		blocks = append(blocks, s.Text)
	}
	assert.Equal(t, []string{
		"Main Title",
		"Home About",
		"Article Title",
		"This is a paragraph with emphasis.",
		"First item\nSecond item",
		"© 2024 Example Corp",
	}, blocks)
}

func BenchmarkNormalise(b *testing.B) {
	raw := &domain.RawDocument{
		Filename: "page.html",
		FileType: domain.FileTypeHTML,
		Content:  []byte("<html><head><title>Test</title></head><body><p>Hello World</p></body></html>"),
	}
	n := New()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = n.Normalise(ctx, raw)
	}
}
