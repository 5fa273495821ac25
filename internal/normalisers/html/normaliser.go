package html

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// CellSeparator joins table cells within a row.
const CellSeparator = " | "

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeHTML}
}

// Normalise converts an HTML document to text blocks. The title comes from
// <title>, falling back to the first <h1>.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %v", domain.ErrInvalidInput, err)
	}

	title := documentTitle(doc)
	return &domain.Extraction{
		Title:   title,
		Spans:   domain.SpansFromBlocks(extractBlocks(doc.Selection)),
		Details: domain.MarkupDetails{Title: title, Root: "html"},
	}, nil
}

func documentTitle(doc *goquery.Document) string {
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapse(doc.Find("h1").First().Text())
}

// Elements whose content is never text.
var skipElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"svg": true, "template": true, "iframe": true, "object": true,
	"#comment": true,
}

// Elements laid out as separate paragraphs.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "nav": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "dl": true, "table": true, "blockquote": true,
	"pre": true, "figure": true, "form": true, "hr": true, "address": true,
}

// Elements that start a new line within a paragraph.
var lineElements = map[string]bool{
	"li": true, "tr": true, "dt": true, "dd": true, "caption": true, "figcaption": true,
}

var whitespace = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// renderer accumulates text, tracking trailing newlines so that nested
// block elements do not produce runs of empty paragraphs.
type renderer struct {
	b        strings.Builder
	trailing int
}

func (r *renderer) text(s string) {
	s = whitespace.ReplaceAllString(s, " ")
	if r.trailing > 0 || r.b.Len() == 0 {
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	r.b.WriteString(s)
	r.trailing = 0
}

// breakLines ensures the output ends in at least n newlines.
func (r *renderer) breakLines(n int) {
	for r.b.Len() > 0 && r.trailing < n {
		r.b.WriteByte('\n')
		r.trailing++
	}
}

func (r *renderer) walk(s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			r.text(c.Text())
		case skipElements[name]:
		case name == "br":
			r.b.WriteByte('\n')
			r.trailing++
		case name == "td" || name == "th":
			if c.PrevAllFiltered("td, th").Length() > 0 {
				r.text(CellSeparator)
			}
			r.walk(c)
		case lineElements[name]:
			r.breakLines(1)
			r.walk(c)
			r.breakLines(1)
		case blockElements[name]:
			r.breakLines(2)
			r.walk(c)
			r.breakLines(2)
		default:
			r.walk(c)
		}
	})
}

// extractBlocks renders the selection and splits it into paragraphs.
func extractBlocks(s *goquery.Selection) []string {
	var r renderer
	r.walk(s)

	lines := strings.Split(r.b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return domain.BlocksFromText(strings.Join(lines, "\n"))
}
