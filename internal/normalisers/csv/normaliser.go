// Package csv extracts delimited text tables.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// CellSeparator joins the cells of a row in the extracted text.
const CellSeparator = " | "

// Normaliser handles CSV documents.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeCSV}
}

// Normalise renders each record as one line with cells joined by
// CellSeparator. The delimiter is detected from the first line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = detectDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var (
		lines   []string
		columns int
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parsing csv: %v", domain.ErrInvalidInput, err)
		}

		line := strings.TrimSpace(strings.Join(record, CellSeparator))
		if strings.Trim(line, "| ") == "" {
			continue
		}
		lines = append(lines, line)
		columns = max(columns, len(record))
	}

	var blocks []string
	if len(lines) > 0 {
		blocks = []string{strings.Join(lines, "\n")}
	}
	return &domain.Extraction{
		Spans:   domain.SpansFromBlocks(blocks),
		Details: domain.TableDetails{Columns: columns, Rows: len(lines)},
	}, nil
}

// detectDelimiter picks the candidate that occurs most often outside
// quotes on the first line, defaulting to a comma.
func detectDelimiter(text string) rune {
	first, _, _ := strings.Cut(text, "\n")

	counts := map[rune]int{}
	quoted := false
	for _, r := range first {
		switch r {
		case '"':
			quoted = !quoted
		case ',', ';', '\t', '|':
			if !quoted {
				counts[r]++
			}
		}
	}

	best, bestCount := ',', 0
	for _, r := range []rune{',', ';', '\t', '|'} {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}
	return best
}
