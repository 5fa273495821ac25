// Package xlsx extracts Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// CellSeparator joins the cells of a row in the extracted text.
const CellSeparator = " | "

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeXLSX}
}

// Normalise renders each worksheet as one block: a "Sheet: <name>" line
// followed by one line per non-empty row. Cell values are taken as
// formatted by the workbook; formulas are not recalculated.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: not an xlsx workbook: %v", domain.ErrInvalidInput, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Debug("Closing workbook %s: %v", raw.Filename, err)
		}
	}()

	sheets := f.GetSheetList()
	details := domain.TableDetails{Sheets: make([]string, 0, len(sheets))}
	blocks := make([]string, 0, len(sheets))
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", domain.ErrInvalidInput, name, err)
		}

		lines := []string{"Sheet: " + name}
		for _, row := range rows {
			cells := trimRow(row)
			if len(cells) == 0 {
				continue
			}
			lines = append(lines, strings.Join(cells, CellSeparator))
			details.Rows++
			details.Columns = max(details.Columns, len(cells))
		}
		details.Sheets = append(details.Sheets, name)
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return &domain.Extraction{
		Spans:   domain.SpansFromBlocks(blocks),
		Details: details,
	}, nil
}

// trimRow trims every cell and drops trailing empty cells. A row with no
// content comes back empty.
func trimRow(row []string) []string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
