// Package docx extracts Word documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeDOCX}
}

// Normalise extracts one block per paragraph. The title and page count come
// from the document properties when present.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err)
	}

	text, _, err := docconv.ConvertDocx(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("converting docx: %w", err)
	}

	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}

	return &domain.Extraction{
		Title:   extractTitle(reader),
		Spans:   domain.SpansFromBlocks(paragraphs),
		Details: domain.PagedDetails{Pages: extractPages(reader)},
	}, nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// appXML represents the structure of docProps/app.xml.
type appXML struct {
	Pages string `xml:"Pages"`
}

func extractTitle(reader *zip.Reader) string {
	var core coreXML
	if !readXML(reader, "docProps/core.xml", &core) {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// extractPages returns the page count Word recorded on last save, or 0.
func extractPages(reader *zip.Reader) int {
	var app appXML
	if !readXML(reader, "docProps/app.xml", &app) {
		return 0
	}
	pages, err := strconv.Atoi(strings.TrimSpace(app.Pages))
	if err != nil || pages < 0 {
		return 0
	}
	return pages
}

func readXML(reader *zip.Reader, name string, v any) bool {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return false
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return false
		}
		return xml.Unmarshal(content, v) == nil
	}
	return false
}
