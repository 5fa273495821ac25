package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is the closed set of file types the index accepts.
type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeDOCX     FileType = "docx"
	FileTypeXLSX     FileType = "xlsx"
	FileTypeText     FileType = "txt"
	FileTypeCSV      FileType = "csv"
	FileTypeJSON     FileType = "json"
	FileTypeMarkdown FileType = "md"
	FileTypeHTML     FileType = "html"
	FileTypeXML      FileType = "xml"
)

// AllFileTypes returns every accepted file type in a stable order.
func AllFileTypes() []FileType {
	return []FileType{
		FileTypePDF, FileTypeDOCX, FileTypeXLSX, FileTypeText, FileTypeCSV,
		FileTypeJSON, FileTypeMarkdown, FileTypeHTML, FileTypeXML,
	}
}

// IsValid reports whether ft is an accepted file type.
func (ft FileType) IsValid() bool {
	switch ft {
	case FileTypePDF, FileTypeDOCX, FileTypeXLSX, FileTypeText, FileTypeCSV,
		FileTypeJSON, FileTypeMarkdown, FileTypeHTML, FileTypeXML:
		return true
	}
	return false
}

// String returns the string representation.
func (ft FileType) String() string {
	return string(ft)
}

// ParseFileType parses a type tag or file extension ("pdf", ".PDF", "markdown").
// Unknown types are rejected with ErrUnsupportedType.
func ParseFileType(s string) (FileType, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch s {
	case "markdown":
		return FileTypeMarkdown, nil
	case "htm":
		return FileTypeHTML, nil
	case "text":
		return FileTypeText, nil
	}
	ft := FileType(s)
	if !ft.IsValid() {
		return "", fmt.Errorf("%w: file type %q", ErrUnsupportedType, s)
	}
	return ft, nil
}

// FileTypeFromFilename derives the file type from the filename extension.
func FileTypeFromFilename(name string) (FileType, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedType, name)
	}
	return ParseFileType(ext)
}

// FileDetails is file-type-specific metadata produced by extraction.
// The set of variants is closed; see ValidateDetails for which variant
// belongs to which file type.
type FileDetails interface {
	fileDetails()
}

// TextDetails describes plain text and Markdown files.
type TextDetails struct {
	Lines int
}

// TableDetails describes CSV and spreadsheet files.
type TableDetails struct {
	Columns int
	Rows    int
	Sheets  []string
}

// PagedDetails describes paginated documents (PDF, DOCX).
type PagedDetails struct {
	Pages int
}

// MarkupDetails describes HTML and XML files.
type MarkupDetails struct {
	Title string
	Root  string
}

// StructuredDetails describes JSON files.
type StructuredDetails struct {
	TopLevelKeys []string
}

func (TextDetails) fileDetails()       {}
func (TableDetails) fileDetails()      {}
func (PagedDetails) fileDetails()      {}
func (MarkupDetails) fileDetails()     {}
func (StructuredDetails) fileDetails() {}

// ValidateDetails checks that d is a variant allowed for ft. Nil details
// are always allowed.
func ValidateDetails(ft FileType, d FileDetails) error {
	if d == nil {
		return nil
	}
	if !ft.IsValid() {
		return fmt.Errorf("%w: file type %q", ErrUnsupportedType, ft)
	}
	ok := false
	switch d.(type) {
	case TextDetails:
		ok = ft == FileTypeText || ft == FileTypeMarkdown
	case TableDetails:
		ok = ft == FileTypeCSV || ft == FileTypeXLSX
	case PagedDetails:
		ok = ft == FileTypePDF || ft == FileTypeDOCX
	case MarkupDetails:
		ok = ft == FileTypeHTML || ft == FileTypeXML
	case StructuredDetails:
		ok = ft == FileTypeJSON
	}
	if !ok {
		return fmt.Errorf("%w: %T details for %s file", ErrInvalidInput, d, ft)
	}
	return nil
}

// DetailsKind returns a stable tag for the variant, used for persistence.
func DetailsKind(d FileDetails) string {
	switch d.(type) {
	case TextDetails:
		return "text"
	case TableDetails:
		return "table"
	case PagedDetails:
		return "paged"
	case MarkupDetails:
		return "markup"
	case StructuredDetails:
		return "structured"
	}
	return ""
}

// EncodeDetails serialises d with its variant tag.
// Nil details encode to an empty tag and no data.
func EncodeDetails(d FileDetails) (string, []byte, error) {
	if d == nil {
		return "", nil, nil
	}
	kind := DetailsKind(d)
	if kind == "" {
		return "", nil, fmt.Errorf("%w: unknown details variant %T", ErrInvalidInput, d)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", nil, fmt.Errorf("encoding details: %w", err)
	}
	return kind, data, nil
}

// DecodeDetails is the inverse of EncodeDetails. Unknown tags are rejected.
func DecodeDetails(kind string, data []byte) (FileDetails, error) {
	var (
		d   FileDetails
		err error
	)
	switch kind {
	case "":
		return nil, nil
	case "text":
		var v TextDetails
		err = json.Unmarshal(data, &v)
		d = v
	case "table":
		var v TableDetails
		err = json.Unmarshal(data, &v)
		d = v
	case "paged":
		var v PagedDetails
		err = json.Unmarshal(data, &v)
		d = v
	case "markup":
		var v MarkupDetails
		err = json.Unmarshal(data, &v)
		d = v
	case "structured":
		var v StructuredDetails
		err = json.Unmarshal(data, &v)
		d = v
	default:
		return nil, fmt.Errorf("%w: unknown details kind %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s details: %w", kind, err)
	}
	return d, nil
}
