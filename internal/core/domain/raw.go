package domain

import (
	"strings"
	"unicode"
)

// RawDocument is an uploaded file before text extraction.
type RawDocument struct {
	// URI is the original location (file path, URL, etc).
	URI string

	// Filename is the base name used for display and type detection.
	Filename string

	// FileType is the declared file type.
	FileType FileType

	// Content is the raw bytes.
	Content []byte
}

// TextSpan is a run of extracted text. Start and End are rune offsets into
// the extraction's full text, End exclusive.
type TextSpan struct {
	Text  string
	Start int
	End   int
}

// Extraction is the output of the text extraction collaborator.
type Extraction struct {
	// Title is a document title found in the file, if any.
	Title string

	// Spans are ordered and non-overlapping.
	Spans []TextSpan

	// Details carries file-type-specific metadata.
	Details FileDetails
}

// Text rebuilds the full text. Gaps between spans are filled with newlines.
func (e *Extraction) Text() string {
	var b strings.Builder
	pos := 0
	for _, s := range e.Spans {
		for pos < s.Start {
			b.WriteByte('\n')
			pos++
		}
		b.WriteString(s.Text)
		pos = s.End
	}
	return b.String()
}

// SpansFromBlocks lays out text blocks separated by a blank line and
// returns the spans with their offsets.
func SpansFromBlocks(blocks []string) []TextSpan {
	spans := make([]TextSpan, 0, len(blocks))
	pos := 0
	for _, block := range blocks {
		if block == "" {
			continue
		}
		if len(spans) > 0 {
			pos += 2
		}
		n := len([]rune(block))
		spans = append(spans, TextSpan{Text: block, Start: pos, End: pos + n})
		pos += n
	}
	return spans
}

// BlocksFromText splits text into blocks at blank lines. Line endings are
// normalised, trailing space is trimmed and empty blocks are dropped.
func BlocksFromText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks
}

// ChangeType represents the type of file change.
type ChangeType int

const (
	// ChangeCreated indicates a new file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified file.
	ChangeUpdated

	// ChangeDeleted indicates a removed file.
	ChangeDeleted
)

// FileChange is a change event from a watched directory.
type FileChange struct {
	Type ChangeType
	Path string
}
