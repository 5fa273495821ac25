// Package xml extracts XML documents as "name: value" lines.
package xml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles XML documents.
type Normaliser struct{}

// New creates a new XML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedFileTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedFileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeXML}
}

// Normalise renders each child of the root element as one block. Leaf
// elements become "name: text" lines and attributes follow the element
// name as key="value" pairs. Content that does not parse is extracted as
// plain text with an empty root name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Extraction, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	root, err := parse(raw.Content)
	if err != nil {
		text, err := plaintext.Decode(raw.Content)
		if err != nil {
			return nil, err
		}
		return &domain.Extraction{
			Spans:   domain.SpansFromBlocks(domain.BlocksFromText(text)),
			Details: domain.MarkupDetails{},
		}, nil
	}

	var blocks []string
	if len(root.children) == 0 {
		blocks = root.lines(nil)
	} else {
		if root.text != "" {
			blocks = append(blocks, root.text)
		}
		for _, child := range root.children {
			blocks = append(blocks, strings.Join(child.lines(nil), "\n"))
		}
	}

	title := root.find("title")
	return &domain.Extraction{
		Title:   title,
		Spans:   domain.SpansFromBlocks(blocks),
		Details: domain.MarkupDetails{Title: title, Root: root.name},
	}, nil
}

type element struct {
	name     string
	attrs    []xml.Attr
	text     string
	children []*element
}

// label is the element name followed by its attributes.
func (e *element) label() string {
	var b strings.Builder
	b.WriteString(e.name)
	for _, a := range e.attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		fmt.Fprintf(&b, " %s=%q", a.Name.Local, a.Value)
	}
	return b.String()
}

func (e *element) lines(out []string) []string {
	label := e.label()
	switch {
	case len(e.children) == 0 && e.text != "":
		return append(out, label+": "+e.text)
	case len(e.children) == 0:
		if label == e.name {
			return out
		}
		return append(out, label)
	}

	if label != e.name || e.text != "" {
		line := label
		if e.text != "" {
			line += ": " + e.text
		}
		out = append(out, line)
	}
	for _, child := range e.children {
		out = child.lines(out)
	}
	return out
}

// find returns the text of the first descendant with the local name.
func (e *element) find(name string) string {
	for _, child := range e.children {
		if strings.EqualFold(child.name, name) && child.text != "" {
			return child.text
		}
		if text := child.find(name); text != "" {
			return text
		}
	}
	return ""
}

func parse(content []byte) (*element, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charsetReader

	var (
		root  *element
		stack []*element
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &element{name: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			} else if root == nil {
				root = e
			} else {
				return nil, errors.New("multiple root elements")
			}
			stack = append(stack, e)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			e := stack[len(stack)-1]
			e.text = strings.Join(strings.Fields(text[len(text)-1].String()), " ")
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				b := text[len(text)-1]
				b.Write(t)
				b.WriteByte(' ')
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
