// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the retrieval view.
	ViewSearch
	// ViewAsk is the question answering view.
	ViewAsk
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewDocContent shows extracted text.
	ViewDocContent
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// RetrievalCompleted carries a retrieval back to the search view.
type RetrievalCompleted struct {
	Retrieval *driving.Retrieval
	Err       error
}

// AnswerReceived carries an answer back to the ask view.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// DocumentsLoaded carries the document list.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected opens a document's content.
type DocumentSelected struct {
	Document domain.Document
}

// DocumentContentLoaded carries a document with its content.
type DocumentContentLoaded struct {
	Document *domain.Document
	Chunks   int
	Err      error
}

// DocumentRemoved signals a document was removed.
type DocumentRemoved struct {
	DocumentID string
	Err        error
}

// DocumentReindexed carries the report of a single-document reindex.
type DocumentReindexed struct {
	DocumentID string
	Report     domain.BatchReport
	Err        error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
