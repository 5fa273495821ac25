// Package tui provides an interactive terminal user interface for docquery.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Retrieval runs searches and builds context.
	Retrieval driving.RetrievalService

	// Ingest lists, re-indexes and removes documents.
	Ingest driving.IngestService

	// Answer is optional. The Ask view is hidden when it is nil.
	Answer driving.AnswerService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
