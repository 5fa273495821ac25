package domain

import "time"

// IngestRequest is one document submitted for indexing.
// When Raw is set the text is extracted from it. Otherwise Text is used.
type IngestRequest struct {
	Document Document
	Text     string
	Raw      *RawDocument
}

// OutcomeStatus is the per-document result of an ingestion.
type OutcomeStatus string

const (
	OutcomeIndexed OutcomeStatus = "indexed"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome reports what happened to one document.
type Outcome struct {
	DocumentID string
	Filename   string
	Status     OutcomeStatus

	// Reason is one of the Reason* constants when Status is failed.
	Reason string

	// Err is the underlying error, if any.
	Err error

	// Chunks is the number of chunks committed.
	Chunks   int
	Duration time.Duration
}

// BatchReport aggregates the outcomes of a batch in input order.
type BatchReport struct {
	Outcomes []Outcome
	Indexed  int
	Failed   int
	Duration time.Duration
}

// Add records an outcome and updates the counts.
func (r *BatchReport) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.tally(o)
}

func (r *BatchReport) tally(o Outcome) {
	switch o.Status {
	case OutcomeIndexed:
		r.Indexed++
	case OutcomeFailed:
		r.Failed++
	}
}

// NewBatchReport builds a report from outcomes already in input order.
func NewBatchReport(outcomes []Outcome, elapsed time.Duration) BatchReport {
	r := BatchReport{Outcomes: outcomes, Duration: elapsed}
	for _, o := range outcomes {
		r.tally(o)
	}
	return r
}

// IndexStats summarises the index for one owner or for everybody.
type IndexStats struct {
	Documents      int
	Indexed        int
	Failed         int
	Pending        int
	Chunks         int
	EmbeddedChunks int

	// EstimatedTokens is the token estimate over all document content.
	EstimatedTokens int

	ByFileType map[FileType]int

	// IndexingRate is the percentage of documents indexed.
	IndexingRate float64

	// Recent holds the most recently created documents, newest first.
	Recent []Document

	// Dimensions is the store's vector dimension, 0 if not yet fixed.
	Dimensions int
}

// Progress is a snapshot of a running batch.
type Progress struct {
	Total     int
	Completed int
	Indexed   int
	Failed    int
}

// Finished reports whether every document has an outcome.
func (p Progress) Finished() bool {
	return p.Completed >= p.Total
}
