package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ensure Task implements the interface.
var _ driving.IngestTask = (*Task)(nil)

// Task is the handle of a batch submitted to the orchestrator.
type Task struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress domain.Progress
	report   domain.BatchReport
}

func newTask(id string, total int, cancel context.CancelFunc) *Task {
	return &Task{
		id:       id,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: domain.Progress{Total: total},
	}
}

// ID identifies the task.
func (t *Task) ID() string {
	return t.id
}

// Done is closed when every document has an outcome.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the batch finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (domain.BatchReport, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.report, nil
	case <-ctx.Done():
		return domain.BatchReport{}, ctx.Err()
	}
}

// Progress returns a snapshot of the batch.
func (t *Task) Progress() domain.Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Cancel stops documents that have not committed yet. Their outcomes are
// reported as failed(Cancelled).
func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) record(o domain.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Completed++
	switch o.Status {
	case domain.OutcomeIndexed:
		t.progress.Indexed++
	case domain.OutcomeFailed:
		t.progress.Failed++
	}
}

func (t *Task) finish(report domain.BatchReport) {
	t.mu.Lock()
	t.report = report
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}
