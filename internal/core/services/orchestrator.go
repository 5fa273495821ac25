package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/metrics"
)

// OrchestratorConfig bounds ingestion work.
type OrchestratorConfig struct {
	// Workers is the number of documents processed at once.
	Workers int

	// MaxRetries is how many times the failed subset of an embedding
	// request is resubmitted before the document fails.
	MaxRetries int
}

// DefaultOrchestratorConfig returns the default ingestion settings.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{Workers: domain.DefaultWorkers, MaxRetries: 2}
}

// Orchestrator runs independent per-document pipelines on a bounded pool:
// extract, chunk, embed, then commit to the store in one upsert.
// One document's failure never affects its siblings.
type Orchestrator struct {
	store    driven.IndexStore
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder *Embedder
	cfg      OrchestratorConfig
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]map[*flight]struct{}
}

// flight tracks one running pipeline so removal can cancel and await it.
type flight struct {
	cancel  context.CancelFunc
	done    chan struct{}
	removed bool
}

// NewOrchestrator creates an orchestrator. The registry may be nil, in which
// case requests carrying raw bytes fail with an extraction error. The
// metrics may be nil.
func NewOrchestrator(
	store driven.IndexStore,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
	cfg OrchestratorConfig,
	m *metrics.Metrics,
) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = domain.DefaultWorkers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Orchestrator{
		store:    store,
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
		inflight: make(map[string]map[*flight]struct{}),
	}
}

// job is one input position. A job with a preset outcome is not run.
type job struct {
	req    domain.IngestRequest
	preset *domain.Outcome
}

// IndexDocuments processes every request and waits for all outcomes.
// Outcomes are in input order. An error is returned only when the batch is
// empty or malformed.
func (o *Orchestrator) IndexDocuments(ctx context.Context, requests []domain.IngestRequest) (domain.BatchReport, error) {
	task, err := o.Submit(ctx, requests)
	if err != nil {
		return domain.BatchReport{}, err
	}
	<-task.Done()
	return task.Wait(context.WithoutCancel(ctx))
}

// Submit validates the batch and starts it in the background.
// Cancelling ctx or the task stops documents that have not committed.
func (o *Orchestrator) Submit(ctx context.Context, requests []domain.IngestRequest) (*Task, error) {
	jobs, err := o.prepare(requests)
	if err != nil {
		return nil, err
	}
	return o.start(ctx, jobs), nil
}

// prepare fills defaults and rejects malformed batches.
func (o *Orchestrator) prepare(requests []domain.IngestRequest) ([]job, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no documents", domain.ErrEmptyInput)
	}

	jobs := make([]job, len(requests))
	ids := make(map[string]int, len(requests))
	for i, req := range requests {
		doc := &req.Document
		if req.Raw != nil {
			if doc.Filename == "" {
				doc.Filename = req.Raw.Filename
			}
			if doc.FileType == "" {
				doc.FileType = req.Raw.FileType
			}
		}
		if doc.Filename == "" {
			return nil, fmt.Errorf("%w: request %d has no filename", domain.ErrInvalidInput, i)
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if prev, dup := ids[doc.ID]; dup {
			return nil, fmt.Errorf("%w: requests %d and %d share document id %q", domain.ErrInvalidInput, prev, i, doc.ID)
		}
		ids[doc.ID] = i

		if doc.FileType == "" {
			doc.FileType, _ = domain.FileTypeFromFilename(doc.Filename)
		}
		if doc.Kind == "" {
			doc.Kind = inferKind(doc.Filename)
		}
		if doc.Title == "" {
			doc.Title = strings.TrimSuffix(filepath.Base(doc.Filename), filepath.Ext(doc.Filename))
		}
		jobs[i] = job{req: req}
	}
	return jobs, nil
}

// inferKind marks price lists and catalogs by filename.
func inferKind(filename string) domain.DocumentKind {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.Contains(name, "price"), strings.Contains(name, "pricing"), strings.Contains(name, "quote"):
		return domain.KindPriceList
	case strings.Contains(name, "catalog"), strings.Contains(name, "catalogue"):
		return domain.KindCatalog
	}
	return domain.KindGeneral
}

func (o *Orchestrator) start(ctx context.Context, jobs []job) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := newTask(uuid.NewString(), len(jobs), cancel)

	go func() {
		started := o.now()
		outcomes := make([]domain.Outcome, len(jobs))

		var g errgroup.Group
		g.SetLimit(o.cfg.Workers)
		for i := range jobs {
			if jobs[i].preset != nil {
				outcomes[i] = *jobs[i].preset
				task.record(outcomes[i])
				continue
			}
			g.Go(func() error {
				outcomes[i] = o.runOne(taskCtx, jobs[i].req)
				task.record(outcomes[i])
				return nil
			})
		}
		_ = g.Wait()

		report := domain.NewBatchReport(outcomes, o.now().Sub(started))
		logger.Info("Indexed %d documents, %d failed in %s", report.Indexed, report.Failed, report.Duration.Round(time.Millisecond))
		task.finish(report)
	}()

	return task
}

// runOne executes one document's pipeline and reports its outcome.
func (o *Orchestrator) runOne(ctx context.Context, req domain.IngestRequest) domain.Outcome {
	started := o.now()
	doc := req.Document

	docCtx, f := o.track(ctx, doc.ID)
	defer o.untrack(doc.ID, f)

	chunks, err := o.process(docCtx, &doc, req)

	outcome := domain.Outcome{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Duration:   o.now().Sub(started),
	}
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = domain.FailureReason(err)
		outcome.Err = err
		logger.Warn("Failed to index %s: %v", doc.Filename, err)
		o.markFailed(ctx, &doc, outcome.Reason, f)
	} else {
		outcome.Status = domain.OutcomeIndexed
		outcome.Chunks = len(chunks)
		logger.Debug("Indexed %s: %d chunks", doc.Filename, len(chunks))
	}
	o.metrics.RecordDocument(string(outcome.Status), outcome.Duration)
	return outcome
}

func (o *Orchestrator) process(ctx context.Context, doc *domain.Document, req domain.IngestRequest) ([]domain.Chunk, error) {
	now := o.now()
	if existing, err := o.store.GetDocument(ctx, doc.ID); err == nil {
		doc.CreatedAt = existing.CreatedAt
		// Stored text stays until the new text is committed.
		if doc.Content == "" {
			doc.Content = existing.Content
		}
	} else if !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Status = domain.StatusPending
	doc.FailureReason = ""

	if err := o.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	text, err := o.extract(ctx, doc, req)
	if err != nil {
		return nil, err
	}
	doc.Content = text

	chunks, err := o.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vecs, err := o.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	embedded := 0
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
		if vecs[i] != nil {
			embedded++
		}
	}
	if embedded == 0 {
		return nil, fmt.Errorf("embed: %w", domain.ErrNoIndexableContent)
	}
	if embedded < len(chunks) {
		logger.Debug("%s: %d of %d chunks have no indexable content", doc.Filename, len(chunks)-embedded, len(chunks))
	}

	// Nothing is committed once cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc.Status = domain.StatusIndexed
	doc.UpdatedAt = o.now()
	if err := o.store.UpsertDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return chunks, nil
}

func (o *Orchestrator) extract(ctx context.Context, doc *domain.Document, req domain.IngestRequest) (string, error) {
	if req.Raw == nil {
		return req.Text, nil
	}
	if !doc.FileType.IsValid() {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, doc.Filename)
	}
	if o.registry == nil {
		return "", fmt.Errorf("%w: no extractors configured", domain.ErrExtraction)
	}

	raw := *req.Raw
	raw.FileType = doc.FileType
	extraction, err := o.registry.Normalise(ctx, &raw)
	if err != nil {
		return "", err
	}
	if extraction.Details != nil {
		if err := domain.ValidateDetails(doc.FileType, extraction.Details); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}
		doc.Details = extraction.Details
	}
	if extraction.Title != "" {
		doc.Title = extraction.Title
	}
	return extraction.Text(), nil
}

// embedAll embeds texts, resubmitting only the failed positions up to
// MaxRetries times. Positions with nothing indexable stay nil and are never
// resubmitted.
func (o *Orchestrator) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	pending := make([]int, len(texts))
	for i := range pending {
		pending[i] = i
	}

	for attempt := 0; ; attempt++ {
		subset := make([]string, len(pending))
		for j, idx := range pending {
			subset[j] = texts[idx]
		}

		got, err := o.embedder.Embed(ctx, subset)
		var batchErr *domain.EmbeddingBatchError
		if err != nil && !errors.As(err, &batchErr) {
			return nil, err
		}

		failed := make(map[int]bool)
		if batchErr != nil {
			for _, j := range batchErr.FailedIndices {
				failed[j] = true
			}
		}
		var next []int
		for j, idx := range pending {
			if failed[j] {
				next = append(next, idx)
				continue
			}
			// Empty positions come back nil.
			vecs[idx] = got[j]
		}
		if len(next) == 0 {
			return vecs, nil
		}
		if attempt >= o.cfg.MaxRetries {
			return nil, &domain.EmbeddingBatchError{FailedIndices: next, Cause: batchErr.Cause}
		}
		logger.Debug("Retrying %d failed embedding positions (attempt %d)", len(next), attempt+1)
		pending = next
	}
}

// markFailed records the failure unless the document was removed meanwhile.
func (o *Orchestrator) markFailed(ctx context.Context, doc *domain.Document, reason string, f *flight) {
	o.mu.Lock()
	removed := f.removed
	o.mu.Unlock()
	if removed {
		return
	}

	doc.Status = domain.StatusFailed
	doc.FailureReason = reason
	doc.UpdatedAt = o.now()
	if err := o.store.SaveDocument(context.WithoutCancel(ctx), doc); err != nil {
		logger.Warn("Failed to record failure for %s: %v", doc.Filename, err)
	}
}

func (o *Orchestrator) track(ctx context.Context, documentID string) (context.Context, *flight) {
	docCtx, cancel := context.WithCancel(ctx)
	f := &flight{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inflight[documentID] == nil {
		o.inflight[documentID] = make(map[*flight]struct{})
	}
	o.inflight[documentID][f] = struct{}{}
	return docCtx, f
}

func (o *Orchestrator) untrack(documentID string, f *flight) {
	o.mu.Lock()
	delete(o.inflight[documentID], f)
	if len(o.inflight[documentID]) == 0 {
		delete(o.inflight, documentID)
	}
	o.mu.Unlock()
	f.cancel()
	close(f.done)
}

// Remove cancels any in-flight pipeline for the document, waits for it to
// finish and deletes the document with its chunks.
func (o *Orchestrator) Remove(ctx context.Context, documentID string) error {
	o.mu.Lock()
	flights := make([]*flight, 0, len(o.inflight[documentID]))
	for f := range o.inflight[documentID] {
		f.removed = true
		f.cancel()
		flights = append(flights, f)
	}
	o.mu.Unlock()

	for _, f := range flights {
		select {
		case <-f.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := o.store.RemoveDocument(ctx, documentID)
	if errors.Is(err, domain.ErrDocumentNotFound) && len(flights) > 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", documentID, err)
	}
	logger.Debug("Removed document %s", documentID)
	return nil
}

// Reindex re-chunks and re-embeds stored documents from their saved text.
// Unknown ids are reported as failed(DocumentNotFound).
func (o *Orchestrator) Reindex(ctx context.Context, documentIDs []string) (domain.BatchReport, error) {
	if len(documentIDs) == 0 {
		return domain.BatchReport{}, fmt.Errorf("%w: no documents", domain.ErrEmptyInput)
	}

	jobs := make([]job, len(documentIDs))
	for i, id := range documentIDs {
		doc, err := o.store.GetDocument(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrDocumentNotFound) {
				return domain.BatchReport{}, fmt.Errorf("load %s: %w", id, err)
			}
			jobs[i].preset = &domain.Outcome{
				DocumentID: id,
				Status:     domain.OutcomeFailed,
				Reason:     domain.ReasonDocumentNotFound,
				Err:        fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id),
			}
			continue
		}
		jobs[i].req = domain.IngestRequest{Document: *doc, Text: doc.Content}
	}

	task := o.start(ctx, jobs)
	<-task.Done()
	return task.Wait(context.WithoutCancel(ctx))
}

// ReindexAll re-embeds every stored document. When the embedder's dimension
// differs from the store's, stored vectors are reset first so the store can
// take the new dimension.
func (o *Orchestrator) ReindexAll(ctx context.Context) (domain.BatchReport, error) {
	docs, err := o.store.ListDocuments(ctx, domain.DocumentFilter{})
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return domain.BatchReport{}, nil
	}

	if stored, want := o.store.Dimensions(), o.embedder.Dimensions(); stored != 0 && stored != want {
		logger.Info("Embedding dimension changed from %d to %d, resetting vectors", stored, want)
		if err := o.store.ResetVectors(ctx, want); err != nil {
			return domain.BatchReport{}, fmt.Errorf("reset vectors: %w", err)
		}
	}

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	return o.Reindex(ctx, ids)
}
