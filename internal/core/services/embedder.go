package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/metrics"
)

// EmbedderConfig tunes how texts are sent to the embedding service.
type EmbedderConfig struct {
	// BatchSize is the number of texts per provider call.
	BatchSize int

	// Concurrency is the number of batches in flight at once.
	Concurrency int

	// Timeout bounds each provider call. Zero disables the timeout.
	Timeout time.Duration

	// RequestsPerSecond limits provider calls. Zero means unlimited.
	RequestsPerSecond float64

	// Burst is the limiter bucket size.
	Burst int

	// CacheTTL is how long query vectors are cached. Zero disables the cache.
	CacheTTL time.Duration
}

// DefaultEmbedderConfig returns the default embedder settings.
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BatchSize:   domain.DefaultBatchSize,
		Concurrency: 4,
		Timeout:     60 * time.Second,
		Burst:       1,
		CacheTTL:    10 * time.Minute,
	}
}

// Embedder batches texts through an EmbeddingService and normalises every
// vector to unit length. It is safe for concurrent use.
type Embedder struct {
	svc     driven.EmbeddingService
	cfg     EmbedderConfig
	limiter *rate.Limiter
	queries *cache.Cache
	metrics *metrics.Metrics
}

// NewEmbedder creates an embedder over svc. The metrics may be nil.
func NewEmbedder(svc driven.EmbeddingService, cfg EmbedderConfig, m *metrics.Metrics) *Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	e := &Embedder{svc: svc, cfg: cfg, metrics: m}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CacheTTL > 0 {
		e.queries = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return e
}

// Dimensions returns the vector size of the underlying service.
func (e *Embedder) Dimensions() int {
	return e.svc.Dimensions()
}

// ModelName returns the model of the underlying service.
func (e *Embedder) ModelName() string {
	return e.svc.ModelName()
}

// Embed converts texts into unit vectors, one per text, in input order.
//
// Positions that fail (provider error, timeout, wrong count or dimension,
// non-finite vector) are left nil and reported together in an
// *domain.EmbeddingBatchError, so the caller can retry exactly those.
// A zero vector means the text has nothing indexable; such positions are
// left nil and reported as EmptyIndices instead. Cancellation of ctx is
// returned as is.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	var (
		mu     sync.Mutex
		failed []int
		empty  []int
		cause  error
	)
	fail := func(lo, hi int, err error) {
		mu.Lock()
		defer mu.Unlock()
		for i := lo; i < hi; i++ {
			failed = append(failed, i)
		}
		if cause == nil {
			cause = err
		}
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for lo := 0; lo < len(texts); lo += e.cfg.BatchSize {
		hi := min(lo+e.cfg.BatchSize, len(texts))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vecs, err := e.callBatch(ctx, texts[lo:hi])
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.metrics.RecordEmbeddingBatch(false)
				fail(lo, hi, err)
				return nil
			}
			e.metrics.RecordEmbeddingBatch(true)
			for j, v := range vecs {
				if e.blank(v) {
					mu.Lock()
					empty = append(empty, lo+j)
					mu.Unlock()
					continue
				}
				unit, ok := e.accept(v)
				if !ok {
					fail(lo+j, lo+j+1, fmt.Errorf("position %d: invalid vector of length %d", lo+j, len(v)))
					continue
				}
				out[lo+j] = unit
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(failed) > 0 || len(empty) > 0 {
		slices.Sort(failed)
		slices.Sort(empty)
		logger.Debug("Embedding: %d of %d positions failed, %d empty: %v", len(failed), len(texts), len(empty), cause)
		return out, &domain.EmbeddingBatchError{FailedIndices: failed, EmptyIndices: empty, Cause: cause}
	}
	return out, nil
}

// callBatch performs one rate-limited, time-bounded provider call and
// checks the response count.
func (e *Embedder) callBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	vecs, err := e.svc.EmbedBatch(callCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// blank reports a zero vector of the expected dimension.
func (e *Embedder) blank(v []float32) bool {
	if dims := e.svc.Dimensions(); dims > 0 && len(v) != dims {
		return false
	}
	return isZero(v)
}

func (e *Embedder) accept(v []float32) ([]float32, bool) {
	if dims := e.svc.Dimensions(); dims > 0 && len(v) != dims {
		return nil, false
	}
	return normalize(v)
}

// EmbedQuery embeds a single query. Results are cached per model and text.
// A query with nothing indexable fails with domain.ErrNoIndexableContent.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	key := e.svc.ModelName() + "\x00" + query
	if e.queries != nil {
		if v, ok := e.queries.Get(key); ok {
			return v.([]float32), nil
		}
	}

	vecs, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if e.queries != nil {
		e.queries.Set(key, vecs[0], cache.DefaultExpiration)
	}
	return vecs[0], nil
}
