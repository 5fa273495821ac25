package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the completion service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Retrieval engine errors.

	// ErrInvalidConfiguration indicates bad chunking or retrieval parameters.
	// Fatal and fixable by the caller.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyInput indicates there is nothing to index.
	ErrEmptyInput = errors.New("empty input")

	// ErrExtraction indicates the text extraction collaborator failed.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbeddingBatchFailed indicates at least one position of an embedding
	// request failed. Use errors.As with *EmbeddingBatchError for the indices.
	ErrEmbeddingBatchFailed = errors.New("embedding batch failed")

	// ErrDimensionMismatch indicates a vector whose dimension differs from
	// the store's configured dimension. Never coerced.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrDocumentNotFound indicates remove or reindex of an unknown document.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoIndexableContent indicates text that embeds to a zero vector,
	// such as a query or chunk made only of symbols. Resubmitting it cannot
	// succeed.
	ErrNoIndexableContent = fmt.Errorf("%w: no indexable content", ErrEmptyInput)
)

// EmbeddingBatchError reports which input positions failed to embed.
// FailedIndices and EmptyIndices are ascending positions into the original
// request. EmptyIndices embedded to a zero vector and are not retryable.
type EmbeddingBatchError struct {
	FailedIndices []int
	EmptyIndices  []int
	Cause         error
}

func (e *EmbeddingBatchError) Error() string {
	if len(e.FailedIndices) == 0 && len(e.EmptyIndices) > 0 {
		return fmt.Sprintf("%s: %d positions", ErrNoIndexableContent, len(e.EmptyIndices))
	}
	msg := fmt.Sprintf("%s: %d positions failed", ErrEmbeddingBatchFailed, len(e.FailedIndices))
	if len(e.EmptyIndices) > 0 {
		msg += fmt.Sprintf(", %d empty", len(e.EmptyIndices))
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches ErrEmbeddingBatchFailed when any position failed, and
// ErrNoIndexableContent when every bad position was only empty.
func (e *EmbeddingBatchError) Is(target error) bool {
	onlyEmpty := len(e.FailedIndices) == 0 && len(e.EmptyIndices) > 0
	switch target {
	case ErrEmbeddingBatchFailed:
		return !onlyEmpty
	case ErrNoIndexableContent, ErrEmptyInput:
		return onlyEmpty
	}
	return false
}

func (e *EmbeddingBatchError) Unwrap() error {
	return e.Cause
}

// DimensionMismatchError carries the two dimensions that disagreed.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Actual)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Failure reasons reported in per-document outcomes.
const (
	ReasonInvalidConfiguration = "InvalidConfiguration"
	ReasonEmptyInput           = "EmptyInput"
	ReasonExtraction           = "ExtractionError"
	ReasonEmbeddingBatchFailed = "EmbeddingBatchFailed"
	ReasonDimensionMismatch    = "DimensionMismatch"
	ReasonDocumentNotFound     = "DocumentNotFound"
	ReasonUnsupportedType      = "UnsupportedType"
	ReasonCancelled            = "Cancelled"
	ReasonInternal             = "Internal"
)

// FailureReason maps an error to the reason reported for a failed document.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfiguration):
		return ReasonInvalidConfiguration
	case errors.Is(err, ErrEmptyInput):
		return ReasonEmptyInput
	case errors.Is(err, ErrExtraction):
		return ReasonExtraction
	case errors.Is(err, ErrEmbeddingBatchFailed):
		return ReasonEmbeddingBatchFailed
	case errors.Is(err, ErrDimensionMismatch):
		return ReasonDimensionMismatch
	case errors.Is(err, ErrDocumentNotFound):
		return ReasonDocumentNotFound
	case errors.Is(err, ErrUnsupportedType):
		return ReasonUnsupportedType
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	}
	return ReasonInternal
}
