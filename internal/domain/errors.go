package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactMissing signals an absent index/matrix/metadata artifact.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrArtifactCorrupt signals an unreadable or truncated artifact.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
	// ErrRowCountMismatch signals misaligned index, matrix, and metadata sizes.
	ErrRowCountMismatch = errors.New("row count mismatch")
	// ErrInvalidRecord signals a vacancy record missing required fields.
	ErrInvalidRecord = errors.New("invalid vacancy record")
	// ErrStoreNotLoaded signals a search before Load completed.
	ErrStoreNotLoaded = errors.New("vacancy store not loaded")
	// ErrDimensionMismatch signals a query vector of the wrong width.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrScoringProviderError signals a scoring provider failure.
	ErrScoringProviderError = errors.New("scoring provider error")
)

// InvalidRecordError wraps ErrInvalidRecord with the offending source line.
type InvalidRecordError struct {
	Line  int
	Field string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("%s: line %d: missing %s", ErrInvalidRecord.Error(), e.Line, e.Field)
}

func (e *InvalidRecordError) Unwrap() error { return ErrInvalidRecord }

// NewInvalidRecord creates an invalid record error for a source line.
func NewInvalidRecord(line int, field string) error {
	return &InvalidRecordError{Line: line, Field: field}
}
