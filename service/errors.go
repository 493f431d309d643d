package service

import (
	"errors"
	"fmt"
)

// Review errors, surfaced synchronously to the review caller.
var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrFindingNotFound     = errors.New("finding not found")
	ErrAlreadyResolved     = errors.New("finding already resolved")
	ErrDocumentNotAnalyzed = errors.New("document not yet analyzed")
	ErrInvalidDecision     = errors.New("invalid review decision")
	ErrInvalidTransition   = errors.New("invalid document status transition")
	ErrQueueFull           = errors.New("ingestion queue full")
)

// ExtractionError marks a failure inside the extraction engine. The
// pipeline records it as the document's failure cause; it is never
// returned to the uploader directly.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// AnalysisError marks malformed input to the risk engine.
type AnalysisError struct {
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}
