package model

import (
	"time"
)

// DocumentStatus is the lifecycle state of a document in the pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusExtracting DocumentStatus = "EXTRACTING"
	StatusExtracted  DocumentStatus = "EXTRACTED"
	StatusAnalyzing  DocumentStatus = "ANALYZING"
	StatusAnalyzed   DocumentStatus = "ANALYZED"
	StatusFailed     DocumentStatus = "FAILED"
)

// statusRank orders the happy-path states. FAILED sits outside the
// sequence: reachable from any non-terminal state, terminal once entered.
var statusRank = map[DocumentStatus]int{
	StatusPending:    0,
	StatusExtracting: 1,
	StatusExtracted:  2,
	StatusAnalyzing:  3,
	StatusAnalyzed:   4,
}

// Terminal reports whether no further transition is allowed from s.
func (s DocumentStatus) Terminal() bool {
	return s == StatusAnalyzed || s == StatusFailed
}

// AtLeast reports whether s has reached stage other on the happy path.
func (s DocumentStatus) AtLeast(other DocumentStatus) bool {
	sr, ok1 := statusRank[s]
	or, ok2 := statusRank[other]
	return ok1 && ok2 && sr >= or
}

// CanTransition reports whether moving from s to next is a legal step of
// the state machine: one stage forward, or to FAILED from any
// non-terminal state.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	sr, ok1 := statusRank[s]
	nr, ok2 := statusRank[next]
	return ok1 && ok2 && nr == sr+1
}

// DocumentType is the declared kind of an uploaded document.
type DocumentType string

const (
	TypeInvoice  DocumentType = "invoice"
	TypeContract DocumentType = "contract"
	TypeOther    DocumentType = "other"
)

// Document is a unit of uploaded content moving through the pipeline.
type Document struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	DocType     DocumentType      `json:"doc_type"`
	Status      DocumentStatus    `json:"status"`
	ArtifactKey string            `json:"-"`
	ArtifactURL string            `json:"artifact_url,omitempty"`
	Extraction  *ExtractionResult `json:"extraction,omitempty"`
	ErrorMsg    string            `json:"error_msg,omitempty"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// FieldKind tags the shape of an extracted field. "other" is the open
// extension variant: the value is carried as raw text with no further
// interpretation.
type FieldKind string

const (
	FieldParty  FieldKind = "party"
	FieldAmount FieldKind = "amount"
	FieldDate   FieldKind = "date"
	FieldTerm   FieldKind = "term"
	FieldClause FieldKind = "clause"
	FieldOther  FieldKind = "other"
)

// Span locates a value inside the extracted text of a document.
// Offsets are byte positions within the page text, Page is 1-based.
type Span struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Field is one extracted value with its location evidence.
type Field struct {
	Name   string    `json:"name"`
	Kind   FieldKind `json:"kind"`
	Value  string    `json:"value"`
	Amount *float64  `json:"amount,omitempty"`
	Span   Span      `json:"span"`
}

// ExtractionResult is the structured representation of a document's
// content produced by the extraction engine.
type ExtractionResult struct {
	Format string  `json:"format"`
	Pages  int     `json:"pages"`
	Fields []Field `json:"fields"`
	Text   string  `json:"text"`
}

// FieldByName returns the first field with the given name, or nil.
func (r *ExtractionResult) FieldByName(name string) *Field {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}
