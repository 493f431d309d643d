package model

import (
	"time"
)

// Severity is the ordered severity scale for findings.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the numeric position of s on the severity scale,
// -1 for unknown values.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// FindingType categorizes what a finding flags.
type FindingType string

const (
	FindingTermMismatch    FindingType = "TERM_MISMATCH"
	FindingMissingClause   FindingType = "MISSING_CLAUSE"
	FindingValueOutOfRange FindingType = "VALUE_OUT_OF_RANGE"
	FindingProhibitedTerm  FindingType = "PROHIBITED_TERM"
)

// FindingStatus tracks the review state of a finding.
type FindingStatus string

const (
	FindingOpen       FindingStatus = "OPEN"
	FindingApproved   FindingStatus = "APPROVED"
	FindingOverridden FindingStatus = "OVERRIDDEN"
)

// Evidence points into the extracted content that triggered a finding.
type Evidence struct {
	Field   string `json:"field,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	Span    Span   `json:"span"`
}

// Finding is a flagged issue on a document, subject to human review.
// Type, severity, description and evidence are fixed at creation; only
// the review status and comment change afterwards.
type Finding struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"document_id"`
	Type        FindingType   `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Evidence    Evidence      `json:"evidence"`
	Status      FindingStatus `json:"status"`
	Comment     string        `json:"comment,omitempty"`
	ReviewedBy  string        `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// FindingDraft is what the risk engine emits before the store assigns
// identity and review state.
type FindingDraft struct {
	Type        FindingType
	Severity    Severity
	Description string
	Evidence    Evidence
}

// Decision is a reviewer's verdict on a finding.
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionOverride Decision = "OVERRIDE"
)

// Valid reports whether d is one of the known decision values.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionOverride
}

// ReviewDecision is the append-only audit record of a review. The
// finding itself only stores the final status; this event trail is what
// makes reviews auditable.
type ReviewDecision struct {
	ID         string    `json:"id"`
	FindingID  string    `json:"finding_id"`
	DocumentID string    `json:"document_id"`
	Decision   Decision  `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	Actor      string    `json:"actor"`
	DecidedAt  time.Time `json:"decided_at"`
}
