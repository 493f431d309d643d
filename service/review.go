package service

import (
	"context"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/pkg/logger"
)

// ReviewService is the human-review workflow over the store: approve or
// override a finding exactly once, with every decision append-logged.
type ReviewService struct {
	store *DocumentStore
}

func NewReviewService(store *DocumentStore) *ReviewService {
	return &ReviewService{store: store}
}

// Submit resolves a finding. Errors: ErrFindingNotFound,
// ErrDocumentNotAnalyzed, ErrAlreadyResolved, ErrInvalidDecision.
func (s *ReviewService) Submit(ctx context.Context, findingID string, decision model.Decision, comment, actor string) (*model.Finding, error) {
	finding, err := s.store.Review(findingID, decision, comment, actor)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "finding reviewed",
		"finding_id", finding.ID,
		"document_id", finding.DocumentID,
		"decision", decision,
		"actor", actor,
	)
	return finding, nil
}

// Decisions returns the audit trail for a document.
func (s *ReviewService) Decisions(documentID string) []model.ReviewDecision {
	return s.store.DecisionsByDocument(documentID)
}
