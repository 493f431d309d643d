package service

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/config"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

// DocumentStore is the authoritative in-memory record of documents,
// findings and review decisions. All mutation goes through it under a
// single lock, which is what serializes concurrent reviews on the same
// finding. In production, this should be replaced with a database.
type DocumentStore struct {
	mu           sync.RWMutex
	documents    map[string]*model.Document
	findings     map[string]*model.Finding
	findingOrder map[string][]string // document id -> finding ids in creation order
	decisions    []model.ReviewDecision
	maxDocuments int // maximum documents to keep, 0 = unlimited
}

// NewDocumentStore creates a store with the configured retention cap.
func NewDocumentStore(cfg *config.StoreConfig) *DocumentStore {
	maxDocuments := 0
	if cfg != nil && cfg.MaxDocuments > 0 {
		maxDocuments = cfg.MaxDocuments
	}
	return &DocumentStore{
		documents:    make(map[string]*model.Document),
		findings:     make(map[string]*model.Finding),
		findingOrder: make(map[string][]string),
		maxDocuments: maxDocuments,
	}
}

// CreateDocument registers a new PENDING document and returns its copy.
func (s *DocumentStore) CreateDocument(filename string, docType model.DocumentType, artifactKey, artifactURL string) *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	doc := &model.Document{
		ID:          uuid.New().String(),
		Filename:    filename,
		DocType:     docType,
		Status:      model.StatusPending,
		ArtifactKey: artifactKey,
		ArtifactURL: artifactURL,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	s.documents[doc.ID] = doc
	s.evictIfNeeded()
	return cloneDocument(doc)
}

// GetDocument returns a copy of the document, or nil if unknown.
// Copies keep callers from mutating store-owned state.
func (s *DocumentStore) GetDocument(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocument(s.documents[id])
}

// ListDocuments returns documents newest first with the total count.
// limit <= 0 means no limit.
func (s *DocumentStore) ListDocuments(limit, offset int) ([]*model.Document, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UploadedAt.Equal(all[j].UploadedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].UploadedAt.After(all[j].UploadedAt)
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	result := make([]*model.Document, len(all))
	for i, d := range all {
		result[i] = cloneDocument(d)
	}
	return result, total
}

// Advance moves a document one stage forward along the state machine.
func (s *DocumentStore) Advance(id string, next model.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, next)
}

// SetExtraction stores the extraction result and moves the document to
// EXTRACTED in one step, so extraction is present exactly when the
// status says so.
func (s *DocumentStore) SetExtraction(id string, result *model.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if err := s.transition(id, model.StatusExtracted); err != nil {
		return err
	}
	doc.Extraction = result
	return nil
}

// CompleteAnalysis creates the findings and marks the document ANALYZED
// as a single atomic unit. A reader never observes ANALYZED without its
// findings present.
func (s *DocumentStore) CompleteAnalysis(id string, drafts []model.FindingDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if doc.Extraction == nil {
		return fmt.Errorf("%w: document %s has no extraction result", ErrInvalidTransition, id)
	}
	if err := s.transition(id, model.StatusAnalyzed); err != nil {
		return err
	}

	now := time.Now()
	for _, draft := range drafts {
		f := &model.Finding{
			ID:          uuid.New().String(),
			DocumentID:  id,
			Type:        draft.Type,
			Severity:    draft.Severity,
			Description: draft.Description,
			Evidence:    draft.Evidence,
			Status:      model.FindingOpen,
			CreatedAt:   now,
		}
		s.findings[f.ID] = f
		s.findingOrder[id] = append(s.findingOrder[id], f.ID)
	}
	return nil
}

// Fail marks the document FAILED with the recorded cause.
func (s *DocumentStore) Fail(id string, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if err := s.transition(id, model.StatusFailed); err != nil {
		return err
	}
	doc.ErrorMsg = cause
	return nil
}

// transition validates and applies a status change. Must be called with
// the lock held.
func (s *DocumentStore) transition(id string, next model.DocumentStatus) error {
	doc, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if !doc.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, next)
	}
	doc.Status = next
	doc.UpdatedAt = time.Now()
	return nil
}

// GetFinding returns a copy of the finding, or nil if unknown.
func (s *DocumentStore) GetFinding(id string) *model.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFinding(s.findings[id])
}

// FindingsByDocument returns the document's findings ordered by severity
// descending, then creation order. Empty slice before ANALYZED.
func (s *DocumentStore) FindingsByDocument(documentID string) []*model.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.findingOrder[documentID]
	result := make([]*model.Finding, 0, len(ids))
	for _, fid := range ids {
		if f, ok := s.findings[fid]; ok {
			result = append(result, cloneFinding(f))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Severity.Rank() > result[j].Severity.Rank()
	})
	return result
}

// FindingCounts returns the open and resolved finding counts for a document.
func (s *DocumentStore) FindingCounts(documentID string) (open, resolved int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fid := range s.findingOrder[documentID] {
		f, ok := s.findings[fid]
		if !ok {
			continue
		}
		if f.Status == model.FindingOpen {
			open++
		} else {
			resolved++
		}
	}
	return open, resolved
}

// Review resolves an OPEN finding exactly once and appends the decision
// to the audit log. Concurrent attempts on the same finding serialize on
// the store lock: one wins, the rest observe ErrAlreadyResolved.
func (s *DocumentStore) Review(findingID string, decision model.Decision, comment, actor string) (*model.Finding, error) {
	if !decision.Valid() {
		return nil, ErrInvalidDecision
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.findings[findingID]
	if !ok {
		return nil, ErrFindingNotFound
	}
	doc, ok := s.documents[f.DocumentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if !doc.Status.AtLeast(model.StatusAnalyzed) {
		return nil, ErrDocumentNotAnalyzed
	}
	if f.Status != model.FindingOpen {
		return nil, ErrAlreadyResolved
	}

	now := time.Now()
	switch decision {
	case model.DecisionApprove:
		f.Status = model.FindingApproved
	case model.DecisionOverride:
		f.Status = model.FindingOverridden
	}
	f.Comment = comment
	f.ReviewedBy = actor
	f.ReviewedAt = &now

	s.decisions = append(s.decisions, model.ReviewDecision{
		ID:         uuid.New().String(),
		FindingID:  findingID,
		DocumentID: f.DocumentID,
		Decision:   decision,
		Comment:    comment,
		Actor:      actor,
		DecidedAt:  now,
	})

	return cloneFinding(f), nil
}

// DecisionsByDocument returns the audit trail for a document in the
// order decisions were made. Entries survive document deletion.
func (s *DocumentStore) DecisionsByDocument(documentID string) []model.ReviewDecision {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ReviewDecision
	for _, d := range s.decisions {
		if d.DocumentID == documentID {
			result = append(result, d)
		}
	}
	return result
}

// DeleteDocument removes a document and its findings. This is the entry
// point for external retention policy; the core pipeline never calls it.
// Returns the artifact key so the caller can clean up object storage.
func (s *DocumentStore) DeleteDocument(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return "", ErrDocumentNotFound
	}
	s.removeDocument(id)
	return doc.ArtifactKey, nil
}

// removeDocument drops a document and its findings. Decision events are
// kept. Must be called with the lock held.
func (s *DocumentStore) removeDocument(id string) {
	for _, fid := range s.findingOrder[id] {
		delete(s.findings, fid)
	}
	delete(s.findingOrder, id)
	delete(s.documents, id)
}

// evictIfNeeded drops the oldest terminal documents once the retention
// cap is exceeded. In-flight documents are never evicted. Must be called
// with the lock held.
func (s *DocumentStore) evictIfNeeded() {
	if s.maxDocuments <= 0 || len(s.documents) <= s.maxDocuments {
		return
	}

	terminal := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		if d.Status.Terminal() {
			terminal = append(terminal, d)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].UploadedAt.Before(terminal[j].UploadedAt)
	})

	excess := len(s.documents) - s.maxDocuments
	for i := 0; i < excess && i < len(terminal); i++ {
		slog.Info("evicting document past retention cap",
			"document_id", terminal[i].ID,
			"uploaded_at", terminal[i].UploadedAt,
		)
		s.removeDocument(terminal[i].ID)
	}
}

// Count returns the number of documents in the store.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func cloneDocument(d *model.Document) *model.Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Extraction != nil {
		ext := *d.Extraction
		ext.Fields = append([]model.Field(nil), d.Extraction.Fields...)
		out.Extraction = &ext
	}
	return &out
}

func cloneFinding(f *model.Finding) *model.Finding {
	if f == nil {
		return nil
	}
	out := *f
	if f.ReviewedAt != nil {
		at := *f.ReviewedAt
		out.ReviewedAt = &at
	}
	return &out
}
