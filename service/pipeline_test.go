package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/config"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
)

func newTestPipeline(t *testing.T, workers, queueSize int) (*Pipeline, *DocumentStore) {
	t.Helper()

	store := newTestStore(0)
	pipeline := NewPipeline(
		store,
		NewMemoryArtifactStore(),
		NewFieldExtractor(),
		NewRiskEngine(testBaselines()),
		&config.EngineConfig{Workers: workers, QueueSize: queueSize, ExtractTimeoutSec: 10},
	)
	pipeline.Start()
	t.Cleanup(pipeline.Stop)
	return pipeline, store
}

// waitForTerminal polls until the document leaves the pipeline or the
// deadline passes.
func waitForTerminal(t *testing.T, store *DocumentStore, id string) *model.Document {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc := store.GetDocument(id)
		if doc == nil {
			t.Fatalf("Document %s disappeared", id)
		}
		if doc.Status.Terminal() {
			return doc
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Document %s never reached a terminal state", id)
	return nil
}

func ingestText(t *testing.T, p *Pipeline, filename, content string) *model.Document {
	t.Helper()

	doc, err := p.Ingest(context.Background(), filename, model.TypeInvoice, "text/plain",
		strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	return doc
}

func TestPipelineCleanDocumentReachesAnalyzed(t *testing.T) {
	pipeline, store := newTestPipeline(t, 2, 8)

	doc := ingestText(t, pipeline, "clean.txt", "Vendor: Acme\nPayment Terms: Net 30\n")
	if doc.Status != model.StatusPending {
		t.Errorf("Expected upload to return a PENDING document, got %s", doc.Status)
	}

	final := waitForTerminal(t, store, doc.ID)
	if final.Status != model.StatusAnalyzed {
		t.Fatalf("Expected ANALYZED, got %s (%s)", final.Status, final.ErrorMsg)
	}
	if final.Extraction == nil {
		t.Error("Expected extraction present at ANALYZED")
	}
	if findings := store.FindingsByDocument(doc.ID); len(findings) != 0 {
		t.Errorf("Expected empty finding set for clean document, got %d", len(findings))
	}
}

func TestPipelineDeviationProducesFinding(t *testing.T) {
	pipeline, store := newTestPipeline(t, 2, 8)

	doc := ingestText(t, pipeline, "deviant.txt", "Vendor: Acme\nPayment Terms: Net 15\n")

	final := waitForTerminal(t, store, doc.ID)
	if final.Status != model.StatusAnalyzed {
		t.Fatalf("Expected ANALYZED, got %s (%s)", final.Status, final.ErrorMsg)
	}

	findings := store.FindingsByDocument(doc.ID)
	if len(findings) != 1 {
		t.Fatalf("Expected exactly 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Type != model.FindingTermMismatch || f.Severity != model.SeverityHigh {
		t.Errorf("Expected HIGH TERM_MISMATCH, got %s %s", f.Severity, f.Type)
	}
	if f.Status != model.FindingOpen {
		t.Errorf("Expected OPEN finding, got %s", f.Status)
	}

	// Approve it, then confirm re-review is rejected
	if _, err := store.Review(f.ID, model.DecisionApprove, "", "alice"); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if _, err := store.Review(f.ID, model.DecisionApprove, "", "bob"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
}

func TestPipelineCorruptDocumentFails(t *testing.T) {
	pipeline, store := newTestPipeline(t, 1, 8)

	doc, err := pipeline.Ingest(context.Background(), "broken.pdf", model.TypeInvoice, "application/pdf",
		bytes.NewReader([]byte("not really a pdf")), 16)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	final := waitForTerminal(t, store, doc.ID)
	if final.Status != model.StatusFailed {
		t.Fatalf("Expected FAILED, got %s", final.Status)
	}
	if !strings.Contains(final.ErrorMsg, "extraction failed") {
		t.Errorf("Expected extraction cause recorded, got %q", final.ErrorMsg)
	}
	if final.Extraction != nil {
		t.Error("Expected no partial extraction on a failed document")
	}

	// Findings query on a failed document is an empty sequence, not an error
	if findings := store.FindingsByDocument(doc.ID); len(findings) != 0 {
		t.Errorf("Expected no findings for failed document, got %d", len(findings))
	}
}

func TestPipelineReingestIsIndependent(t *testing.T) {
	pipeline, store := newTestPipeline(t, 2, 8)

	content := "Vendor: Acme\nPayment Terms: Net 15\n"
	first := ingestText(t, pipeline, "same.txt", content)
	second := ingestText(t, pipeline, "same.txt", content)

	if first.ID == second.ID {
		t.Fatal("Expected re-ingestion to create a new document")
	}

	f1 := waitForTerminal(t, store, first.ID)
	f2 := waitForTerminal(t, store, second.ID)
	if f1.Status != model.StatusAnalyzed || f2.Status != model.StatusAnalyzed {
		t.Fatalf("Expected both ANALYZED, got %s and %s", f1.Status, f2.Status)
	}

	// Identical bytes and baselines produce an identical finding set
	strip := func(findings []*model.Finding) []model.FindingDraft {
		drafts := make([]model.FindingDraft, len(findings))
		for i, f := range findings {
			drafts[i] = model.FindingDraft{Type: f.Type, Severity: f.Severity, Description: f.Description, Evidence: f.Evidence}
		}
		return drafts
	}
	if !reflect.DeepEqual(strip(store.FindingsByDocument(first.ID)), strip(store.FindingsByDocument(second.ID))) {
		t.Error("Expected identical finding sets for identical ingestions")
	}
}

func TestPipelineQueueFull(t *testing.T) {
	store := newTestStore(0)
	pipeline := NewPipeline(
		store,
		NewMemoryArtifactStore(),
		NewFieldExtractor(),
		NewRiskEngine(testBaselines()),
		&config.EngineConfig{Workers: 1, QueueSize: 1, ExtractTimeoutSec: 10},
	)
	// Workers never started: the queue only drains by capacity

	first, err := pipeline.Ingest(context.Background(), "a.txt", model.TypeInvoice, "text/plain",
		strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}

	_, err = pipeline.Ingest(context.Background(), "b.txt", model.TypeInvoice, "text/plain",
		strings.NewReader("x"), 1)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	if got := store.GetDocument(first.ID); got.Status != model.StatusPending {
		t.Errorf("Expected first document to stay PENDING, got %s", got.Status)
	}
}

func TestPipelineConcurrentDocuments(t *testing.T) {
	pipeline, store := newTestPipeline(t, 4, 32)

	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		doc := ingestText(t, pipeline, "doc.txt", "Vendor: Acme\nPayment Terms: Net 30\n")
		ids = append(ids, doc.ID)
	}

	for _, id := range ids {
		final := waitForTerminal(t, store, id)
		if final.Status != model.StatusAnalyzed {
			t.Errorf("Expected document %s ANALYZED, got %s (%s)", id, final.Status, final.ErrorMsg)
		}
	}
}
