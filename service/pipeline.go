package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/config"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/pkg/logger"
)

// Pipeline orchestrates ingestion: it accepts uploads, persists the raw
// artifact, and advances each document through extraction and risk
// analysis on a worker pool. The upload call returns as soon as the
// PENDING record is durable and the id is enqueued; document status is
// the externally observable progress signal.
type Pipeline struct {
	store     *DocumentStore
	artifacts ArtifactStore
	extractor Extractor
	risk      *RiskEngine

	queue          chan string
	workers        int
	extractTimeout time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPipeline(store *DocumentStore, artifacts ArtifactStore, extractor Extractor, risk *RiskEngine, cfg *config.EngineConfig) *Pipeline {
	return &Pipeline{
		store:          store,
		artifacts:      artifacts,
		extractor:      extractor,
		risk:           risk,
		queue:          make(chan string, cfg.QueueSize),
		workers:        cfg.Workers,
		extractTimeout: time.Duration(cfg.ExtractTimeoutSec) * time.Second,
	}
}

// Start launches the worker pool. Workers drain the queue until Stop.
func (p *Pipeline) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-p.queue:
					if !ok {
						return
					}
					p.process(ctx, id)
				}
			}
		}()
	}
}

// Stop shuts the worker pool down and waits for in-flight documents.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Ingest accepts an upload: stores the artifact, creates the PENDING
// document and enqueues it. Identical bytes ingested twice become two
// independent documents.
func (p *Pipeline) Ingest(ctx context.Context, filename string, docType model.DocumentType, contentType string, reader io.Reader, size int64) (*model.Document, error) {
	key := fmt.Sprintf("%s/%s", uuid.New().String(), filename)
	if err := p.artifacts.Put(ctx, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to persist artifact: %w", err)
	}

	artifactURL, err := p.artifacts.PresignedURL(ctx, key)
	if err != nil {
		logger.Warn(ctx, "failed to generate artifact URL", "error", err)
		artifactURL = ""
	}

	doc := p.store.CreateDocument(filename, docType, key, artifactURL)

	select {
	case p.queue <- doc.ID:
	default:
		// Queue saturated: fail the document rather than block the
		// upload request or grow an unbounded backlog.
		_ = p.store.Fail(doc.ID, ErrQueueFull.Error())
		return nil, ErrQueueFull
	}

	logger.Info(ctx, "document ingested", "document_id", doc.ID, "filename", filename, "doc_type", docType)
	return doc, nil
}

// process runs the pipeline stages for one document. Stages execute
// strictly in sequence; any failure marks the document FAILED with the
// stage cause recorded.
func (p *Pipeline) process(ctx context.Context, id string) {
	ctx = context.WithValue(ctx, logger.DocumentIDKey, id)

	doc := p.store.GetDocument(id)
	if doc == nil {
		logger.Warn(ctx, "queued document no longer exists")
		return
	}

	if err := p.store.Advance(id, model.StatusExtracting); err != nil {
		logger.Error(ctx, "failed to enter extraction stage", "error", err)
		return
	}

	data, err := p.artifacts.Fetch(ctx, doc.ArtifactKey)
	if err != nil {
		p.fail(ctx, id, fmt.Sprintf("failed to read artifact: %v", err))
		return
	}

	extractCtx, cancel := context.WithTimeout(ctx, p.extractTimeout)
	result, err := p.extractor.Extract(extractCtx, RawArtifact{
		Filename: doc.Filename,
		Data:     data,
	})
	cancel()
	if err != nil {
		p.fail(ctx, id, err.Error())
		return
	}

	if err := p.store.SetExtraction(id, result); err != nil {
		logger.Error(ctx, "failed to store extraction result", "error", err)
		return
	}
	logger.Info(ctx, "extraction complete", "format", result.Format, "pages", result.Pages, "fields", len(result.Fields))

	if err := p.store.Advance(id, model.StatusAnalyzing); err != nil {
		logger.Error(ctx, "failed to enter analysis stage", "error", err)
		return
	}

	drafts, err := p.risk.Analyze(result, doc.DocType)
	if err != nil {
		p.fail(ctx, id, err.Error())
		return
	}

	if err := p.store.CompleteAnalysis(id, drafts); err != nil {
		logger.Error(ctx, "failed to commit analysis", "error", err)
		return
	}
	logger.Info(ctx, "analysis complete", "findings", len(drafts))
}

func (p *Pipeline) fail(ctx context.Context, id, cause string) {
	logger.Warn(ctx, "pipeline stage failed", "cause", cause)
	if err := p.store.Fail(id, cause); err != nil {
		logger.Error(ctx, "failed to record failure", "error", err)
	}
}
