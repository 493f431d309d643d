package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/service"
)

type DocumentHandler struct {
	pipeline    *service.Pipeline
	store       *service.DocumentStore
	artifacts   service.ArtifactStore
	maxUploadMB int
}

func NewDocumentHandler(pipeline *service.Pipeline, store *service.DocumentStore, artifacts service.ArtifactStore, maxUploadMB int) *DocumentHandler {
	return &DocumentHandler{
		pipeline:    pipeline,
		store:       store,
		artifacts:   artifacts,
		maxUploadMB: maxUploadMB,
	}
}

var supportedExtensions = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".md":  "text/markdown",
}

// Upload accepts a document and returns its id before processing
// completes; callers observe progress via the status endpoint.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if h.maxUploadMB > 0 && header.Size > int64(h.maxUploadMB)<<20 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds upload size limit"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	expectedContentType, ok := supportedExtensions[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, TXT and MD files are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = expectedContentType
	}

	docType := model.DocumentType(c.PostForm("doc_type"))
	switch docType {
	case model.TypeInvoice, model.TypeContract, model.TypeOther:
	case "":
		docType = model.TypeOther
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown doc_type"})
		return
	}

	doc, err := h.pipeline.Ingest(c.Request.Context(), header.Filename, docType, contentType, file, header.Size)
	if err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion queue full, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":       doc.ID,
		"filename": doc.Filename,
		"doc_type": doc.DocType,
		"status":   doc.Status,
	})
}

// List returns documents newest first, paginated via limit/offset.
func (h *DocumentHandler) List(c *gin.Context) {
	limit, offset := paginationParams(c)

	docs, total := h.store.ListDocuments(limit, offset)
	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		open, resolved := h.store.FindingCounts(doc.ID)
		result[i] = gin.H{
			"id":                doc.ID,
			"filename":          doc.Filename,
			"doc_type":          doc.DocType,
			"status":            doc.Status,
			"error_msg":         doc.ErrorMsg,
			"open_findings":     open,
			"resolved_findings": resolved,
			"uploaded_at":       doc.UploadedAt,
			"updated_at":        doc.UpdatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": result,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// Get returns the full document record including extraction if present.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc := h.store.GetDocument(c.Param("id"))
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	open, resolved := h.store.FindingCounts(doc.ID)
	c.JSON(http.StatusOK, gin.H{
		"document":          doc,
		"open_findings":     open,
		"resolved_findings": resolved,
	})
}

// GetStatus returns the processing status of a document. A FAILED
// document reports its failure cause here.
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	doc := h.store.GetDocument(c.Param("id"))
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        doc.ID,
		"status":    doc.Status,
		"error_msg": doc.ErrorMsg,
	})
}

// GetExtraction returns the extraction result once available.
func (h *DocumentHandler) GetExtraction(c *gin.Context) {
	doc := h.store.GetDocument(c.Param("id"))
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if doc.Extraction == nil {
		c.JSON(http.StatusOK, gin.H{
			"id":     doc.ID,
			"status": doc.Status,
			"ready":  false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         doc.ID,
		"status":     doc.Status,
		"ready":      true,
		"extraction": doc.Extraction,
	})
}

// GetFindings returns the document's findings, severity descending.
// Empty list before analysis completes, and for failed documents.
func (h *DocumentHandler) GetFindings(c *gin.Context) {
	doc := h.store.GetDocument(c.Param("id"))
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	findings := h.store.FindingsByDocument(doc.ID)
	if findings == nil {
		findings = []*model.Finding{}
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       doc.ID,
		"status":   doc.Status,
		"findings": findings,
	})
}

// Delete removes a document, its findings and its stored artifact.
// Review decision events are retained.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	artifactKey, err := h.store.DeleteDocument(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if artifactKey != "" {
		if err := h.artifacts.Delete(c.Request.Context(), artifactKey); err != nil {
			// Document record is already gone; report success but keep a trace
			c.JSON(http.StatusOK, gin.H{"message": "Document deleted, artifact cleanup pending", "id": id})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted", "id": id})
}
