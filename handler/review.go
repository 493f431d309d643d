package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/middleware"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/model"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
	store   *service.DocumentStore
}

func NewReviewHandler(reviews *service.ReviewService, store *service.DocumentStore) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, store: store}
}

type ReviewRequest struct {
	Decision model.Decision `json:"decision" binding:"required"`
	Comment  string         `json:"comment"`
}

// Submit resolves a finding with the caller's decision. A finding is
// resolved exactly once; repeat attempts get a conflict, never a silent
// no-op.
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	actor := middleware.GetUsername(c)
	finding, err := h.reviews.Submit(c.Request.Context(), c.Param("id"), req.Decision, req.Comment, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Decision must be APPROVE or OVERRIDE"})
		case errors.Is(err, service.ErrFindingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Finding not found"})
		case errors.Is(err, service.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Finding already resolved"})
		case errors.Is(err, service.ErrDocumentNotAnalyzed):
			c.JSON(http.StatusConflict, gin.H{"error": "Document not yet analyzed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit review"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"finding": finding})
}

// Decisions returns the review audit trail for a document.
func (h *ReviewHandler) Decisions(c *gin.Context) {
	id := c.Param("id")

	decisions := h.reviews.Decisions(id)
	if decisions == nil {
		// Distinguish "no decisions yet" from "no such document"
		if h.store.GetDocument(id) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		decisions = []model.ReviewDecision{}
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "decisions": decisions})
}
