package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kennel_media/internal/models"
)

const (
	defaultUploadsLimit = 50
	maxUploadsLimit     = 200
)

// handleListUploads feeds the moderation queue: newest uploads with the
// requested status, pending review by default.
func (s *Server) handleListUploads(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upload ledger disabled"})
		return
	}

	status := c.DefaultQuery("status", models.UploadStatusPendingReview)
	if status != models.UploadStatusPendingReview && status != models.UploadStatusAcknowledged {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending_review or acknowledged"})
		return
	}

	limit := defaultUploadsLimit
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		limit = min(n, maxUploadsLimit)
	}

	uploads, err := s.ledger.ListUploads(c.Request.Context(), status, limit)
	if err != nil {
		s.writeError(c, err, "")
		return
	}
	if uploads == nil {
		uploads = []models.Upload{}
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}

func (s *Server) handleGetUpload(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upload ledger disabled"})
		return
	}

	objectPath := c.Query("objectPath")
	if objectPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "objectPath is required"})
		return
	}

	up, err := s.ledger.GetUpload(c.Request.Context(), objectPath)
	if err != nil {
		s.writeError(c, err, "Upload not found")
		return
	}
	c.JSON(http.StatusOK, up)
}
