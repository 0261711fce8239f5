package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kennel_media/internal/acl"
	"kennel_media/internal/models"
	"kennel_media/internal/objectpath"
)

const fileNotFound = "File not found"

// handleGetObject serves a private object to an authenticated requestor the
// object's policy lets read it.
func (s *Server) handleGetObject(c *gin.Context) {
	ctx := c.Request.Context()
	canonical := "/objects" + c.Param("objectPath")

	info, err := s.objects.GetObjectEntity(ctx, canonical)
	if err != nil {
		s.writeError(c, err, "Object not found")
		return
	}

	requestor := requestorID(c)
	ok, err := s.policies.CanAccess(ctx, info.Ref, requestor, models.PermissionRead)
	if err != nil {
		s.writeError(c, err, "Object not found")
		return
	}
	if !ok {
		s.writeError(c, &models.AccessDeniedError{Authenticated: requestor != ""}, "")
		return
	}

	s.serveObject(c, info, s.isPublic(c, info))
}

// handleGetPublicObject searches the public paths first, then falls back to
// the private directory for objects not yet published. Fallback objects
// with an owner-only policy stay hidden.
func (s *Server) handleGetPublicObject(c *gin.Context) {
	ctx := c.Request.Context()
	rel := strings.TrimPrefix(c.Param("filePath"), "/")
	if rel == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": fileNotFound})
		return
	}

	info, err := s.objects.SearchPublicObject(ctx, rel)
	if err != nil {
		s.writeError(c, err, fileNotFound)
		return
	}
	if info != nil {
		s.serveObject(c, info, true)
		return
	}

	info, err = s.objects.GetObjectEntity(ctx, objectpath.CanonicalPrefix+rel)
	if err != nil {
		s.writeError(c, err, fileNotFound)
		return
	}
	policy, err := acl.PolicyFromInfo(info)
	if err != nil {
		s.log.Warn(ctx, "unreadable access policy", "object", info.Ref.String(), "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": fileNotFound})
		return
	}
	if policy != nil && !acl.Evaluate(policy, "", models.PermissionRead) {
		c.JSON(http.StatusNotFound, gin.H{"error": fileNotFound})
		return
	}

	s.serveObject(c, info, policy != nil && policy.Visibility == models.VisibilityPublic)
}

func (s *Server) isPublic(c *gin.Context, info *models.ObjectInfo) bool {
	policy, err := acl.PolicyFromInfo(info)
	if err != nil {
		s.log.Warn(c.Request.Context(), "unreadable access policy", "object", info.Ref.String(), "err", err)
		return false
	}
	return policy != nil && policy.Visibility == models.VisibilityPublic
}

func (s *Server) handleIssueUploadURL(c *gin.Context) {
	up, err := s.objects.IssueUploadURL(c.Request.Context())
	if err != nil {
		s.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, up)
}

type acknowledgeRequest struct {
	PhotoURL   string            `json:"photoURL" binding:"required"`
	Visibility models.Visibility `json:"visibility"`
}

// handleAcknowledge canonicalizes the URL an upload went to, stamps the
// requestor's policy on the object and records the upload.
func (s *Server) handleAcknowledge(c *gin.Context) {
	ctx := c.Request.Context()

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photoURL is required"})
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if !req.Visibility.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visibility must be public or private"})
		return
	}

	objectPath := s.normalize(c, req.PhotoURL)
	if !objectpath.IsCanonical(objectPath) {
		c.JSON(http.StatusOK, gin.H{"objectPath": objectPath})
		return
	}

	info, err := s.objects.GetObjectEntity(ctx, objectPath)
	if err != nil {
		s.writeError(c, err, "Object not found")
		return
	}

	owner := requestorID(c)
	policy := models.Policy{Owner: owner, Visibility: req.Visibility}
	if err := s.policies.SetPolicy(ctx, info.Ref, policy); err != nil {
		s.writeError(c, err, "Object not found")
		return
	}

	s.publish(c, models.Upload{
		ObjectPath: objectPath,
		Owner:      owner,
		Visibility: req.Visibility,
		Status:     models.UploadStatusAcknowledged,
	})
	c.JSON(http.StatusOK, gin.H{"objectPath": objectPath})
}

// handleAcknowledgePublic is the anonymous gallery submission path: the URL
// is canonicalized and queued for review, no policy is stamped.
func (s *Server) handleAcknowledgePublic(c *gin.Context) {
	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photoURL is required"})
		return
	}

	objectPath := s.normalize(c, req.PhotoURL)
	if objectpath.IsCanonical(objectPath) {
		s.publish(c, models.Upload{
			ObjectPath: objectPath,
			Status:     models.UploadStatusPendingReview,
		})
	}
	c.JSON(http.StatusOK, gin.H{"objectPath": objectPath})
}

func (s *Server) normalize(c *gin.Context, raw string) string {
	objectPath, matched := s.normalizer.Match(raw)
	if !matched && objectPath != raw {
		s.log.Warn(c.Request.Context(), "upload URL matched no normalization rule", "object_path", objectPath)
	}
	return objectPath
}

// publish records the upload on the event stream. The acknowledgement has
// already succeeded, so failures are only logged.
func (s *Server) publish(c *gin.Context, up models.Upload) {
	up.ID = uuid.New()
	up.AcknowledgedAt = s.now().UTC()
	if err := s.publisher.Publish(c.Request.Context(), up); err != nil {
		s.log.Error(c.Request.Context(), "failed to publish upload event", "object_path", up.ObjectPath, "err", err)
	}
}
