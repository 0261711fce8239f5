package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kennel_media/internal/models"
)

// writeError maps err onto a status and a body that never carries internal
// detail. notFound is the message for missing objects.
func (s *Server) writeError(c *gin.Context, err error, notFound string) {
	var (
		denied  *models.AccessDeniedError
		signErr *models.SigningError
	)

	switch {
	case errors.Is(err, models.ErrObjectNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.As(err, &denied):
		status := http.StatusUnauthorized
		if denied.Authenticated {
			status = http.StatusForbidden
		}
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
	case errors.As(err, &signErr):
		s.log.Error(c.Request.Context(), "signing failed", "status", signErr.StatusCode, "err", signErr.Err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		s.log.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
