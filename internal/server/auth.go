package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const requestorKey = "requestor_id"

// identify records the requestor from a valid Bearer token. Requests
// without one continue anonymously; requireAuth decides what that means.
func (s *Server) identify(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.Next()
		return
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		s.log.Debug(c.Request.Context(), "ignoring invalid bearer token", "err", err)
		c.Next()
		return
	}

	if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
		c.Set(requestorKey, sub)
	}
	c.Next()
}

func (s *Server) requireAuth(c *gin.Context) {
	if requestorID(c) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

// requestorID is "" for anonymous requests.
func requestorID(c *gin.Context) string {
	return c.GetString(requestorKey)
}
