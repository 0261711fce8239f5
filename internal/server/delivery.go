package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kennel_media/internal/models"
	"kennel_media/internal/transform"
)

const defaultContentType = "application/octet-stream"

// serveObject writes info's bytes, transformed when the query asks for it
// and the object is an image. Transform failures fall back to the original.
func (s *Server) serveObject(c *gin.Context, info *models.ObjectInfo, public bool) {
	ctx := c.Request.Context()
	params := ParseTransformParams(c)
	cache := cacheHeaders(info, public, s.cfg.CacheTTLSeconds)

	if notModified(c.Request, cache) {
		setHeaders(c.Writer.Header(), cache)
		c.Status(http.StatusNotModified)
		c.Writer.WriteHeaderNow()
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if !params.Compress || !transform.IsImage(contentType) {
		s.stream(c, info, contentType, cache)
		return
	}

	data, _, err := s.objects.Download(ctx, info.Ref)
	if err != nil {
		s.writeError(c, err, "Object not found")
		return
	}

	res, err := s.engine.Transform(data, contentType, params)
	if err != nil {
		s.log.Warn(ctx, "image transform failed, serving original", "object", info.Ref.String(), "err", err)
		s.writeBody(c, contentType, data, cache, nil)
		return
	}
	if !res.Compressed {
		s.writeBody(c, contentType, res.Data, cache, nil)
		return
	}

	s.writeBody(c, res.ContentType, res.Data, cache, map[string]string{
		"X-Compressed":        "true",
		"X-Original-Size":     strconv.Itoa(res.OriginalSize),
		"X-Compression-Ratio": res.Ratio(),
		"X-Orientation-Fixed": res.OrientationFixed,
	})
}

func (s *Server) writeBody(c *gin.Context, contentType string, body []byte, cache, extra map[string]string) {
	h := c.Writer.Header()
	setHeaders(h, cache)
	setHeaders(h, extra)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	c.Data(http.StatusOK, contentType, body)
}

// stream copies the object straight from the store. Once the status line is
// out a copy error can only abort the connection.
func (s *Server) stream(c *gin.Context, info *models.ObjectInfo, contentType string, cache map[string]string) {
	ctx := c.Request.Context()

	rc, current, err := s.objects.OpenReadStream(ctx, info.Ref)
	if err != nil {
		s.writeError(c, err, "Object not found")
		return
	}
	defer rc.Close()

	h := c.Writer.Header()
	setHeaders(h, cache)
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(current.Size, 10))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.log.Error(ctx, "stream aborted", "object", info.Ref.String(), "err", err)
		panic(http.ErrAbortHandler)
	}
}

func cacheHeaders(info *models.ObjectInfo, public bool, ttlSeconds int) map[string]string {
	class := "private"
	if public {
		class = "public"
	}
	h := map[string]string{
		"Cache-Control": class + ", max-age=" + strconv.Itoa(ttlSeconds) + ", immutable",
		"ETag":          quoteETag(info.ETag),
	}
	if !info.LastModified.IsZero() {
		h["Last-Modified"] = info.LastModified.UTC().Format(http.TimeFormat)
	}
	return h
}

func setHeaders(h http.Header, values map[string]string) {
	for k, v := range values {
		h.Set(k, v)
	}
}

func quoteETag(etag string) string {
	trimmed := strings.Trim(strings.TrimSpace(etag), `"`)
	return `"` + trimmed + `"`
}

// notModified is true when If-None-Match names the ETag (or is "*"), or
// If-Modified-Since is at or after Last-Modified.
func notModified(r *http.Request, cache map[string]string) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" || headerContainsETag(inm, strings.Trim(cache["ETag"], `"`)) {
			return true
		}
	}

	ims := r.Header.Get("If-Modified-Since")
	lm, ok := cache["Last-Modified"]
	if ims == "" || !ok {
		return false
	}
	since, err := time.Parse(http.TimeFormat, ims)
	if err != nil {
		return false
	}
	lastModified, err := time.Parse(http.TimeFormat, lm)
	if err != nil {
		return false
	}
	return !lastModified.After(since)
}

func headerContainsETag(headerValue, etag string) bool {
	for _, token := range strings.Split(headerValue, ",") {
		candidate := strings.TrimSpace(token)
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)
		if candidate == etag {
			return true
		}
	}
	return false
}
