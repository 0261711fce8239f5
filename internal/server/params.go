package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"kennel_media/internal/transform"
)

// DefaultQuality is the delivery default, applied when the query carries no
// usable quality.
const DefaultQuality = 80

// ParseTransformParams reads compress, quality, width and height from the
// query. Bad values are defaulted, never rejected.
func ParseTransformParams(c *gin.Context) transform.Params {
	p := transform.Params{
		Compress: c.Query("compress") != "false",
		Quality:  DefaultQuality,
	}

	if q, err := strconv.Atoi(c.Query("quality")); err == nil && q >= 1 && q <= 100 {
		p.Quality = q
	}
	if w, err := strconv.Atoi(c.Query("width")); err == nil && w > 0 {
		p.Width = w
	}
	if h, err := strconv.Atoi(c.Query("height")); err == nil && h > 0 {
		p.Height = h
	}
	return p
}
