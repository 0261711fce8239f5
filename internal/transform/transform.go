// Package transform re-encodes images for delivery: EXIF orientation is baked
// into the pixels, the image is fit inside the requested box and encoded at
// the requested quality.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"kennel_media/internal/models"
)

const (
	// DefaultQuality applies when Params.Quality is zero.
	DefaultQuality = 75
	// PaletteWidthLimit: PNGs requested narrower than this are palettized.
	PaletteWidthLimit = 400

	// WebPMethod is the encoder effort, 0 (fast) to 6 (slow).
	WebPMethod = 4
	// JPEGProgressiveLevel selects jpegli's default progressive scan script.
	JPEGProgressiveLevel = 2

	OrientationNone = "none"
)

type Params struct {
	Compress bool
	Quality  int
	Width    int
	Height   int
}

type Result struct {
	Data             []byte
	ContentType      string
	Compressed       bool
	OriginalSize     int
	CompressedSize   int
	OrientationFixed string
}

// Ratio is the relative size saving, e.g. "42.5%". Negative when the output
// grew.
func (r Result) Ratio() string {
	if r.OriginalSize == 0 {
		return "0.0%"
	}
	saved := (1 - float64(r.CompressedSize)/float64(r.OriginalSize)) * 100
	return strconv.FormatFloat(saved, 'f', 1, 64) + "%"
}

type format int

const (
	formatOther format = iota
	formatJPEG
	formatPNG
	formatWebP
)

func formatOf(contentType string) format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return formatJPEG
	case strings.Contains(ct, "png"):
		return formatPNG
	case strings.Contains(ct, "webp"):
		return formatWebP
	default:
		return formatOther
	}
}

// IsImage reports whether contentType names an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

type Engine struct {
	filter imaging.ResampleFilter
}

func NewEngine() *Engine {
	return &Engine{filter: imaging.Lanczos}
}

// Transform never mutates data. Non-images, Compress=false and image types
// without an encoder come back as the original bytes with Compressed=false.
func (e *Engine) Transform(data []byte, contentType string, p Params) (*Result, error) {
	passthrough := &Result{
		Data:             data,
		ContentType:      contentType,
		OriginalSize:     len(data),
		CompressedSize:   len(data),
		OrientationFixed: OrientationNone,
	}

	f := formatOf(contentType)
	if !p.Compress || !IsImage(contentType) || f == formatOther {
		return passthrough, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &models.TransformError{Stage: "decode", Err: err}
	}

	orientation := 0
	if f == formatJPEG {
		orientation = readOrientation(bytes.NewReader(data))
	}
	img = applyOrientation(img, orientation)

	if p.Width > 0 || p.Height > 0 {
		img = e.fit(img, p.Width, p.Height)
	}

	quality := p.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	switch f {
	case formatJPEG:
		err = jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
			Quality:          quality,
			ProgressiveLevel: JPEGProgressiveLevel,
			OptimizeCoding:   true,
		})
	case formatPNG:
		if p.Width > 0 && p.Width < PaletteWidthLimit {
			img = palettize(img)
		}
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case formatWebP:
		err = webp.Encode(&buf, img, webp.Options{Quality: quality, Method: WebPMethod})
	}
	if err != nil {
		return nil, &models.TransformError{Stage: "encode", Err: err}
	}

	fixed := OrientationNone
	if orientation > 0 {
		fixed = fmt.Sprintf("%d->1", orientation)
	}

	return &Result{
		Data:             buf.Bytes(),
		ContentType:      contentType,
		Compressed:       true,
		OriginalSize:     len(data),
		CompressedSize:   buf.Len(),
		OrientationFixed: fixed,
	}, nil
}

// fit scales img down to fit inside width x height; a zero side leaves that
// axis unconstrained. Images already inside the box are left alone.
func (e *Engine) fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 {
		width = b.Dx()
	}
	if height <= 0 {
		height = b.Dy()
	}
	if b.Dx() <= width && b.Dy() <= height {
		return img
	}
	return imaging.Fit(img, width, height, e.filter)
}

// readOrientation returns the EXIF orientation (1-8), or 0 when absent.
func readOrientation(r io.Reader) int {
	// A partially parsed block still carries IFD0, where Orientation lives.
	x, _ := exif.Decode(r)
	if x == nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 0
	}
	return v
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func palettize(img image.Image) image.Image {
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, 256), img)
	if len(p) == 0 {
		return img
	}
	out := image.NewPaletted(img.Bounds(), p)
	draw.FloydSteinberg.Draw(out, img.Bounds(), img, img.Bounds().Min)
	return out
}

// IsTransformError reports whether err came out of the engine.
func IsTransformError(err error) bool {
	var te *models.TransformError
	return errors.As(err, &te)
}
