package transform

import (
	"bytes"
	"fmt"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kennel_media/internal/models"
	tt "kennel_media/internal/transform/transformtest"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func assertUpright(t *testing.T, img image.Image, w, h int) {
	t.Helper()
	b := img.Bounds()
	require.Equal(t, w, b.Dx(), "width")
	require.Equal(t, h, b.Dy(), "height")

	qx, qy := w/4, h/4
	assert.True(t, tt.Near(img.At(b.Min.X+qx, b.Min.Y+qy), tt.Red, 48), "top-left should be red")
	assert.True(t, tt.Near(img.At(b.Min.X+3*qx, b.Min.Y+qy), tt.Green, 48), "top-right should be green")
	assert.True(t, tt.Near(img.At(b.Min.X+qx, b.Min.Y+3*qy), tt.Blue, 48), "bottom-left should be blue")
	assert.True(t, tt.Near(img.At(b.Min.X+3*qx, b.Min.Y+3*qy), tt.White, 48), "bottom-right should be white")
}

func TestTransform_OrientationRoundTrip(t *testing.T) {
	engine := NewEngine()
	upright := tt.Quadrants(64, 32)

	for orientation := 1; orientation <= 8; orientation++ {
		t.Run(fmt.Sprintf("orientation %d", orientation), func(t *testing.T) {
			data := tt.JPEG(tt.Stored(upright, orientation), orientation)

			res, err := engine.Transform(data, "image/jpeg", Params{Compress: true, Quality: 90})
			require.NoError(t, err)

			assert.True(t, res.Compressed)
			assert.Equal(t, fmt.Sprintf("%d->1", orientation), res.OrientationFixed)
			assertUpright(t, decode(t, res.Data), 64, 32)
			assert.Zero(t, readOrientation(bytes.NewReader(res.Data)), "output must not carry orientation")
		})
	}
}

func TestTransform_NoExifReportsNone(t *testing.T) {
	data := tt.JPEG(tt.Quadrants(32, 32), 0)

	res, err := NewEngine().Transform(data, "image/jpeg", Params{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, OrientationNone, res.OrientationFixed)
	assert.True(t, res.Compressed)
}

func TestTransform_ResizeBox(t *testing.T) {
	engine := NewEngine()
	data := tt.JPEG(tt.Quadrants(800, 600), 0)

	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"width only", 400, 0, 400, 300},
		{"height only", 0, 150, 200, 150},
		{"box", 100, 100, 100, 75},
		{"never upscales", 2000, 2000, 800, 600},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Transform(data, "image/jpeg", Params{Compress: true, Width: tc.width, Height: tc.height})
			require.NoError(t, err)
			b := decode(t, res.Data).Bounds()
			assert.Equal(t, tc.wantW, b.Dx())
			assert.Equal(t, tc.wantH, b.Dy())
		})
	}
}

func TestTransform_ResizeAfterOrientation(t *testing.T) {
	upright := tt.Quadrants(800, 400)
	data := tt.JPEG(tt.Stored(upright, 6), 6)

	res, err := NewEngine().Transform(data, "image/jpeg", Params{Compress: true, Width: 400, Quality: 70})
	require.NoError(t, err)

	assert.Equal(t, "6->1", res.OrientationFixed)
	assertUpright(t, decode(t, res.Data), 400, 200)
}

func TestTransform_PNGPalette(t *testing.T) {
	engine := NewEngine()
	data := tt.PNG(tt.Quadrants(800, 600))

	small, err := engine.Transform(data, "image/png", Params{Compress: true, Width: 200})
	require.NoError(t, err)
	assert.IsType(t, &image.Paletted{}, decodePNG(t, small.Data))
	assertUpright(t, decode(t, small.Data), 200, 150)

	large, err := engine.Transform(data, "image/png", Params{Compress: true, Width: 600})
	require.NoError(t, err)
	_, paletted := decodePNG(t, large.Data).(*image.Paletted)
	assert.False(t, paletted)
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestTransform_WebP(t *testing.T) {
	data := tt.WebP(tt.Quadrants(128, 64))

	res, err := NewEngine().Transform(data, "image/webp", Params{Compress: true, Width: 64})
	require.NoError(t, err)

	assert.True(t, res.Compressed)
	assert.Equal(t, "image/webp", res.ContentType)
	assertUpright(t, decode(t, res.Data), 64, 32)
}

func TestTransform_WebPHonoursQuality(t *testing.T) {
	engine := NewEngine()
	data := tt.WebP(tt.Noise(256, 256))

	low, err := engine.Transform(data, "image/webp", Params{Compress: true, Quality: 10})
	require.NoError(t, err)
	high, err := engine.Transform(data, "image/webp", Params{Compress: true, Quality: 100})
	require.NoError(t, err)

	assert.Less(t, len(low.Data), len(high.Data))
	assert.Less(t, len(low.Data), len(data), "lossy output should beat the lossless source")
	assert.Equal(t, 256, decode(t, low.Data).Bounds().Dx())
}

func TestTransform_JPEGIsProgressive(t *testing.T) {
	engine := NewEngine()
	data := tt.JPEG(tt.Noise(128, 96), 0)

	res, err := engine.Transform(data, "image/jpeg", Params{Compress: true, Quality: 80})
	require.NoError(t, err)

	assert.True(t, bytes.Contains(res.Data, []byte{0xFF, 0xC2}), "expected a progressive SOF2 marker")
	assert.False(t, bytes.Contains(res.Data, []byte{0xFF, 0xC0}), "unexpected baseline SOF0 marker")

	low, err := engine.Transform(data, "image/jpeg", Params{Compress: true, Quality: 20})
	require.NoError(t, err)
	assert.Less(t, len(low.Data), len(res.Data))
}

func TestTransform_Passthrough(t *testing.T) {
	engine := NewEngine()
	jpg := tt.JPEG(tt.Quadrants(16, 16), 6)

	tests := []struct {
		name        string
		data        []byte
		contentType string
		params      Params
	}{
		{"not an image", []byte("%PDF-1.4"), "application/pdf", Params{Compress: true}},
		{"compress off", jpg, "image/jpeg", Params{Compress: false, Width: 8}},
		{"no encoder", []byte("GIF89a"), "image/gif", Params{Compress: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Transform(tc.data, tc.contentType, tc.params)
			require.NoError(t, err)
			assert.False(t, res.Compressed)
			assert.Equal(t, tc.data, res.Data)
			assert.Equal(t, OrientationNone, res.OrientationFixed)
			assert.Equal(t, len(tc.data), res.OriginalSize)
		})
	}
}

func TestTransform_CorruptInput(t *testing.T) {
	_, err := NewEngine().Transform([]byte("definitely not a jpeg"), "image/jpeg", Params{Compress: true})

	var te *models.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "decode", te.Stage)
	assert.True(t, IsTransformError(err))
}

func TestResult_Ratio(t *testing.T) {
	assert.Equal(t, "75.0%", Result{OriginalSize: 1000, CompressedSize: 250}.Ratio())
	assert.Equal(t, "-20.0%", Result{OriginalSize: 1000, CompressedSize: 1200}.Ratio())
	assert.Equal(t, "0.0%", Result{}.Ratio())
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/jpeg"))
	assert.True(t, IsImage("IMAGE/PNG"))
	assert.False(t, IsImage("application/octet-stream"))
}
