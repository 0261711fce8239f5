// Package transformtest builds in-memory image fixtures, including JPEGs
// carrying an EXIF orientation tag.
package transformtest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
)

var (
	Red   = color.NRGBA{R: 255, A: 255}
	Green = color.NRGBA{G: 255, A: 255}
	Blue  = color.NRGBA{B: 255, A: 255}
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// Quadrants paints a w x h image red, green, blue, white clockwise from the
// top-left, so any flip or rotation is visible.
func Quadrants(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch {
			case x < w/2 && y < h/2:
				c = Red
			case x >= w/2 && y < h/2:
				c = Green
			case x >= w/2 && y >= h/2:
				c = White
			default:
				c = Blue
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Noise is a deterministic photo-like fixture: a gradient with per-pixel
// jitter, so lossy encoders have detail to throw away.
func Noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*255/w) ^ uint8(rng.Intn(64)),
				G: uint8(y*255/h) ^ uint8(rng.Intn(64)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

// Stored returns what a camera writes for upright when it tags the file with
// orientation instead of rotating the pixels.
func Stored(upright image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(upright)
	case 3:
		return imaging.Rotate180(upright)
	case 4:
		return imaging.FlipV(upright)
	case 5:
		return imaging.Transpose(upright)
	case 6:
		return imaging.Rotate90(upright)
	case 7:
		return imaging.Transverse(upright)
	case 8:
		return imaging.Rotate270(upright)
	default:
		return upright
	}
}

// JPEG encodes img and, when orientation is non-zero, inserts an EXIF APP1
// segment carrying it right after SOI.
func JPEG(img image.Image, orientation int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	data := buf.Bytes()
	if orientation == 0 {
		return data
	}

	app1 := exifSegment(uint16(orientation))
	out := make([]byte, 0, len(data)+len(app1))
	out = append(out, data[:2]...)
	out = append(out, app1...)
	return append(out, data[2:]...)
}

func exifSegment(orientation uint16) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("II")
	le := binary.LittleEndian
	_ = binary.Write(&tiff, le, uint16(42))
	_ = binary.Write(&tiff, le, uint32(8))
	_ = binary.Write(&tiff, le, uint16(1))      // entries in IFD0
	_ = binary.Write(&tiff, le, uint16(0x0112)) // Orientation
	_ = binary.Write(&tiff, le, uint16(3))      // SHORT
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, orientation)
	_ = binary.Write(&tiff, le, uint16(0))
	_ = binary.Write(&tiff, le, uint32(0)) // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func WebP(img image.Image) []byte {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Near reports whether c is within tol of want on every channel.
func Near(c color.Color, want color.NRGBA, tol int) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			return -d
		}
		return d
	}
	return diff(n.R, want.R) <= tol && diff(n.G, want.G) <= tol && diff(n.B, want.B) <= tol
}
