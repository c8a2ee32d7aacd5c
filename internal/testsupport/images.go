package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
)

// Solid returns an opaque image of the given size filled with c.
func Solid(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a solid opaque image as PNG.
func PNG(t testing.TB, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(width, height, c)); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a solid image as JPEG.
func JPEG(t testing.TB, width, height int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Solid(width, height, c), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// PNGImage wraps a PNG fixture as an ingestion input.
func PNGImage(t testing.TB, name string, width, height int) pipeline.Image {
	t.Helper()
	return pipeline.Image{
		Filename: name,
		MimeType: pipeline.MimePNG,
		Data:     PNG(t, width, height, color.White),
	}
}

// CorruptImage returns an input that claims to be PNG but does not decode.
func CorruptImage(name string) pipeline.Image {
	return pipeline.Image{
		Filename: name,
		MimeType: pipeline.MimePNG,
		Data:     []byte("definitely not a png"),
	}
}
