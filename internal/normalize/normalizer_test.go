package normalize

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/tendant/stopmotion-pipeline/internal/testsupport"
)

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func alphaAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

func TestFitScalingLaw(t *testing.T) {
	place := Fit(Dimensions{200, 100}, Dimensions{100, 100})
	if place.Scale != 0.5 {
		t.Fatalf("scale = %v, want 0.5", place.Scale)
	}
	if place.Size != (Dimensions{100, 50}) {
		t.Fatalf("size = %s, want 100x50", place.Size)
	}
	if place.OffsetX != 0 || place.OffsetY != 25 {
		t.Fatalf("offset = (%d,%d), want (0,25)", place.OffsetX, place.OffsetY)
	}
}

func TestFitTable(t *testing.T) {
	tests := []struct {
		name    string
		natural Dimensions
		target  Dimensions
		size    Dimensions
		offX    int
		offY    int
	}{
		{"same", Dimensions{100, 50}, Dimensions{100, 50}, Dimensions{100, 50}, 0, 0},
		{"tall", Dimensions{50, 200}, Dimensions{100, 100}, Dimensions{25, 100}, 37, 0},
		{"upscale", Dimensions{10, 10}, Dimensions{40, 20}, Dimensions{20, 20}, 10, 0},
		{"sliver", Dimensions{1000, 1}, Dimensions{10, 10}, Dimensions{10, 1}, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			place := Fit(tt.natural, tt.target)
			if place.Size != tt.size || place.OffsetX != tt.offX || place.OffsetY != tt.offY {
				t.Fatalf("Fit = %+v, want size %s offset (%d,%d)", place, tt.size, tt.offX, tt.offY)
			}
		})
	}
}

func TestNormalizeCentersWithTransparentBands(t *testing.T) {
	src := testsupport.PNG(t, 200, 100, color.White)
	out, err := New().Normalize(src, Dimensions{100, 100})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img := decodePNG(t, out)
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("canvas = %dx%d, want 100x100", b.Dx(), b.Dy())
	}
	for _, y := range []int{0, 24, 75, 99} {
		if a := alphaAt(img, 50, y); a != 0 {
			t.Fatalf("alpha at y=%d = %d, want transparent band", y, a)
		}
	}
	for _, y := range []int{25, 50, 74} {
		if a := alphaAt(img, 50, y); a == 0 {
			t.Fatalf("alpha at y=%d = 0, want image content", y)
		}
	}
}

func TestNormalizeBackgroundOption(t *testing.T) {
	src := testsupport.PNG(t, 10, 20, color.White)
	out, err := New(WithBackground(color.Black)).Normalize(src, Dimensions{20, 20})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img := decodePNG(t, out)
	got := color.NRGBAModel.Convert(img.At(0, 10)).(color.NRGBA)
	if got != (color.NRGBA{0, 0, 0, 255}) {
		t.Fatalf("background pixel = %v, want opaque black", got)
	}
}

func TestNormalizeTruncatesOddTarget(t *testing.T) {
	src := testsupport.JPEG(t, 64, 48, color.Gray{Y: 128})
	out, err := New().Normalize(src, Dimensions{33, 25})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	b := decodePNG(t, out).Bounds()
	if b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("canvas = %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	src := testsupport.PNG(t, 37, 91, color.RGBA{200, 40, 10, 255})
	n := New()
	first, err := n.Normalize(src, Dimensions{64, 64})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := n.Normalize(src, Dimensions{64, 64})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("normalizing the same input twice produced different bytes")
	}
}

func TestNormalizeErrors(t *testing.T) {
	n := New()
	src := testsupport.PNG(t, 4, 4, color.White)
	for _, target := range []Dimensions{{1, 10}, {10, 1}, {0, 0}, {-4, 8}} {
		if _, err := n.Normalize(src, target); !errors.Is(err, ErrInvalidDimensions) {
			t.Fatalf("Normalize(%s) error = %v, want ErrInvalidDimensions", target, err)
		}
	}
	if _, err := n.Normalize([]byte("nope"), Dimensions{10, 10}); !errors.Is(err, ErrDecode) {
		t.Fatalf("decode error = %v, want ErrDecode", err)
	}

	var gifData bytes.Buffer
	if err := gif.Encode(&gifData, testsupport.Solid(4, 4, color.White), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	if _, err := n.Normalize(gifData.Bytes(), Dimensions{4, 4}); !errors.Is(err, ErrDecode) {
		t.Fatalf("gif error = %v, want ErrDecode", err)
	}
	if _, err := Decode(gifData.Bytes()); !errors.Is(err, ErrDecode) {
		t.Fatalf("Decode(gif) error = %v, want ErrDecode", err)
	}
}

func TestTargetForRejectsCorruptBody(t *testing.T) {
	// Signature plus IHDR: the header parses, the pixel data is missing.
	header := testsupport.PNG(t, 20, 20, color.White)[:33]
	if _, _, err := Inspect(header); err != nil {
		t.Fatalf("Inspect(header) = %v, want header to parse", err)
	}
	if _, err := TargetFor(header); !errors.Is(err, ErrDecode) {
		t.Fatalf("TargetFor error = %v, want ErrDecode", err)
	}
}

func TestTargetForTruncatesFirstImage(t *testing.T) {
	target, err := TargetFor(testsupport.PNG(t, 101, 51, color.White))
	if err != nil {
		t.Fatalf("TargetFor: %v", err)
	}
	if target != (Dimensions{100, 50}) {
		t.Fatalf("target = %s, want 100x50", target)
	}

	if _, err := TargetFor(testsupport.PNG(t, 1, 30, color.White)); !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("1px wide error = %v, want ErrInvalidDimensions", err)
	}
	if _, err := TargetFor([]byte{0x89, 'P', 'N', 'G'}); !errors.Is(err, ErrDecode) {
		t.Fatalf("truncated png error = %v, want ErrDecode", err)
	}
}

func TestDimensionsEven(t *testing.T) {
	tests := map[Dimensions]Dimensions{
		{101, 51}: {100, 50},
		{2, 2}:    {2, 2},
		{1, 1}:    {0, 0},
	}
	for in, want := range tests {
		if got := in.Even(); got != want {
			t.Errorf("%s.Even() = %s, want %s", in, got, want)
		}
	}
}
