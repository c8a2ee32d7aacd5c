package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Placement describes where a scaled source lands on the canvas.
type Placement struct {
	Scale   float64
	Size    Dimensions
	OffsetX int
	OffsetY int
}

// Fit computes the aspect-preserving "fit inside" placement of natural
// within target. The scaled image never exceeds the canvas.
func Fit(natural, target Dimensions) Placement {
	scale := math.Min(
		float64(target.Width)/float64(natural.Width),
		float64(target.Height)/float64(natural.Height),
	)
	w := clamp(int(math.Round(float64(natural.Width)*scale)), 1, target.Width)
	h := clamp(int(math.Round(float64(natural.Height)*scale)), 1, target.Height)
	return Placement{
		Scale:   scale,
		Size:    Dimensions{Width: w, Height: h},
		OffsetX: (target.Width - w) / 2,
		OffsetY: (target.Height - h) / 2,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithBackground sets the fill for canvas area not covered by the image.
func WithBackground(c color.Color) Option {
	return func(n *Normalizer) { n.background = c }
}

// WithFilter overrides the resampling filter.
func WithFilter(f imaging.ResampleFilter) Option {
	return func(n *Normalizer) { n.filter = f }
}

// Normalizer renders source images onto fixed-size PNG frames.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	background color.Color
	filter     imaging.ResampleFilter
}

// New creates a normalizer with a transparent background and Lanczos
// resampling.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		background: color.NRGBA{},
		filter:     imaging.Lanczos,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize decodes data, scales it to fit target while preserving aspect
// ratio, centers it on a target-sized canvas and returns the canvas as PNG.
// Odd target sides are truncated to even before rendering.
func (n *Normalizer) Normalize(data []byte, target Dimensions) ([]byte, error) {
	target = target.Even()
	if !target.Valid() {
		return nil, fmt.Errorf("%w: target %s", ErrInvalidDimensions, target)
	}

	src, err := Decode(data)
	if err != nil {
		return nil, err
	}

	frame := n.Render(src, target)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Render draws an already decoded image onto a canvas of exactly target.
// target must be valid.
func (n *Normalizer) Render(src image.Image, target Dimensions) *image.NRGBA {
	bounds := src.Bounds()
	natural := Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	canvas := imaging.New(target.Width, target.Height, n.background)
	if !natural.Valid() {
		return canvas
	}

	place := Fit(natural, target)
	var scaled image.Image = src
	if place.Size != natural {
		scaled = imaging.Resize(src, place.Size.Width, place.Size.Height, n.filter)
	}
	return imaging.Overlay(canvas, scaled, image.Pt(place.OffsetX, place.OffsetY), 1.0)
}
