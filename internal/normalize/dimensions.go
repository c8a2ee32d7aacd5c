package normalize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
)

// Dimensions is a frame size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Even truncates both sides to the nearest even value not above them.
// H.264 with 4:2:0 chroma subsampling needs even sides.
func (d Dimensions) Even() Dimensions {
	return Dimensions{Width: d.Width &^ 1, Height: d.Height &^ 1}
}

// Valid reports whether both sides are positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// acceptedFormat reports whether an image.DecodeConfig format name is one
// the pipeline ingests.
func acceptedFormat(format string) bool {
	return format == "jpeg" || format == "png"
}

// Inspect returns the natural size of an encoded image without decoding pixels.
func Inspect(data []byte) (Dimensions, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !acceptedFormat(format) {
		return Dimensions{}, format, fmt.Errorf("%w: unsupported format %q", ErrDecode, format)
	}
	dims := Dimensions{Width: cfg.Width, Height: cfg.Height}
	if !dims.Valid() {
		return dims, format, fmt.Errorf("%w: source is %s", ErrInvalidDimensions, dims)
	}
	return dims, format, nil
}

// Decode fully decodes a JPEG or PNG. Any other format, including ones the
// imaging package could read, is a decode error.
func Decode(data []byte) (image.Image, error) {
	if _, _, err := Inspect(data); err != nil {
		return nil, err
	}
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return src, nil
}

// TargetFor derives encode target dimensions from the natural size of the
// first frame. The whole image is decoded so a corrupt body fails here,
// before any frame is written.
func TargetFor(data []byte) (Dimensions, error) {
	src, err := Decode(data)
	if err != nil {
		return Dimensions{}, err
	}
	bounds := src.Bounds()
	natural := Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}
	target := natural.Even()
	if !target.Valid() {
		return target, fmt.Errorf("%w: %s truncates to %s", ErrInvalidDimensions, natural, target)
	}
	return target, nil
}
