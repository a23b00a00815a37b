package signing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"github.com/mesingh9719/docforge-sign/internal/document"
)

// Capture is one way of producing a signature value. Submitting any
// capture sets the field's value to its output and records the
// method used.
type Capture interface {
	Method() document.SignatureMethod
	Value() (string, error)
}

// TypedCapture renders a typed name as the signature value. The
// script-style presentation happens at render time; the stored value
// is the text itself.
type TypedCapture struct {
	Text string
}

func (c TypedCapture) Method() document.SignatureMethod { return document.MethodTyped }

func (c TypedCapture) Value() (string, error) {
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return "", ErrEmptyValue
	}
	return text, nil
}

// Point is one sample of a freehand stroke in pad-local pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a contiguous pen-down run of points.
type Stroke struct {
	Points []Point `json:"points"`
}

// DrawnCapture rasterizes freehand strokes captured on a signature
// pad into a PNG image value.
type DrawnCapture struct {
	Strokes []Stroke
	// Width and Height are the pad dimensions in pixels. Zero values
	// fall back to the default pad size.
	Width  int
	Height int
}

// Default signature pad dimensions.
const (
	defaultPadWidth  = 400
	defaultPadHeight = 150
)

func (c DrawnCapture) Method() document.SignatureMethod { return document.MethodDrawn }

// Value rasterizes the strokes to a PNG data URL. A capture with no
// drawn points is rejected as empty.
func (c DrawnCapture) Value() (string, error) {
	total := 0
	for _, s := range c.Strokes {
		total += len(s.Points)
	}
	if total == 0 {
		return "", ErrEmptyValue
	}

	w, h := c.Width, c.Height
	if w <= 0 {
		w = defaultPadWidth
	}
	if h <= 0 {
		h = defaultPadHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	ink := color.RGBA{R: 20, G: 20, B: 60, A: 255}
	for _, s := range c.Strokes {
		for i := 1; i < len(s.Points); i++ {
			drawSegment(img, s.Points[i-1], s.Points[i], ink)
		}
		if len(s.Points) == 1 {
			plot(img, int(s.Points[0].X), int(s.Points[0].Y), ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding signature image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// UploadedCapture wraps a user-supplied signature image.
type UploadedCapture struct {
	// ContentType must be an image type; only PNG and JPEG are
	// accepted.
	ContentType string
	Data        []byte
}

func (c UploadedCapture) Method() document.SignatureMethod { return document.MethodUploaded }

func (c UploadedCapture) Value() (string, error) {
	if len(c.Data) == 0 {
		return "", ErrEmptyValue
	}
	switch c.ContentType {
	case "image/png", "image/jpeg":
	default:
		return "", fmt.Errorf("unsupported signature image type %q", c.ContentType)
	}
	return "data:" + c.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Data), nil
}

// drawSegment draws a straight line between two stroke samples by
// stepping at sub-pixel resolution. Stroke samples arrive densely
// from pointer events, so straight interpolation is visually smooth.
func drawSegment(img *image.RGBA, a, b Point, ink color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		plot(img, int(a.X), int(a.Y), ink)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		plot(img, int(a.X+dx*t), int(a.Y+dy*t), ink)
	}
}

// plot sets a 2x2 block so strokes read as pen lines rather than
// single-pixel hairlines.
func plot(img *image.RGBA, x, y int, ink color.RGBA) {
	bounds := img.Bounds()
	for ox := 0; ox < 2; ox++ {
		for oy := 0; oy < 2; oy++ {
			px, py := x+ox, y+oy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.SetRGBA(px, py, ink)
			}
		}
	}
}
