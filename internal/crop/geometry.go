package crop

import (
	"image"
	"math"
)

const (
	// MinZoom shows the image cover-fitted into the viewport.
	MinZoom = 1.0
	// MaxZoom is the strongest magnification a user can select.
	MaxZoom = 3.0

	// panPerZoom bounds panning on each axis to ±panPerZoom*zoom viewport pixels.
	panPerZoom = 100.0

	DefaultViewportDiameter = 200
	DefaultOutputSize       = 256
	DefaultQuality          = 90
)

// Geometry holds the fixed sizes of the crop modal.
type Geometry struct {
	// ViewportDiameter is the on-screen diameter of the circular crop window.
	ViewportDiameter float64
	// OutputSize is the side length of the square raster produced by Commit.
	OutputSize int
}

// DefaultGeometry returns the geometry used when nothing is configured.
func DefaultGeometry() Geometry {
	return Geometry{
		ViewportDiameter: DefaultViewportDiameter,
		OutputSize:       DefaultOutputSize,
	}
}

// Offset is the pan displacement of the image center away from the viewport
// center, in viewport pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a square region of the source image in native pixels.
type Rect struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Side float64 `json:"side"`
}

// Max returns the bottom-right corner of r.
func (r Rect) Max() (float64, float64) {
	return r.X + r.Side, r.Y + r.Side
}

// ClampZoom restricts z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// PanLimit is the largest absolute offset allowed on either axis at zoom.
func PanLimit(zoom float64) float64 {
	return panPerZoom * zoom
}

// ClampOffset clamps each axis of o independently to ±PanLimit(zoom).
// Clamping an already clamped offset returns it unchanged.
func ClampOffset(o Offset, zoom float64) Offset {
	limit := PanLimit(zoom)
	return Offset{
		X: clampAxis(o.X, limit),
		Y: clampAxis(o.Y, limit),
	}
}

func clampAxis(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(limit, math.Max(-limit, v))
}

// SourceRect computes the square of the source image that is visible through
// the viewport. The image is assumed cover-fitted, so its smaller natural
// dimension spans the viewport at zoom 1. Panning right or down moves the
// visible window left or up in source space.
func SourceRect(natural image.Point, g Geometry, zoom float64, off Offset) Rect {
	w := float64(natural.X)
	h := float64(natural.Y)

	scale := math.Min(w, h) / g.ViewportDiameter
	side := g.ViewportDiameter * scale / zoom
	cx := w/2 - off.X*scale/zoom
	cy := h/2 - off.Y*scale/zoom

	return Rect{
		X:    cx - side/2,
		Y:    cy - side/2,
		Side: side,
	}
}
