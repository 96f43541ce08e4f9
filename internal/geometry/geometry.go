// Package geometry holds the pure canvas-math helpers shared by the shape
// service and the client drawing session. Nothing here touches I/O.
package geometry

// Canvas extent and the smallest shape a drag may commit.
const (
	CanvasWidth  = 5000.0
	CanvasHeight = 5000.0
	MinShapeSize = 10.0
)

// Rect is an axis-aligned rectangle with a non-negative size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NormalizeRectangle converts an arbitrary two-point drag into a Rect whose
// origin is the min corner, so dragging up-left yields the same rectangle as
// dragging down-right.
func NormalizeRectangle(x0, y0, x1, y1 float64) Rect {
	r := Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if r.Width < 0 {
		r.X = x1
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y = y1
		r.Height = -r.Height
	}
	return r
}

// ValidateShapeBounds reports whether the rectangle lies fully inside the
// canvas and has positive size.
func ValidateShapeBounds(x, y, w, h float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return x >= 0 && y >= 0 && x+w <= CanvasWidth && y+h <= CanvasHeight
}

// MeetsMinimumSize reports whether a committed drag clears the minimum
// drawable shape size.
func MeetsMinimumSize(w, h float64) bool {
	return w >= MinShapeSize && h >= MinShapeSize
}

// ClampShapeToCanvas moves an out-of-bounds rectangle to the nearest
// in-bounds position without resizing it. A shape larger than the canvas is
// pinned to the origin and still overflows; callers validate size separately.
func ClampShapeToCanvas(x, y, w, h float64) (float64, float64) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > CanvasWidth {
		x = CanvasWidth - w
	}
	if y+h > CanvasHeight {
		y = CanvasHeight - h
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}
