package control

import (
	"github.com/frudas24/occtview/internal/command"
)

// NormToSurface maps normalized client coordinates to surface pixels.
func NormToSurface(xn, yn float64, w, h int) (float64, float64) {
	return normToPixels(clamp01(xn), w), normToPixels(clamp01(yn), h)
}

// PointToSurface maps a normalized client pointer onto the surface.
func PointToSurface(p Pointer, w, h int) command.TouchPoint {
	x, y := NormToSurface(p.X, p.Y, w, h)
	return command.TouchPoint{ID: p.ID, X: x, Y: y}
}

// normToPixels maps [0,1] onto [0, span-1].
func normToPixels(norm float64, span int) float64 {
	if span <= 1 {
		return 0
	}
	return norm * float64(span-1)
}

// clamp01 bounds a float to the [0..1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
