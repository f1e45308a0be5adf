// Package display reports host display geometry and density.
package display

import "math"

// baseDPI is the density-independent pixel reference.
const baseDPI = 96.0

// Display describes a display, its bounds and its density scale.
type Display struct {
	Index   int
	X       int
	Y       int
	W       int
	H       int
	Primary bool
	Density float64
}

// DensityFromDPI converts a dots-per-inch value to a density scale.
func DensityFromDPI(dpi int) float64 {
	if dpi <= 0 {
		return 1
	}
	return math.Round(float64(dpi)/baseDPI*100) / 100
}

// PrimaryDisplay returns the primary display, or the first one.
func PrimaryDisplay(list []Display) (Display, bool) {
	for _, d := range list {
		if d.Primary {
			return d, true
		}
	}
	if len(list) > 0 {
		return list[0], true
	}
	return Display{}, false
}

// HostDensity returns the primary display density, or fallback when unknown.
func HostDensity(list []Display, fallback float64) float64 {
	d, ok := PrimaryDisplay(list)
	if !ok || d.Density <= 0 {
		return fallback
	}
	return d.Density
}
