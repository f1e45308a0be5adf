// Package viewstate persists what the viewer showed last so it can be restored.
package viewstate

import "github.com/frudas24/occtview/internal/command"

// Size is a surface size in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// State is the restorable viewer state.
type State struct {
	LastFile   string `json:"lastFile,omitempty"`
	Projection string `json:"projection,omitempty"`
	Surface    Size   `json:"surface"`
}

// Orientation returns the stored projection, if it names a valid orientation.
func (s State) Orientation() (command.Orientation, bool) {
	if s.Projection == "" {
		return 0, false
	}
	o, err := command.ParseOrientation(s.Projection)
	if err != nil {
		return 0, false
	}
	return o, true
}

// Clamp bounds a surface size to [1..max] on each axis. A zero size takes def.
func Clamp(s, def, max Size) Size {
	if s.W <= 0 || s.H <= 0 {
		s = def
	}
	if max.W > 0 && s.W > max.W {
		s.W = max.W
	}
	if max.H > 0 && s.H > max.H {
		s.H = max.H
	}
	if s.W < 1 {
		s.W = 1
	}
	if s.H < 1 {
		s.H = 1
	}
	return s
}
