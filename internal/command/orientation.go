package command

import (
	"fmt"
	"strings"
)

// Orientation is one of the six fixed camera directions.
type Orientation int

const (
	// Front looks at the model from the front.
	Front Orientation = iota
	// Back looks at the model from the back.
	Back
	// Left looks at the model from the left.
	Left
	// Right looks at the model from the right.
	Right
	// Top looks at the model from above.
	Top
	// Bottom looks at the model from below.
	Bottom

	// OrientationCount is the number of orientations.
	OrientationCount
)

var orientationNames = [OrientationCount]string{
	Front:  "front",
	Back:   "back",
	Left:   "left",
	Right:  "right",
	Top:    "top",
	Bottom: "bottom",
}

// Orientations lists every orientation in declaration order.
func Orientations() []Orientation {
	out := make([]Orientation, 0, OrientationCount)
	for o := Front; o < OrientationCount; o++ {
		out = append(out, o)
	}
	return out
}

// Valid reports whether o is one of the six orientations.
func (o Orientation) Valid() bool {
	return o >= Front && o < OrientationCount
}

// String returns the lowercase name of the orientation.
func (o Orientation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("orientation(%d)", int(o))
	}
	return orientationNames[o]
}

// ParseOrientation parses a case-insensitive orientation name.
func ParseOrientation(s string) (Orientation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for o, n := range orientationNames {
		if n == name {
			return Orientation(o), nil
		}
	}
	return 0, fmt.Errorf("unknown orientation %q", s)
}
