package engine

import "github.com/frudas24/occtview/internal/command"

// Direction is an engine camera entry point: the axis the eye sits on.
type Direction int

const (
	// XPos places the eye on +X.
	XPos Direction = iota + 1
	// YPos places the eye on +Y.
	YPos
	// ZPos places the eye on +Z.
	ZPos
	// XNeg places the eye on -X.
	XNeg
	// YNeg places the eye on -Y.
	YNeg
	// ZNeg places the eye on -Z.
	ZNeg
)

// String returns the axis name.
func (d Direction) String() string {
	switch d {
	case XPos:
		return "xpos"
	case YPos:
		return "ypos"
	case ZPos:
		return "zpos"
	case XNeg:
		return "xneg"
	case YNeg:
		return "yneg"
	case ZNeg:
		return "zneg"
	default:
		return "none"
	}
}

// projectionTable maps every orientation to its engine entry point. The array
// is sized by OrientationCount so a stray key does not compile; a zero entry
// marks a missing mapping.
var projectionTable = [command.OrientationCount]Direction{
	command.Front:  XPos,
	command.Left:   YPos,
	command.Top:    ZPos,
	command.Back:   XNeg,
	command.Right:  YNeg,
	command.Bottom: ZNeg,
}

// ProjectionFor returns the engine direction for o, or false for an invalid value.
func ProjectionFor(o command.Orientation) (Direction, bool) {
	if !o.Valid() {
		return 0, false
	}
	d := projectionTable[o]
	return d, d != 0
}
