// Package command defines the render commands exchanged between input and render goroutines.
package command

import "fmt"

// Kind identifies the variant carried by a Command.
type Kind int

const (
	// KindInit initializes the engine on a fresh context.
	KindInit Kind = iota
	// KindResize resizes the engine viewport.
	KindResize
	// KindOpen opens a model file.
	KindOpen
	// KindAddTouch starts tracking a touch point.
	KindAddTouch
	// KindUpdateTouch moves a tracked touch point.
	KindUpdateTouch
	// KindRemoveTouch stops tracking a touch point.
	KindRemoveTouch
	// KindSelect picks the object under a screen position.
	KindSelect
	// KindFitAll fits the camera to the displayed content.
	KindFitAll
	// KindSetProjection moves the camera to a fixed direction.
	KindSetProjection
	// KindSnapshot dumps the current view to an image file.
	KindSnapshot
)

var kindNames = [...]string{
	KindInit:          "init",
	KindResize:        "resize",
	KindOpen:          "open",
	KindAddTouch:      "add_touch",
	KindUpdateTouch:   "update_touch",
	KindRemoveTouch:   "remove_touch",
	KindSelect:        "select",
	KindFitAll:        "fit_all",
	KindSetProjection: "set_projection",
	KindSnapshot:      "snapshot",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// TouchPoint is a pointer position identified by its platform pointer id.
type TouchPoint struct {
	ID int
	X  float64
	Y  float64
}

// Command is an immutable render intent. Only the fields relevant to Kind are set.
type Command struct {
	Kind        Kind
	Touch       TouchPoint
	Width       int
	Height      int
	Path        string
	Orientation Orientation
}

// Init returns an engine initialization command.
func Init() Command { return Command{Kind: KindInit} }

// Resize returns a viewport resize command.
func Resize(w, h int) Command { return Command{Kind: KindResize, Width: w, Height: h} }

// Open returns a model open command.
func Open(path string) Command { return Command{Kind: KindOpen, Path: path} }

// AddTouch returns a touch start command.
func AddTouch(p TouchPoint) Command { return Command{Kind: KindAddTouch, Touch: p} }

// UpdateTouch returns a touch move command.
func UpdateTouch(p TouchPoint) Command { return Command{Kind: KindUpdateTouch, Touch: p} }

// RemoveTouch returns a touch end command.
func RemoveTouch(id int) Command { return Command{Kind: KindRemoveTouch, Touch: TouchPoint{ID: id}} }

// Select returns a pick command at screen coordinates.
func Select(x, y float64) Command {
	return Command{Kind: KindSelect, Touch: TouchPoint{ID: -1, X: x, Y: y}}
}

// FitAll returns a fit-all command.
func FitAll() Command { return Command{Kind: KindFitAll} }

// SetProjection returns a camera projection command.
func SetProjection(o Orientation) Command { return Command{Kind: KindSetProjection, Orientation: o} }

// Snapshot returns an image dump command.
func Snapshot(path string) Command { return Command{Kind: KindSnapshot, Path: path} }

// String renders the command for logs and test failures.
func (c Command) String() string {
	switch c.Kind {
	case KindResize:
		return fmt.Sprintf("%s(%d,%d)", c.Kind, c.Width, c.Height)
	case KindOpen, KindSnapshot:
		return fmt.Sprintf("%s(%q)", c.Kind, c.Path)
	case KindAddTouch, KindUpdateTouch:
		return fmt.Sprintf("%s(%d,%g,%g)", c.Kind, c.Touch.ID, c.Touch.X, c.Touch.Y)
	case KindRemoveTouch:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Touch.ID)
	case KindSelect:
		return fmt.Sprintf("%s(%g,%g)", c.Kind, c.Touch.X, c.Touch.Y)
	case KindSetProjection:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Orientation)
	default:
		return c.Kind.String()
	}
}
