// Package gesture classifies raw touch streams into engine commands.
package gesture

import (
	"math"
	"sort"

	"github.com/frudas24/occtview/internal/command"
)

// tapSlop is the tap threshold in density-independent pixels.
const tapSlop = 5.0

// Phase is the pointer phase of a raw touch event.
type Phase string

const (
	// PhaseDown is a pointer going down.
	PhaseDown Phase = "down"
	// PhaseMove carries the positions of every active pointer.
	PhaseMove Phase = "move"
	// PhaseUp is a pointer being released.
	PhaseUp Phase = "up"
	// PhaseCancel is a single pointer being cancelled.
	PhaseCancel Phase = "cancel"
	// PhaseCancelAll is a system cancel of the whole gesture.
	PhaseCancelAll Phase = "cancel_all"
)

// Event is a raw touch event. Down/up/cancel use Pointer; move uses Batch.
type Event struct {
	Phase   Phase
	Pointer command.TouchPoint
	Batch   []command.TouchPoint
}

// Mode is the classifier state tag.
type Mode int

const (
	// Idle means no tap is pending.
	Idle Mode = iota
	// TrackingSingle means a single pointer may still become a tap.
	TrackingSingle
	// TrackingMulti means a second pointer went down; no tap for this gesture.
	TrackingMulti
)

// String returns the state name.
func (m Mode) String() string {
	switch m {
	case TrackingSingle:
		return "tracking_single"
	case TrackingMulti:
		return "tracking_multi"
	default:
		return "idle"
	}
}

// State is the classifier state. Origin is only meaningful in TrackingSingle.
type State struct {
	Mode   Mode
	Origin command.TouchPoint
}

// Classifier turns touch events into manipulation commands plus a derived
// Select for stationary single taps. It is not safe for concurrent use.
type Classifier struct {
	state   State
	density float64
	active  map[int]command.TouchPoint
}

// NewClassifier returns a classifier for the given display density scale.
func NewClassifier(density float64) *Classifier {
	c := &Classifier{active: make(map[int]command.TouchPoint)}
	c.SetDensity(density)
	return c
}

// SetDensity updates the density scale used for the tap threshold.
func (c *Classifier) SetDensity(density float64) {
	if density <= 0 || math.IsNaN(density) || math.IsInf(density, 0) {
		density = 1
	}
	c.density = density
}

// Density returns the density scale.
func (c *Classifier) Density() float64 {
	return c.density
}

// Reset forgets every active pointer without emitting commands.
func (c *Classifier) Reset() {
	c.active = make(map[int]command.TouchPoint)
	c.state = State{Mode: Idle}
}

// Threshold returns the tap threshold in pixels.
func (c *Classifier) Threshold() float64 {
	return tapSlop * c.density
}

// State returns the current classifier state.
func (c *Classifier) State() State {
	return c.state
}

// ActiveCount returns the number of pointers currently down.
func (c *Classifier) ActiveCount() int {
	return len(c.active)
}

// Handle dispatches an event by phase.
func (c *Classifier) Handle(ev Event) []command.Command {
	switch ev.Phase {
	case PhaseDown:
		return c.HandleDown(ev.Pointer)
	case PhaseMove:
		return c.HandleMove(ev.Batch)
	case PhaseUp, PhaseCancel:
		return c.HandleUp(ev.Pointer.ID)
	case PhaseCancelAll:
		return c.HandleCancelAll()
	default:
		return nil
	}
}

// HandleDown processes a pointer down event.
func (c *Classifier) HandleDown(p command.TouchPoint) []command.Command {
	c.active[p.ID] = p
	if len(c.active) == 1 {
		c.state = State{Mode: TrackingSingle, Origin: p}
	} else {
		c.state = State{Mode: TrackingMulti}
	}
	return []command.Command{command.AddTouch(p)}
}

// HandleMove processes a move batch holding every active pointer position.
// Entries for pointers that are not down are ignored.
func (c *Classifier) HandleMove(batch []command.TouchPoint) []command.Command {
	out := make([]command.Command, 0, len(batch))
	for _, p := range batch {
		if _, ok := c.active[p.ID]; !ok {
			continue
		}
		c.active[p.ID] = p
		out = append(out, command.UpdateTouch(p))
	}

	if c.state.Mode != TrackingSingle {
		return out
	}
	moved, ok := c.movedPointer(batch)
	if !ok {
		return out
	}
	origin := c.state.Origin
	limit := c.Threshold()
	if math.Abs(moved.X-origin.X) > limit || math.Abs(moved.Y-origin.Y) > limit {
		c.state = State{Mode: Idle}
	}
	return out
}

// HandleUp processes a pointer release or single pointer cancel. Unknown
// ids are ignored.
func (c *Classifier) HandleUp(id int) []command.Command {
	if _, ok := c.active[id]; !ok {
		return nil
	}
	delete(c.active, id)
	out := []command.Command{command.RemoveTouch(id)}
	if c.state.Mode == TrackingSingle && id == c.state.Origin.ID {
		out = append(out, command.Select(c.state.Origin.X, c.state.Origin.Y))
	}
	c.state = State{Mode: Idle}
	return out
}

// HandleCancelAll releases every active pointer without selecting.
func (c *Classifier) HandleCancelAll() []command.Command {
	ids := make([]int, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]command.Command, 0, len(ids))
	for _, id := range ids {
		out = append(out, command.RemoveTouch(id))
		delete(c.active, id)
	}
	c.state = State{Mode: Idle}
	return out
}

// movedPointer picks the origin pointer from the batch.
func (c *Classifier) movedPointer(batch []command.TouchPoint) (command.TouchPoint, bool) {
	for _, p := range batch {
		if p.ID == c.state.Origin.ID {
			return p, true
		}
	}
	return command.TouchPoint{}, false
}
