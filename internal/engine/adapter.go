package engine

import (
	"errors"

	"github.com/frudas24/occtview/internal/command"
)

// ErrSnapshotUnsupported is returned when the engine cannot dump images.
var ErrSnapshotUnsupported = errors.New("engine does not support snapshots")

// Adapter forwards calls to the engine behind a handle. Every call is a
// silent no-op while the handle is absent.
type Adapter struct {
	reg    *Registry
	handle Handle
}

// NewAdapter binds an adapter to a registry handle.
func NewAdapter(reg *Registry, h Handle) Adapter {
	return Adapter{reg: reg, handle: h}
}

// Handle returns the bound handle.
func (a Adapter) Handle() Handle {
	return a.handle
}

// Present reports whether the handle resolves to an engine.
func (a Adapter) Present() bool {
	_, ok := a.reg.Lookup(a.handle)
	return ok
}

// engine looks up the handle, returning nil when it is gone.
func (a Adapter) engine() Engine {
	e, _ := a.reg.Lookup(a.handle)
	return e
}

// Init initializes the engine; false when absent or failing.
func (a Adapter) Init() bool {
	if e := a.engine(); e != nil {
		return e.Init()
	}
	return false
}

// Resize resizes the viewport.
func (a Adapter) Resize(w, h int) {
	if e := a.engine(); e != nil {
		e.Resize(w, h)
	}
}

// Open opens a model file.
func (a Adapter) Open(path string) bool {
	if e := a.engine(); e != nil {
		return e.Open(path)
	}
	return false
}

// AddTouch starts tracking a touch point.
func (a Adapter) AddTouch(id int, x, y float64) {
	if e := a.engine(); e != nil {
		e.AddTouch(id, x, y)
	}
}

// UpdateTouch moves a touch point.
func (a Adapter) UpdateTouch(id int, x, y float64) {
	if e := a.engine(); e != nil {
		e.UpdateTouch(id, x, y)
	}
}

// RemoveTouch stops tracking a touch point.
func (a Adapter) RemoveTouch(id int) {
	if e := a.engine(); e != nil {
		e.RemoveTouch(id)
	}
}

// Select picks at screen coordinates.
func (a Adapter) Select(x, y float64) {
	if e := a.engine(); e != nil {
		e.Select(x, y)
	}
}

// FitAll fits the camera to the content.
func (a Adapter) FitAll() {
	if e := a.engine(); e != nil {
		e.FitAll()
	}
}

// SetProjection moves the camera to a fixed orientation.
func (a Adapter) SetProjection(o command.Orientation) {
	e := a.engine()
	if e == nil {
		return
	}
	if dir, ok := ProjectionFor(o); ok {
		e.SetProjection(dir)
	}
}

// Redraw draws a frame; false when absent.
func (a Adapter) Redraw() bool {
	if e := a.engine(); e != nil {
		return e.Redraw()
	}
	return false
}

// SaveSnapshot dumps the view to path.
func (a Adapter) SaveSnapshot(path string) error {
	e := a.engine()
	if e == nil {
		return ErrNotLoaded
	}
	s, ok := e.(Snapshotter)
	if !ok {
		return ErrSnapshotUnsupported
	}
	return s.SaveSnapshot(path)
}

// SetFrameSink attaches a sink to engines that present frames; false otherwise.
func (a Adapter) SetFrameSink(sink FrameSink) bool {
	p, ok := a.engine().(Presenter)
	if !ok {
		return false
	}
	p.SetFrameSink(sink)
	return true
}

// Apply dispatches a queued command to the matching engine call.
func (a Adapter) Apply(cmd command.Command) error {
	switch cmd.Kind {
	case command.KindInit:
		a.Init()
	case command.KindResize:
		a.Resize(cmd.Width, cmd.Height)
	case command.KindOpen:
		a.Open(cmd.Path)
	case command.KindAddTouch:
		a.AddTouch(cmd.Touch.ID, cmd.Touch.X, cmd.Touch.Y)
	case command.KindUpdateTouch:
		a.UpdateTouch(cmd.Touch.ID, cmd.Touch.X, cmd.Touch.Y)
	case command.KindRemoveTouch:
		a.RemoveTouch(cmd.Touch.ID)
	case command.KindSelect:
		a.Select(cmd.Touch.X, cmd.Touch.Y)
	case command.KindFitAll:
		a.FitAll()
	case command.KindSetProjection:
		a.SetProjection(cmd.Orientation)
	case command.KindSnapshot:
		if !a.Present() {
			return nil
		}
		return a.SaveSnapshot(cmd.Path)
	}
	return nil
}
