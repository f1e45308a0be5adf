// Package testutil provides fakes shared by package tests.
package testutil

import (
	"fmt"
	"image"
	"sync"

	"github.com/frudas24/occtview/internal/engine"
)

// Call records a single engine call.
type Call struct {
	Name string
	ID   int
	X    float64
	Y    float64
	W    int
	H    int
	Path string
	Dir  engine.Direction
}

// String renders the call compactly for assertions.
func (c Call) String() string {
	switch c.Name {
	case "AddTouch", "UpdateTouch":
		return fmt.Sprintf("%s(%d,%g,%g)", c.Name, c.ID, c.X, c.Y)
	case "RemoveTouch":
		return fmt.Sprintf("%s(%d)", c.Name, c.ID)
	case "Select":
		return fmt.Sprintf("%s(%g,%g)", c.Name, c.X, c.Y)
	case "Resize":
		return fmt.Sprintf("%s(%d,%d)", c.Name, c.W, c.H)
	case "Open", "SaveSnapshot":
		return fmt.Sprintf("%s(%s)", c.Name, c.Path)
	case "SetProjection":
		return fmt.Sprintf("%s(%s)", c.Name, c.Dir)
	default:
		return c.Name
	}
}

// FakeEngine implements engine.Engine and records calls. Redraw returns the
// scripted results in order, then false.
type FakeEngine struct {
	mu       sync.Mutex
	calls    []Call
	redraws  []bool
	released bool
	frame    image.Image
	sink     engine.FrameSink
	// OnRedraw runs inside Redraw, after the call is recorded.
	OnRedraw func(n int)
}

// Ensure FakeEngine implements the engine interfaces.
var (
	_ engine.Engine      = (*FakeEngine)(nil)
	_ engine.Releaser    = (*FakeEngine)(nil)
	_ engine.Snapshotter = (*FakeEngine)(nil)
	_ engine.Presenter   = (*FakeEngine)(nil)
)

// NewFakeEngine returns a fake whose Redraw yields results in order.
func NewFakeEngine(redraws ...bool) *FakeEngine {
	return &FakeEngine{redraws: redraws, frame: image.NewRGBA(image.Rect(0, 0, 2, 2))}
}

// Calls returns a copy of the recorded calls.
func (f *FakeEngine) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Names returns the recorded call names.
func (f *FakeEngine) Names() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Name
	}
	return out
}

// Count returns how many calls named name were recorded.
func (f *FakeEngine) Count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (f *FakeEngine) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// Released reports whether Release was called.
func (f *FakeEngine) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// record appends a call.
func (f *FakeEngine) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Init records initialization.
func (f *FakeEngine) Init() bool {
	f.record(Call{Name: "Init"})
	return true
}

// Resize records a resize.
func (f *FakeEngine) Resize(w, h int) {
	f.record(Call{Name: "Resize", W: w, H: h})
}

// Open records a model open.
func (f *FakeEngine) Open(path string) bool {
	f.record(Call{Name: "Open", Path: path})
	return true
}

// AddTouch records a touch start.
func (f *FakeEngine) AddTouch(id int, x, y float64) {
	f.record(Call{Name: "AddTouch", ID: id, X: x, Y: y})
}

// UpdateTouch records a touch move.
func (f *FakeEngine) UpdateTouch(id int, x, y float64) {
	f.record(Call{Name: "UpdateTouch", ID: id, X: x, Y: y})
}

// RemoveTouch records a touch end.
func (f *FakeEngine) RemoveTouch(id int) {
	f.record(Call{Name: "RemoveTouch", ID: id})
}

// Select records a pick.
func (f *FakeEngine) Select(x, y float64) {
	f.record(Call{Name: "Select", X: x, Y: y})
}

// FitAll records a fit-all.
func (f *FakeEngine) FitAll() {
	f.record(Call{Name: "FitAll"})
}

// SetProjection records a projection change.
func (f *FakeEngine) SetProjection(dir engine.Direction) {
	f.record(Call{Name: "SetProjection", Dir: dir})
}

// Redraw records a redraw and returns the next scripted result.
func (f *FakeEngine) Redraw() bool {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: "Redraw"})
	more := false
	if len(f.redraws) > 0 {
		more = f.redraws[0]
		f.redraws = f.redraws[1:]
	}
	n := 0
	for _, c := range f.calls {
		if c.Name == "Redraw" {
			n++
		}
	}
	hook := f.OnRedraw
	sink := f.sink
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	if sink != nil {
		sink(f.frame)
	}
	return more
}

// Script appends Redraw results.
func (f *FakeEngine) Script(results ...bool) {
	f.mu.Lock()
	f.redraws = append(f.redraws, results...)
	f.mu.Unlock()
}

// SaveSnapshot records a snapshot request.
func (f *FakeEngine) SaveSnapshot(path string) error {
	f.record(Call{Name: "SaveSnapshot", Path: path})
	return nil
}

// SetFrameSink stores the sink that Redraw presents the placeholder frame to.
// It is setup, not an engine call, so it is not recorded.
func (f *FakeEngine) SetFrameSink(sink engine.FrameSink) {
	f.mu.Lock()
	f.sink = sink
	f.mu.Unlock()
}

// Release records resource release.
func (f *FakeEngine) Release() {
	f.mu.Lock()
	f.released = true
	f.mu.Unlock()
}
