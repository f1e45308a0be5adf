// Package engine adapts the opaque 3D viewer engine to the render loop.
package engine

import (
	"errors"
	"image"
)

// Engine is the fixed command interface of a viewer engine. Implementations
// are not reentrant: every call must come from the render goroutine.
type Engine interface {
	// Init binds the engine to the current graphics context.
	Init() bool
	Resize(width, height int)
	// Open loads a model file and reports whether it succeeded.
	Open(path string) bool
	AddTouch(id int, x, y float64)
	UpdateTouch(id int, x, y float64)
	RemoveTouch(id int)
	Select(x, y float64)
	FitAll()
	SetProjection(dir Direction)
	// Redraw draws one frame and reports whether more frames are wanted.
	Redraw() bool
}

// Releaser is implemented by engines holding context resources.
type Releaser interface {
	Release()
}

// Snapshotter is implemented by engines that can dump the view to a file.
type Snapshotter interface {
	SaveSnapshot(path string) error
}

// FrameSink receives each presented frame. The image is reused by the next
// redraw, so a sink that keeps it must copy.
type FrameSink func(img image.Image)

// Presenter is implemented by engines that hand every redrawn frame to a
// sink, the way a swap presents a back buffer.
type Presenter interface {
	SetFrameSink(sink FrameSink)
}

// Factory creates an engine for a display density scale.
type Factory func(density float64) (Engine, error)

// ErrNotLoaded is reported when the engine library could not be loaded.
var ErrNotLoaded = errors.New("viewer engine not loaded")

// LoadResult is the outcome of loading the engine library.
type LoadResult struct {
	Name    string
	Version string
	Err     error
	factory Factory
}

// Load records a usable engine library.
func Load(name, version string, f Factory) LoadResult {
	if f == nil {
		return Unavailable(name, ErrNotLoaded)
	}
	return LoadResult{Name: name, Version: version, factory: f}
}

// Unavailable records a failed engine load.
func Unavailable(name string, err error) LoadResult {
	if err == nil {
		err = ErrNotLoaded
	}
	return LoadResult{Name: name, Err: err}
}

// Loaded reports whether engines can be created.
func (r LoadResult) Loaded() bool {
	return r.Err == nil && r.factory != nil
}

// New creates an engine instance.
func (r LoadResult) New(density float64) (Engine, error) {
	if !r.Loaded() {
		if r.Err != nil {
			return nil, r.Err
		}
		return nil, ErrNotLoaded
	}
	return r.factory(density)
}
