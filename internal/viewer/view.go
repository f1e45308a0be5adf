// Package viewer is the surface view: it owns the command queue, the gesture
// classifier and the render loop, and exposes the viewer operations.
package viewer

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/engine"
	"github.com/frudas24/occtview/internal/gesture"
	"github.com/frudas24/occtview/internal/glconfig"
	"github.com/frudas24/occtview/internal/render"
)

// Options configures a View.
type Options struct {
	Engine           engine.LoadResult
	Platform         glconfig.Platform
	Requests         []glconfig.Request
	Density          float64
	QueueLimit       int
	MinFrameInterval time.Duration
	Logger           *log.Logger
	OnFrame          func(image.Image)
}

// View wires input to the render loop. Input methods may be called from any
// goroutine; they are serialized so the classifier never runs concurrently.
type View struct {
	info   engine.LoadResult
	logger *log.Logger
	queue  *command.Queue
	loop   *render.Loop

	inputMu    sync.Mutex
	classifier *gesture.Classifier
}

// New builds a view and starts its render goroutine.
func New(opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	q := command.NewQueue()
	if opts.QueueLimit > 0 {
		q = command.NewBoundedQueue(opts.QueueLimit)
	}
	v := &View{
		info:       opts.Engine,
		logger:     logger,
		queue:      q,
		classifier: gesture.NewClassifier(opts.Density),
	}
	v.loop = render.New(render.Options{
		Queue:            q,
		Platform:         opts.Platform,
		Requests:         opts.Requests,
		Engine:           opts.Engine,
		Density:          v.classifier.Density(),
		MinFrameInterval: opts.MinFrameInterval,
		Logger:           logger,
		OnFrame:          opts.OnFrame,
	})
	if !opts.Engine.Loaded() {
		logger.Printf("viewer: engine %q unavailable, viewer disabled: %v", opts.Engine.Name, opts.Engine.Err)
	}
	v.loop.Start()
	return v
}

// Engine returns the engine load result.
func (v *View) Engine() engine.LoadResult {
	return v.info
}

// Loaded reports whether viewer operations reach an engine.
func (v *View) Loaded() bool {
	return v.info.Loaded()
}

// HandleTouch classifies a touch event and enqueues the resulting commands.
func (v *View) HandleTouch(ev gesture.Event) error {
	if !v.Loaded() {
		return nil
	}
	v.inputMu.Lock()
	cmds := v.classifier.Handle(ev)
	var err error
	for _, cmd := range cmds {
		if err = v.queue.Enqueue(cmd); err != nil {
			break
		}
	}
	v.inputMu.Unlock()
	if len(cmds) > 0 {
		v.loop.RequestRender()
	}
	if err != nil {
		return fmt.Errorf("viewer: %s: %w", ev.Phase, err)
	}
	return nil
}

// Open asks the engine to load a model file.
func (v *View) Open(path string) error {
	return v.submit(command.Open(path))
}

// FitAll fits the camera to the model.
func (v *View) FitAll() error {
	return v.submit(command.FitAll())
}

// SetProjection moves the camera to a fixed orientation.
func (v *View) SetProjection(o command.Orientation) error {
	if !o.Valid() {
		return fmt.Errorf("viewer: invalid orientation %d", int(o))
	}
	return v.submit(command.SetProjection(o))
}

// Snapshot saves the next frame to path.
func (v *View) Snapshot(path string) error {
	return v.submit(command.Snapshot(path))
}

// submit enqueues one command and requests a frame.
func (v *View) submit(cmd command.Command) error {
	if !v.Loaded() {
		return nil
	}
	if err := v.queue.Enqueue(cmd); err != nil {
		return fmt.Errorf("viewer: %s: %w", cmd.Kind, err)
	}
	v.loop.RequestRender()
	return nil
}

// SetDensity updates the tap threshold for subsequent gestures.
func (v *View) SetDensity(density float64) {
	v.inputMu.Lock()
	v.classifier.SetDensity(density)
	v.inputMu.Unlock()
}

// Density returns the classifier density.
func (v *View) Density() float64 {
	v.inputMu.Lock()
	defer v.inputMu.Unlock()
	return v.classifier.Density()
}

// GestureState returns the classifier state.
func (v *View) GestureState() gesture.State {
	v.inputMu.Lock()
	defer v.inputMu.Unlock()
	return v.classifier.State()
}

// SurfaceCreated forwards surface creation to the render loop.
func (v *View) SurfaceCreated() {
	v.loop.SurfaceCreated()
}

// SurfaceChanged forwards a surface size change to the render loop.
func (v *View) SurfaceChanged(width, height int) {
	v.loop.SurfaceChanged(width, height)
}

// SurfaceDestroyed forwards surface teardown and resets the gesture state.
func (v *View) SurfaceDestroyed() {
	v.inputMu.Lock()
	v.classifier.Reset()
	v.inputMu.Unlock()
	v.loop.SurfaceDestroyed()
}

// RequestRender asks for a frame without enqueueing a command.
func (v *View) RequestRender() {
	v.loop.RequestRender()
}

// State returns the render surface state.
func (v *View) State() render.State {
	return v.loop.State()
}

// Stats returns render loop counters.
func (v *View) Stats() render.Stats {
	return v.loop.Stats()
}

// Close stops the render loop.
func (v *View) Close(ctx context.Context) error {
	return v.loop.Close(ctx)
}
