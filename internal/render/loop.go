// Package render runs the render goroutine that owns the graphics context and
// the viewer engine.
package render

import (
	"context"
	"image"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/engine"
	"github.com/frudas24/occtview/internal/glconfig"
)

// State is the lifecycle state of the loop's surface.
type State int32

const (
	// Uninitialized means no context exists.
	Uninitialized State = iota
	// ContextReady means the context exists and the engine was initialized.
	ContextReady
	// Active means the surface has a size and frames are drawn.
	Active
	// Inert means negotiation failed; the surface stays dark until destroyed.
	Inert
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case ContextReady:
		return "context_ready"
	case Active:
		return "active"
	case Inert:
		return "inert"
	default:
		return "uninitialized"
	}
}

// Options configures a Loop.
type Options struct {
	Queue    *command.Queue
	Platform glconfig.Platform
	Requests []glconfig.Request
	Engine   engine.LoadResult
	Density  float64
	// MinFrameInterval paces continuous mode; zero draws back to back.
	MinFrameInterval time.Duration
	Logger           *log.Logger
	// OnFrame is installed as the engine's frame sink and receives each
	// presented frame on the render goroutine.
	OnFrame func(img image.Image)
}

// Stats are loop counters.
type Stats struct {
	Frames      uint64
	Applied     uint64
	Discarded   uint64
	Generations uint64
}

// Context is the per-surface render state. It never leaves the render goroutine.
type Context struct {
	Config     glconfig.Config
	Engine     engine.Adapter
	Generation uint64
	Width      int
	Height     int
}

type eventKind int

const (
	evCreated eventKind = iota
	evChanged
	evDestroyed
)

type event struct {
	kind eventKind
	w, h int
}

// Loop drains the command queue and redraws on a dedicated OS thread.
type Loop struct {
	opts   Options
	logger *log.Logger

	events chan event
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	closeOnce sync.Once

	state       atomic.Int32
	frames      atomic.Uint64
	applied     atomic.Uint64
	discarded   atomic.Uint64
	generations atomic.Uint64

	// render goroutine only
	reg   *engine.Registry
	ctx   *Context
	pace  *time.Timer
	paceC <-chan time.Time
}

// New returns a loop; call Start to launch the render goroutine.
func New(opts Options) *Loop {
	if opts.Queue == nil {
		opts.Queue = command.NewQueue()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		opts:   opts,
		logger: logger,
		events: make(chan event, 16),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		reg:    engine.NewRegistry(),
	}
}

// Queue returns the command queue drained by the loop.
func (l *Loop) Queue() *command.Queue {
	return l.opts.Queue
}

// Start launches the render goroutine.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Close tears the surface down and stops the render goroutine.
func (l *Loop) Close(ctx context.Context) error {
	l.Start()
	l.closeOnce.Do(func() {
		close(l.quit)
	})
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestRender asks for one frame. Requests coalesce and never block.
func (l *Loop) RequestRender() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// SurfaceCreated posts a context creation event.
func (l *Loop) SurfaceCreated() {
	l.post(event{kind: evCreated})
}

// SurfaceChanged posts a surface size change.
func (l *Loop) SurfaceChanged(w, h int) {
	l.post(event{kind: evChanged, w: w, h: h})
}

// SurfaceDestroyed posts a context teardown event.
func (l *Loop) SurfaceDestroyed() {
	l.post(event{kind: evDestroyed})
}

// State returns the current surface state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:      l.frames.Load(),
		Applied:     l.applied.Load(),
		Discarded:   l.discarded.Load(),
		Generations: l.generations.Load(),
	}
}

// post delivers a lifecycle event unless the loop has stopped.
func (l *Loop) post(ev event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

// run is the render goroutine.
func (l *Loop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			l.drainEvents()
			l.teardown()
			return
		case ev := <-l.events:
			l.handle(ev)
		case <-l.wake:
			l.frame()
		case <-l.paceC:
			l.paceC = nil
			l.frame()
		}
	}
}

// drainEvents handles lifecycle events that are already pending so a frame
// never runs ahead of a posted resize or teardown.
func (l *Loop) drainEvents() {
	for {
		select {
		case ev := <-l.events:
			l.handle(ev)
		default:
			return
		}
	}
}

// handle applies a lifecycle event on the render goroutine.
func (l *Loop) handle(ev event) {
	switch ev.kind {
	case evCreated:
		l.create()
	case evChanged:
		l.resize(ev.w, ev.h)
	case evDestroyed:
		l.teardown()
	}
}

// create negotiates a config, builds a fresh Context and initializes the engine.
func (l *Loop) create() {
	if l.ctx != nil || l.State() == Inert {
		l.teardown()
	}

	cfg, err := glconfig.Negotiate(l.opts.Platform, l.opts.Requests, l.logger)
	if err != nil {
		l.logger.Printf("render: surface inert: %v", err)
		l.setState(Inert)
		return
	}

	gen := l.generations.Add(1)
	ctx := &Context{Config: cfg, Generation: gen, Engine: engine.NewAdapter(l.reg, 0)}
	if l.opts.Engine.Loaded() {
		e, err := l.opts.Engine.New(l.opts.Density)
		if err != nil {
			l.logger.Printf("render: create engine: %v", err)
		} else {
			ctx.Engine = engine.NewAdapter(l.reg, l.reg.Register(e))
		}
	}
	if l.opts.OnFrame != nil {
		ctx.Engine.SetFrameSink(l.opts.OnFrame)
	}
	l.ctx = ctx
	l.setState(ContextReady)

	if ctx.Engine.Present() && !ctx.Engine.Init() {
		l.logger.Printf("render: engine init failed (generation %d)", gen)
	}
	l.logger.Printf("render: context %d ready (config %d, %s)", gen, cfg.ID, cfg.Request)
}

// resize dispatches the new size immediately and activates the surface.
func (l *Loop) resize(w, h int) {
	if l.ctx == nil {
		return
	}
	l.ctx.Width, l.ctx.Height = w, h
	l.ctx.Engine.Resize(w, h)
	l.setState(Active)
	l.RequestRender()
}

// teardown drops pending commands and releases the engine.
func (l *Loop) teardown() {
	l.stopPace()
	if n := l.opts.Queue.Discard(); n > 0 {
		l.discarded.Add(uint64(n))
		l.logger.Printf("render: dropped %d pending commands", n)
	}
	if l.ctx != nil {
		l.reg.Release(l.ctx.Engine.Handle())
		l.logger.Printf("render: context %d destroyed", l.ctx.Generation)
		l.ctx = nil
	}
	l.setState(Uninitialized)
}

// frame applies every queued command, then redraws once.
func (l *Loop) frame() {
	l.drainEvents()

	switch l.State() {
	case Active:
	case Inert:
		if n := len(l.opts.Queue.DrainAll()); n > 0 {
			l.discarded.Add(uint64(n))
		}
		return
	default:
		return
	}

	start := time.Now()
	adapter := l.ctx.Engine
	for _, cmd := range l.opts.Queue.DrainAll() {
		if err := adapter.Apply(cmd); err != nil {
			l.logger.Printf("render: %s: %v", cmd, err)
		}
		l.applied.Add(1)
	}

	more := adapter.Redraw()
	l.frames.Add(1)
	if more {
		l.scheduleNext(start)
	}
}

// scheduleNext requests the next continuous-mode frame, honoring the pacing interval.
func (l *Loop) scheduleNext(frameStart time.Time) {
	wait := l.opts.MinFrameInterval - time.Since(frameStart)
	if wait <= 0 {
		l.RequestRender()
		return
	}
	if l.pace == nil {
		l.pace = time.NewTimer(wait)
	} else {
		l.pace.Reset(wait)
	}
	l.paceC = l.pace.C
}

// stopPace cancels a pending paced frame.
func (l *Loop) stopPace() {
	if l.pace != nil && !l.pace.Stop() {
		select {
		case <-l.pace.C:
		default:
		}
	}
	l.paceC = nil
}

// setState publishes the surface state.
func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}
