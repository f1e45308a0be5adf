// Package app wires the viewer, HTTP, signaling and video pipeline together.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/frudas24/occtview/internal/config"
	"github.com/frudas24/occtview/internal/control"
	"github.com/frudas24/occtview/internal/display"
	"github.com/frudas24/occtview/internal/engine"
	"github.com/frudas24/occtview/internal/engine/preview"
	"github.com/frudas24/occtview/internal/ffmpeg"
	"github.com/frudas24/occtview/internal/filepicker"
	"github.com/frudas24/occtview/internal/glconfig"
	"github.com/frudas24/occtview/internal/mjpeg"
	"github.com/frudas24/occtview/internal/session"
	"github.com/frudas24/occtview/internal/signaling"
	"github.com/frudas24/occtview/internal/viewer"
	"github.com/frudas24/occtview/internal/viewstate"
	"github.com/frudas24/occtview/internal/webrtc"
)

// mjpegDefaults are the MJPEG settings from the environment, restored by a
// config reset.
type mjpegDefaults struct {
	intervalMs int
	quality    int
}

// App coordinates the viewer, the HTTP API, websocket servers and the video pipeline.
type App struct {
	mu           sync.Mutex
	cfg          config.Config
	defaultMJPEG mjpegDefaults
	session      *session.Session
	view         *viewer.View
	encoder      *ffmpeg.Encoder
	publisher    *webrtc.Publisher
	signaling    *signaling.Server
	control      *control.Server
	stream       *mjpeg.Stream
	feeder       *mjpeg.Feeder
}

// New creates a new application with its dependencies wired. The render
// goroutine starts immediately; Start creates the surface.
func New(cfg config.Config, sess *session.Session, encoder *ffmpeg.Encoder, publisher *webrtc.Publisher, policy signaling.ViewerPolicy) (*App, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if encoder == nil {
		return nil, errors.New("ffmpeg encoder is required")
	}
	if publisher == nil {
		return nil, errors.New("webrtc publisher is required")
	}
	eng, err := loadEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	density := hostDensity(cfg.Density)
	sess.SetDensity(density)
	sess.SetVideoMode(cfg.VideoMode)

	a := &App{
		cfg:          cfg,
		defaultMJPEG: mjpegDefaults{intervalMs: cfg.MJPEGIntervalMs, quality: cfg.MJPEGQuality},
		session:      sess,
		encoder:      encoder,
		publisher:    publisher,
		stream:       mjpeg.NewStream(time.Duration(cfg.MJPEGIntervalMs) * time.Millisecond),
	}
	if cfg.MJPEGEnabled {
		a.feeder = mjpeg.NewFeeder(a.stream, cfg.MJPEGQuality, cfg.FPS)
	}

	var frameInterval time.Duration
	if cfg.FPS > 0 {
		frameInterval = time.Second / time.Duration(cfg.FPS)
	}
	a.view = viewer.New(viewer.Options{
		Engine:           eng,
		Platform:         glconfig.NewSoftwarePlatform(cfg.SurfaceMaxDepth),
		Requests:         cfg.SurfaceRequests,
		Density:          density,
		QueueLimit:       cfg.QueueLimit,
		MinFrameInterval: frameInterval,
		OnFrame:          a.onFrame,
	})

	a.control = control.NewServer(sess, a.view, control.Settings{
		ModelsDir:   cfg.ModelsDir,
		SnapshotDir: cfg.SnapshotDir,
		MaxSurface:  viewstate.Size{W: cfg.MaxSurface, H: cfg.MaxSurface},
	}, a.onPipelineChange, a.saveState)
	publisher.SetInputHandler(a.control)
	a.signaling = signaling.NewServer(publisher, policy, sess.IsAuthenticated)
	a.signaling.SetSurfaceFunc(sess.Surface)
	return a, nil
}

// loadEngine resolves the configured engine library.
func loadEngine(name string) (engine.LoadResult, error) {
	switch name {
	case "", preview.Name:
		return preview.Load(log.Default()), nil
	case "none":
		return engine.Unavailable(name, engine.ErrNotLoaded), nil
	default:
		return engine.LoadResult{}, fmt.Errorf("unknown engine %q", name)
	}
}

// hostDensity returns the configured density, or the primary display's.
func hostDensity(configured float64) float64 {
	if configured > 0 {
		return configured
	}
	list, err := display.List()
	if err != nil {
		log.Printf("app: display density unavailable, using 1: %v", err)
		return 1
	}
	return display.HostDensity(list, 1)
}

// Start restores the last view, creates the surface and starts the video pipeline.
func (a *App) Start() error {
	st, err := viewstate.Load(a.cfg.StatePath)
	if err != nil {
		log.Printf("app: view state ignored: %v", err)
		st = viewstate.State{}
	}
	def := viewstate.Size{W: a.cfg.SurfaceWidth, H: a.cfg.SurfaceHeight}
	st.Surface = viewstate.Clamp(st.Surface, def, viewstate.Size{W: a.cfg.MaxSurface, H: a.cfg.MaxSurface})
	a.session.SetView(st)

	a.view.SurfaceCreated()
	a.view.SurfaceChanged(st.Surface.W, st.Surface.H)
	a.restore(st)

	return a.RestartPipeline("startup")
}

// restore reopens the last model and projection.
func (a *App) restore(st viewstate.State) {
	if st.LastFile != "" {
		path, err := filepicker.Resolve(a.cfg.ModelsDir, st.LastFile)
		switch {
		case err != nil:
			log.Printf("app: last file %q not restored: %v", st.LastFile, err)
		default:
			if err := a.view.Open(path); err != nil {
				log.Printf("app: reopen %s: %v", st.LastFile, err)
			}
		}
	}
	if o, ok := st.Orientation(); ok {
		if err := a.view.SetProjection(o); err != nil {
			log.Printf("app: restore projection: %v", err)
		}
	}
}

// Stop tears the surface and pipeline down and stops the render goroutine.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	a.publisher.StopForwarding()
	a.publisher.ClosePeer()
	encErr := a.encoder.Stop()
	a.mu.Unlock()

	if a.feeder != nil {
		a.feeder.Close()
	}
	a.view.SurfaceDestroyed()
	return errors.Join(encErr, a.view.Close(ctx))
}

// RestartPipeline stops the encoder and RTP forwarding and starts the
// pipeline for the current video mode and surface size.
func (a *App) RestartPipeline(reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.publisher.StopForwarding()
	if err := a.encoder.Stop(); err != nil {
		return err
	}

	mode := a.session.VideoMode()
	w, h := a.session.Surface()
	log.Printf("app: pipeline %s %dx%d (%s)", mode, w, h, reason)
	if mode == session.VideoWebRTC {
		port, err := a.encoder.Start(w, h)
		if err != nil {
			return err
		}
		if err := a.publisher.AttachRTP(port); err != nil {
			return err
		}
		if err := a.publisher.StartForwarding(); err != nil {
			return err
		}
		a.signaling.NotifyRestart(reason)
	}
	a.view.RequestRender()
	return nil
}

// onPipelineChange restarts the pipeline after a control change.
func (a *App) onPipelineChange(reason string) {
	if err := a.RestartPipeline(reason); err != nil {
		log.Printf("app: pipeline restart (%s): %v", reason, err)
	}
}

// onFrame routes a rendered frame to the active sinks. It runs on the
// render goroutine and must not block.
func (a *App) onFrame(img image.Image) {
	if a.feeder != nil && (a.session.VideoMode() == session.VideoMJPEG || a.stream.Subscribers() > 0) {
		a.feeder.Offer(img)
	}
	if a.session.VideoMode() == session.VideoWebRTC {
		_ = a.encoder.Offer(img)
	}
}

// saveState persists the restorable view state.
func (a *App) saveState(st viewstate.State) error {
	return viewstate.Save(a.cfg.StatePath, st)
}

// View returns the viewer.
func (a *App) View() *viewer.View {
	return a.view
}

// Signaling returns the signaling websocket handler.
func (a *App) Signaling() *signaling.Server {
	return a.signaling
}

// Control returns the control websocket handler.
func (a *App) Control() *control.Server {
	return a.control
}

// Stream returns the MJPEG stream, or nil when MJPEG is disabled.
func (a *App) Stream() *mjpeg.Stream {
	if a.feeder == nil {
		return nil
	}
	return a.stream
}
