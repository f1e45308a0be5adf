package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/frudas24/occtview/internal/app"
	"github.com/frudas24/occtview/internal/config"
	"github.com/frudas24/occtview/internal/ffmpeg"
	"github.com/frudas24/occtview/internal/session"
	"github.com/frudas24/occtview/internal/signaling"
	"github.com/frudas24/occtview/internal/webrtc"
)

// run wires the application and blocks until shutdown.
func run(debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	webrtc.SetDebugLogging(debug)
	if debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		log.Printf("debug: enabled")
	}
	logStartup(cfg)

	policy, err := signaling.ParsePolicy(cfg.ViewerPolicy)
	if err != nil {
		return err
	}
	sess := session.New(cfg.UIPassword)
	encoder := ffmpeg.NewEncoder(ffmpeg.Options{
		FFmpegPath:  cfg.FFmpegPath,
		FPS:         cfg.FPS,
		BitrateKbps: cfg.BitrateKbps,
		Codec:       cfg.FFmpegCodec,
	})

	publisher, err := webrtc.NewPublisher()
	if err != nil {
		return err
	}

	appInstance, err := app.New(cfg, sess, encoder, publisher, policy)
	if err != nil {
		return err
	}
	if err := appInstance.Start(); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := appInstance.Stop(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	mux := http.NewServeMux()
	appInstance.RegisterRoutes(mux, "")
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Printf("shutdown: signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// logFatal prints and exits for startup failures.
func logFatal(err error) {
	log.Printf("fatal: %v", err)
	os.Exit(1)
}

// logStartup prints startup checks and connection info.
func logStartup(cfg config.Config) {
	log.Printf("occtview starting")
	logEnvStatus(cfg)
	log.Printf("engine: %s, video: %s, surface %dx%d", cfg.Engine, cfg.VideoMode, cfg.SurfaceWidth, cfg.SurfaceHeight)
	logDirStatus("models dir", cfg.ModelsDir)
	if cfg.VideoMode == config.VideoWebRTC {
		logFFmpegStatus(cfg.FFmpegPath)
	}
	logListenStatus(cfg.ListenAddr)
}

// logEnvStatus reports whether the .env and surface files were found.
func logEnvStatus(cfg config.Config) {
	envPath := filepath.Join(cfg.DataDir, ".env")
	if fileExists(envPath) {
		log.Printf("env check: ok (%s)", envPath)
	} else {
		log.Printf("env check: missing (%s)", envPath)
	}
	if fileExists(cfg.SurfaceConfig) {
		log.Printf("surface config: %s (%d requests)", cfg.SurfaceConfig, len(cfg.SurfaceRequests))
	} else {
		log.Printf("surface config: defaults")
	}
}

// logDirStatus reports whether a directory exists.
func logDirStatus(label, path string) {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		log.Printf("%s: missing (%s)", label, path)
	case !info.IsDir():
		log.Printf("%s: not a directory (%s)", label, path)
	default:
		log.Printf("%s: ok (%s)", label, path)
	}
}

// logFFmpegStatus reports whether the ffmpeg binary is discoverable.
func logFFmpegStatus(path string) {
	resolved := path
	ok := false
	note := ""

	if filepath.IsAbs(path) {
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			ok = true
		case err != nil:
			note = err.Error()
		default:
			note = "path is a directory"
		}
	} else {
		found, err := exec.LookPath(path)
		switch {
		case err == nil:
			ok = true
			resolved = found
		case errors.Is(err, exec.ErrDot):
			note = "found relative to current dir; use absolute path"
		default:
			note = err.Error()
		}
	}

	if ok {
		log.Printf("ffmpeg check: ok (%s)", resolved)
		return
	}
	if note != "" {
		log.Printf("ffmpeg check: missing (%s)", note)
		return
	}
	log.Printf("ffmpeg check: missing")
}

// logListenStatus reports the listen address and a local URL helper.
func logListenStatus(addr string) {
	log.Printf("listen addr: %s", addr)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	log.Printf("local url: http://%s", net.JoinHostPort(host, port))
}

// fileExists reports whether a path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
