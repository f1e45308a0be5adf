// Package config loads environment configuration for the viewer server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/frudas24/occtview/internal/glconfig"
)

const (
	defaultListenAddr      = "0.0.0.0:8787"
	defaultDataDir         = "./data"
	defaultFFmpegPath      = "ffmpeg"
	defaultEngine          = "preview"
	defaultVideoMode       = VideoMJPEG
	defaultSurfaceWidth    = 1280
	defaultSurfaceHeight   = 720
	defaultMaxSurface      = 3840
	defaultFPS             = 30
	defaultBitrateKbps     = 4000
	defaultMJPEGEnabled    = true
	defaultMJPEGIntervalMs = 50
	defaultMJPEGQuality    = 70
	defaultSurfaceMaxDepth = 24
	defaultViewerPolicy    = "replace"
)

// Video modes.
const (
	VideoMJPEG  = "mjpeg"
	VideoWebRTC = "webrtc"
)

// Config holds runtime configuration values.
type Config struct {
	ListenAddr      string
	UIPassword      string
	DataDir         string
	ModelsDir       string
	StatePath       string
	SnapshotDir     string
	SurfaceConfig   string
	Engine          string
	SurfaceWidth    int
	SurfaceHeight   int
	MaxSurface      int
	Density         float64
	FPS             int
	VideoMode       string
	FFmpegPath      string
	FFmpegCodec     string
	BitrateKbps     int
	MJPEGEnabled    bool
	MJPEGIntervalMs int
	MJPEGQuality    int
	SurfaceMaxDepth int
	QueueLimit      int
	ViewerPolicy    string
	// SurfaceRequests is the ordered configuration preference list.
	SurfaceRequests []glconfig.Request
}

// Load reads configuration from <DATA_DIR>/.env, environment variables and
// the optional surface preference file.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      defaultListenAddr,
		DataDir:         envString("DATA_DIR", defaultDataDir),
		FFmpegPath:      defaultFFmpegPath,
		Engine:          defaultEngine,
		VideoMode:       defaultVideoMode,
		SurfaceWidth:    defaultSurfaceWidth,
		SurfaceHeight:   defaultSurfaceHeight,
		MaxSurface:      defaultMaxSurface,
		FPS:             defaultFPS,
		BitrateKbps:     defaultBitrateKbps,
		MJPEGEnabled:    defaultMJPEGEnabled,
		MJPEGIntervalMs: defaultMJPEGIntervalMs,
		MJPEGQuality:    defaultMJPEGQuality,
		SurfaceMaxDepth: defaultSurfaceMaxDepth,
		ViewerPolicy:    defaultViewerPolicy,
	}

	if err := loadEnvFile(filepath.Join(cfg.DataDir, ".env")); err != nil {
		return Config{}, err
	}

	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ModelsDir = envString("MODELS_DIR", filepath.Join(cfg.DataDir, "models"))
	cfg.StatePath = envString("STATE_PATH", filepath.Join(cfg.DataDir, "view.json"))
	cfg.SnapshotDir = envString("SNAPSHOT_DIR", filepath.Join(cfg.DataDir, "snapshots"))
	cfg.SurfaceConfig = envString("SURFACE_CONFIG", filepath.Join(cfg.DataDir, "surface.yaml"))
	cfg.FFmpegPath = envString("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFmpegCodec = envString("FFMPEG_CODEC", "")
	cfg.Engine = strings.ToLower(envString("ENGINE", cfg.Engine))
	cfg.ViewerPolicy = strings.ToLower(envString("VIEWER_POLICY", cfg.ViewerPolicy))
	cfg.UIPassword = strings.TrimSpace(os.Getenv("UI_PASSWORD"))
	cfg.MJPEGEnabled = envBool("MJPEG_ENABLED", cfg.MJPEGEnabled)

	mode, err := normalizeVideoMode(envString("VIDEO_MODE", cfg.VideoMode))
	if err != nil {
		return Config{}, err
	}
	cfg.VideoMode = mode

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"SURFACE_WIDTH", &cfg.SurfaceWidth, 2},
		{"SURFACE_HEIGHT", &cfg.SurfaceHeight, 2},
		{"SURFACE_MAX", &cfg.MaxSurface, 2},
		{"FPS", &cfg.FPS, 1},
		{"BITRATE_KBPS", &cfg.BitrateKbps, 1},
		{"MJPEG_INTERVAL_MS", &cfg.MJPEGIntervalMs, 0},
		{"MJPEG_QUALITY", &cfg.MJPEGQuality, 1},
		{"SURFACE_MAX_DEPTH", &cfg.SurfaceMaxDepth, 0},
		{"QUEUE_LIMIT", &cfg.QueueLimit, 0},
	}
	for _, f := range ints {
		v, err := envInt(f.key, *f.dst)
		if err != nil {
			return Config{}, err
		}
		if v < f.min {
			return Config{}, fmt.Errorf("%s must be >= %d", f.key, f.min)
		}
		*f.dst = v
	}
	if cfg.MJPEGQuality > 100 {
		return Config{}, fmt.Errorf("MJPEG_QUALITY must be 1-100")
	}
	if cfg.SurfaceWidth > cfg.MaxSurface || cfg.SurfaceHeight > cfg.MaxSurface {
		return Config{}, fmt.Errorf("SURFACE_WIDTH/HEIGHT must not exceed SURFACE_MAX (%d)", cfg.MaxSurface)
	}

	density, err := envFloat("DENSITY", 0)
	if err != nil {
		return Config{}, err
	}
	if density < 0 {
		return Config{}, fmt.Errorf("DENSITY must be >= 0")
	}
	cfg.Density = density

	requests, err := LoadSurfaceFile(cfg.SurfaceConfig)
	if err != nil {
		return Config{}, err
	}
	cfg.SurfaceRequests = requests

	if cfg.UIPassword == "" {
		return Config{}, errors.New("UI_PASSWORD is required")
	}
	if cfg.VideoMode == VideoMJPEG && !cfg.MJPEGEnabled {
		return Config{}, errors.New("VIDEO_MODE=mjpeg requires MJPEG_ENABLED")
	}

	return cfg, nil
}

// normalizeVideoMode validates a VIDEO_MODE value.
func normalizeVideoMode(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case VideoMJPEG:
		return VideoMJPEG, nil
	case VideoWebRTC:
		return VideoWebRTC, nil
	default:
		return "", fmt.Errorf("VIDEO_MODE must be %q or %q", VideoMJPEG, VideoWebRTC)
	}
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns an int env override when present, otherwise a default.
func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

// envFloat returns a float env override when present, otherwise a default.
func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}

// envBool returns a bool env override when present, otherwise a default.
func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// loadEnvFile loads KEY=VALUE pairs from a .env file. Variables already set
// in the environment win.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseEnvLine parses a single .env line into key/value.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
