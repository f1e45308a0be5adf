package app

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/frudas24/occtview/internal/filepicker"
	"github.com/frudas24/occtview/internal/web"
)

// RegisterRoutes wires API and static handlers onto the mux.
func (a *App) RegisterRoutes(mux *http.ServeMux, staticDir string) {
	if staticDir == "" {
		staticDir = filepath.Join("internal", "web", "static")
	}

	mux.HandleFunc("/login", a.handleLogin)
	mux.HandleFunc("/logout", a.handleLogout)
	mux.HandleFunc("/api/state", a.handleState)
	mux.HandleFunc("/api/files", a.handleFiles)
	mux.HandleFunc("/api/snapshot", a.handleSnapshot)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.Handle("/snapshots/", a.authorized(http.StripPrefix("/snapshots/", http.FileServer(http.Dir(a.cfg.SnapshotDir)))))
	mux.Handle("/ws/signal", a.Signaling())
	mux.Handle("/ws/control", a.Control())
	mux.HandleFunc("/favicon.ico", handleFavicon)
	if stream := a.Stream(); stream != nil {
		mux.Handle("/mjpeg/view", a.authorized(http.HandlerFunc(stream.Handler)))
		mux.Handle("/mjpeg/frame", a.authorized(http.HandlerFunc(stream.SnapshotHandler)))
	}

	mux.Handle("/", staticFileServer(staticDir))
}

type loginRequest struct {
	Password string `json:"password"`
}

type engineStatus struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Loaded  bool   `json:"loaded"`
	Error   string `json:"error,omitempty"`
}

type renderStatus struct {
	State       string `json:"state"`
	Frames      uint64 `json:"frames"`
	Applied     uint64 `json:"applied"`
	Discarded   uint64 `json:"discarded"`
	Generations uint64 `json:"generations"`
}

type stateResponse struct {
	Authenticated bool         `json:"authenticated"`
	InputEnabled  bool         `json:"inputEnabled"`
	VideoMode     string       `json:"videoMode"`
	Density       float64      `json:"density"`
	Surface       surfaceSize  `json:"surface"`
	LastFile      string       `json:"lastFile,omitempty"`
	Projection    string       `json:"projection,omitempty"`
	Gesture       string       `json:"gesture"`
	Engine        engineStatus `json:"engine"`
	Render        renderStatus `json:"render"`
	RTPPackets    uint64       `json:"rtpPackets"`
	StreamEpoch   uint64       `json:"streamEpoch"`
}

type surfaceSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type snapshotResponse struct {
	File string `json:"file"`
	URL  string `json:"url"`
}

type configRequest struct {
	MJPEGIntervalMs *int `json:"mjpegIntervalMs"`
	MJPEGQuality    *int `json:"mjpegQuality"`
	Reset           bool `json:"reset"`
}

type configResponse struct {
	Applied         bool `json:"applied"`
	MJPEGIntervalMs int  `json:"mjpegIntervalMs"`
	MJPEGQuality    int  `json:"mjpegQuality"`
}

// handleLogin authenticates the session.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !a.session.Authenticate(req.Password) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// handleLogout clears authentication state.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.session.Logout()
	writeJSON(w, map[string]bool{"ok": true})
}

// handleState returns session, engine and render state.
func (a *App) handleState(w http.ResponseWriter, _ *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	snap := a.session.Snapshot()
	info := a.view.Engine()
	stats := a.view.Stats()
	resp := stateResponse{
		Authenticated: snap.Authenticated,
		InputEnabled:  snap.InputEnabled,
		VideoMode:     snap.VideoMode,
		Density:       snap.Density,
		Surface:       surfaceSize{W: snap.View.Surface.W, H: snap.View.Surface.H},
		LastFile:      snap.View.LastFile,
		Projection:    snap.View.Projection,
		Gesture:       a.view.GestureState().Mode.String(),
		Engine: engineStatus{
			Name:    info.Name,
			Version: info.Version,
			Loaded:  info.Loaded(),
		},
		Render: renderStatus{
			State:       a.view.State().String(),
			Frames:      stats.Frames,
			Applied:     stats.Applied,
			Discarded:   stats.Discarded,
			Generations: stats.Generations,
		},
		RTPPackets:  a.publisher.Forwarded(),
		StreamEpoch: a.signaling.Stream().Epoch,
	}
	if info.Err != nil {
		resp.Engine.Error = info.Err.Error()
	}
	writeJSON(w, resp)
}

// handleFiles lists openable models.
func (a *App) handleFiles(w http.ResponseWriter, _ *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	list, err := filepicker.List(a.cfg.ModelsDir)
	if err != nil {
		log.Printf("app: list models: %v", err)
		http.Error(w, "failed to list models", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []filepicker.Entry{}
	}
	writeJSON(w, list)
}

// handleSnapshot requests a snapshot of the current view.
func (a *App) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.requireAuth(w) {
		return
	}
	name, err := a.control.TakeSnapshot()
	if err != nil {
		log.Printf("app: snapshot: %v", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snapshotResponse{File: name, URL: "/snapshots/" + name})
}

// handleConfig updates or resets the runtime MJPEG settings.
func (a *App) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, a.mjpegConfig(false))
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	interval, quality := a.defaultMJPEG.intervalMs, a.defaultMJPEG.quality
	if !req.Reset {
		cur := a.mjpegConfig(false)
		interval, quality = cur.MJPEGIntervalMs, cur.MJPEGQuality
		if req.MJPEGIntervalMs != nil {
			interval = *req.MJPEGIntervalMs
		}
		if req.MJPEGQuality != nil {
			quality = *req.MJPEGQuality
		}
	}
	if interval < 10 || interval > 5000 {
		http.Error(w, "mjpegIntervalMs must be 10-5000", http.StatusBadRequest)
		return
	}
	if quality < 1 || quality > 100 {
		http.Error(w, "mjpegQuality must be 1-100", http.StatusBadRequest)
		return
	}

	a.mu.Lock()
	a.cfg.MJPEGIntervalMs = interval
	a.cfg.MJPEGQuality = quality
	a.mu.Unlock()
	a.stream.SetMinInterval(time.Duration(interval) * time.Millisecond)
	if a.feeder != nil {
		a.feeder.SetQuality(quality)
	}
	a.view.RequestRender()
	writeJSON(w, a.mjpegConfig(true))
}

// mjpegConfig returns the current runtime MJPEG settings.
func (a *App) mjpegConfig(applied bool) configResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return configResponse{
		Applied:         applied,
		MJPEGIntervalMs: a.cfg.MJPEGIntervalMs,
		MJPEGQuality:    a.cfg.MJPEGQuality,
	}
}

// requireAuth returns false and writes an error if the session is not authenticated.
func (a *App) requireAuth(w http.ResponseWriter) bool {
	if !a.session.IsAuthenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// authorized wraps a handler with the session check.
func (a *App) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.requireAuth(w) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// staticFileServer returns a handler for static assets, preferring disk then embed.
func staticFileServer(staticDir string) http.Handler {
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	embedded, err := web.StaticFS()
	if err != nil {
		log.Printf("static assets unavailable: %v", err)
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(embedded))
}

// handleFavicon avoids noisy 404s for the default browser request.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
