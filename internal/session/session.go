// Package session holds runtime state for the active viewer client.
package session

import (
	"sync"

	"github.com/frudas24/occtview/internal/viewstate"
)

// VideoWebRTC streams frames as an H.264 WebRTC track.
const VideoWebRTC = "webrtc"

// VideoMJPEG streams frames as multipart JPEG.
const VideoMJPEG = "mjpeg"

// Snapshot represents a read-only view of the current session state.
type Snapshot struct {
	Authenticated bool
	InputEnabled  bool
	VideoMode     string
	Density       float64
	View          viewstate.State
}

// Session holds runtime state for the active viewer client.
type Session struct {
	mu            sync.RWMutex
	password      string
	authenticated bool
	inputEnabled  bool
	videoMode     string
	density       float64
	view          viewstate.State
}

// New returns an initialized session with the given password.
func New(password string) *Session {
	return &Session{
		password:     password,
		inputEnabled: true,
		videoMode:    VideoMJPEG,
		density:      1,
	}
}

// Authenticate validates the password and marks the session as authenticated.
func (s *Session) Authenticate(pass string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pass != "" && pass == s.password {
		s.authenticated = true
		return true
	}
	s.authenticated = false
	return false
}

// Logout clears authentication state.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
}

// IsAuthenticated reports whether the session is authenticated.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// SetInputEnabled toggles whether touches reach the viewer.
func (s *Session) SetInputEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputEnabled = enabled
}

// InputEnabled reports whether touches reach the viewer.
func (s *Session) InputEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputEnabled
}

// SetVideoMode sets which video pipeline the server should run.
func (s *Session) SetVideoMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case VideoMJPEG:
		s.videoMode = VideoMJPEG
	default:
		s.videoMode = VideoWebRTC
	}
}

// VideoMode returns the active video pipeline mode.
func (s *Session) VideoMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.videoMode == "" {
		return VideoMJPEG
	}
	return s.videoMode
}

// SetDensity records the client-reported display density.
func (s *Session) SetDensity(density float64) {
	if density <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.density = density
}

// Density returns the client display density.
func (s *Session) Density() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.density
}

// SetSurface records the render surface size.
func (s *Session) SetSurface(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Surface = viewstate.Size{W: w, H: h}
}

// Surface returns the render surface size.
func (s *Session) Surface() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Surface.W, s.view.Surface.H
}

// SetLastFile records the last opened model.
func (s *Session) SetLastFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.LastFile = name
}

// SetProjection records the last projection name.
func (s *Session) SetProjection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Projection = name
}

// SetView replaces the restorable view state.
func (s *Session) SetView(v viewstate.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// View returns the restorable view state.
func (s *Session) View() viewstate.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Authenticated: s.authenticated,
		InputEnabled:  s.inputEnabled,
		VideoMode:     s.videoMode,
		Density:       s.density,
		View:          s.view,
	}
}
