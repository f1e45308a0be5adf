package session

import "testing"

// TestAuthenticate_Success verifies successful authentication.
func TestAuthenticate_Success(t *testing.T) {
	s := New("secret")
	if !s.Authenticate("secret") {
		t.Fatalf("expected authentication to succeed")
	}
	if !s.IsAuthenticated() {
		t.Fatalf("expected authenticated state")
	}
}

// TestAuthenticate_Fail verifies failed authentication.
func TestAuthenticate_Fail(t *testing.T) {
	s := New("secret")
	if s.Authenticate("nope") {
		t.Fatalf("expected authentication to fail")
	}
	if s.IsAuthenticated() {
		t.Fatalf("expected unauthenticated state")
	}
}

// TestLogout verifies logout clears auth state.
func TestLogout(t *testing.T) {
	s := New("secret")
	s.Authenticate("secret")
	s.Logout()
	if s.IsAuthenticated() {
		t.Fatalf("expected unauthenticated state")
	}
}

// TestInputEnabled_Toggle verifies input enabled toggle.
func TestInputEnabled_Toggle(t *testing.T) {
	s := New("secret")
	s.SetInputEnabled(false)
	if s.InputEnabled() {
		t.Fatalf("expected input disabled")
	}
	s.SetInputEnabled(true)
	if !s.InputEnabled() {
		t.Fatalf("expected input enabled")
	}
}

// TestSnapshot verifies snapshot content.
func TestSnapshot(t *testing.T) {
	s := New("secret")
	s.Authenticate("secret")
	s.SetInputEnabled(false)
	s.SetDensity(2.5)
	s.SetSurface(800, 600)
	s.SetLastFile("parts/a.stl")
	s.SetProjection("top")
	snap := s.Snapshot()
	if !snap.Authenticated || snap.InputEnabled || snap.Density != 2.5 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.View.Surface.W != 800 || snap.View.LastFile != "parts/a.stl" || snap.View.Projection != "top" {
		t.Fatalf("unexpected view state: %+v", snap.View)
	}
}

// TestSetDensity_IgnoresInvalid verifies non-positive densities are ignored.
func TestSetDensity_IgnoresInvalid(t *testing.T) {
	s := New("secret")
	s.SetDensity(0)
	s.SetDensity(-3)
	if s.Density() != 1 {
		t.Fatalf("expected default density, got %v", s.Density())
	}
}

// TestVideoMode verifies unknown modes select WebRTC.
func TestVideoMode(t *testing.T) {
	s := New("secret")
	if s.VideoMode() != VideoMJPEG {
		t.Fatalf("expected mjpeg by default, got %q", s.VideoMode())
	}
	s.SetVideoMode("h264")
	if s.VideoMode() != VideoWebRTC {
		t.Fatalf("expected webrtc, got %q", s.VideoMode())
	}
}
