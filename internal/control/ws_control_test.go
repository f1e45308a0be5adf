package control

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/gesture"
	"github.com/frudas24/occtview/internal/session"
	"github.com/frudas24/occtview/internal/viewstate"
	"github.com/gorilla/websocket"
)

// recordingViewer records the calls made by the control server.
type recordingViewer struct {
	mu      sync.Mutex
	events  []gesture.Event
	opened  []string
	proj    []command.Orientation
	shots   []string
	fits    int
	density float64
	sizes   [][2]int
}

func (v *recordingViewer) HandleTouch(ev gesture.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, ev)
	return nil
}

func (v *recordingViewer) Open(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opened = append(v.opened, path)
	return nil
}

func (v *recordingViewer) FitAll() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fits++
	return nil
}

func (v *recordingViewer) SetProjection(o command.Orientation) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proj = append(v.proj, o)
	return nil
}

func (v *recordingViewer) Snapshot(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shots = append(v.shots, path)
	return nil
}

func (v *recordingViewer) SetDensity(d float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.density = d
}

func (v *recordingViewer) SurfaceChanged(w, h int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sizes = append(v.sizes, [2]int{w, h})
}

func (v *recordingViewer) phases() []gesture.Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]gesture.Phase, len(v.events))
	for i, ev := range v.events {
		out[i] = ev.Phase
	}
	return out
}

func newTestServer(t *testing.T) (*Server, *recordingViewer, *session.Session, *[]viewstate.State) {
	t.Helper()
	sess := session.New("pw")
	sess.SetSurface(101, 201)
	viewer := &recordingViewer{}
	var saved []viewstate.State
	models := t.TempDir()
	if err := os.WriteFile(filepath.Join(models, "part.stl"), []byte("solid x"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	s := NewServer(sess, viewer, Settings{
		ModelsDir:   models,
		SnapshotDir: filepath.Join(t.TempDir(), "snapshots"),
		MaxSurface:  viewstate.Size{W: 1920, H: 1080},
	}, nil, func(st viewstate.State) error {
		saved = append(saved, st)
		return nil
	})
	return s, viewer, sess, &saved
}

// TestHandleMessage_TouchMapsToSurface verifies normalized touches reach the viewer in pixels.
func TestHandleMessage_TouchMapsToSurface(t *testing.T) {
	s, viewer, _, _ := newTestServer(t)
	if err := s.HandleMessage(Message{T: MsgDown, ID: 1, X: 0.5, Y: 0.5}); err != nil {
		t.Fatalf("down failed: %v", err)
	}
	if err := s.HandleMessage(Message{T: MsgUp, ID: 1, X: 0.5, Y: 0.5}); err != nil {
		t.Fatalf("up failed: %v", err)
	}
	got := viewer.phases()
	if len(got) != 2 || got[0] != gesture.PhaseDown || got[1] != gesture.PhaseUp {
		t.Fatalf("unexpected phases %v", got)
	}
	if p := viewer.events[0].Pointer; p.X != 50 || p.Y != 100 {
		t.Fatalf("expected (50,100), got %+v", p)
	}
}

// TestHandleMessage_InputDisabled verifies the kill switch blocks touches.
func TestHandleMessage_InputDisabled(t *testing.T) {
	s, viewer, sess, _ := newTestServer(t)
	sess.SetInputEnabled(false)
	_ = s.HandleMessage(Message{T: MsgDown, ID: 1})
	if len(viewer.phases()) != 0 {
		t.Fatalf("expected no events, got %v", viewer.phases())
	}
}

// TestHandleMessage_DisableReleasesPointers verifies disabling input cancels active touches.
func TestHandleMessage_DisableReleasesPointers(t *testing.T) {
	s, viewer, _, _ := newTestServer(t)
	_ = s.HandleMessage(Message{T: MsgDown, ID: 1})
	off := false
	_ = s.HandleMessage(Message{T: MsgInputEnabled, Enabled: &off})
	got := viewer.phases()
	if len(got) != 2 || got[1] != gesture.PhaseCancelAll {
		t.Fatalf("expected down+cancel_all, got %v", got)
	}
}

// TestHandleMessage_Projection verifies projection names reach the viewer and are persisted.
func TestHandleMessage_Projection(t *testing.T) {
	s, viewer, sess, saved := newTestServer(t)
	if err := s.HandleMessage(Message{T: MsgProjection, Dir: "Bottom"}); err != nil {
		t.Fatalf("proj failed: %v", err)
	}
	if len(viewer.proj) != 1 || viewer.proj[0] != command.Bottom {
		t.Fatalf("unexpected projections %v", viewer.proj)
	}
	if sess.View().Projection != "bottom" || len(*saved) != 1 {
		t.Fatalf("expected persisted projection, got %+v saved=%d", sess.View(), len(*saved))
	}

	err := s.HandleMessage(Message{T: MsgProjection, Dir: "diagonal"})
	if err == nil || !strings.Contains(err.Error(), ErrInvalidMessage.Error()) {
		t.Fatalf("expected invalid message error, got %v", err)
	}
}

// TestHandleMessage_Open verifies only allowed files under the models directory are opened.
func TestHandleMessage_Open(t *testing.T) {
	s, viewer, sess, _ := newTestServer(t)
	if err := s.HandleMessage(Message{T: MsgOpen, Path: "part.stl"}); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(viewer.opened) != 1 || filepath.Base(viewer.opened[0]) != "part.stl" {
		t.Fatalf("unexpected opens %v", viewer.opened)
	}
	if sess.View().LastFile != "part.stl" {
		t.Fatalf("expected last file recorded, got %+v", sess.View())
	}
	for _, bad := range []string{"../part.stl", "notes.txt", "missing.step"} {
		if err := s.HandleMessage(Message{T: MsgOpen, Path: bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if len(viewer.opened) != 1 {
		t.Fatalf("expected rejected files not to be opened, got %v", viewer.opened)
	}
}

// TestHandleMessage_Resize verifies resize clamps and notifies the pipeline.
func TestHandleMessage_Resize(t *testing.T) {
	s, viewer, sess, _ := newTestServer(t)
	var reasons []string
	s.onPipelineChange = func(r string) { reasons = append(reasons, r) }

	if err := s.HandleMessage(Message{T: MsgResize, W: 4000, H: 600}); err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if w, h := sess.Surface(); w != 1920 || h != 600 {
		t.Fatalf("expected 1920x600, got %dx%d", w, h)
	}
	if len(viewer.sizes) != 1 || len(reasons) != 1 || reasons[0] != "resize" {
		t.Fatalf("unexpected resize side effects sizes=%v reasons=%v", viewer.sizes, reasons)
	}
	_ = s.HandleMessage(Message{T: MsgResize, W: 1920, H: 600})
	if len(viewer.sizes) != 1 {
		t.Fatalf("expected unchanged size to be ignored")
	}
	if err := s.HandleMessage(Message{T: MsgResize}); err == nil {
		t.Fatalf("expected error for empty resize")
	}
}

// TestHandleJSON_HelloAndSnapshot verifies raw data channel payloads.
func TestHandleJSON_HelloAndSnapshot(t *testing.T) {
	s, viewer, sess, _ := newTestServer(t)
	if err := s.HandleJSON([]byte(`{"t":"hello","density":3}`)); err != nil {
		t.Fatalf("hello failed: %v", err)
	}
	if viewer.density != 3 || sess.Density() != 3 {
		t.Fatalf("expected density 3, got viewer=%v session=%v", viewer.density, sess.Density())
	}
	if err := s.HandleJSON([]byte(`{"t":"snapshot"}`)); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(viewer.shots) != 1 || filepath.Ext(viewer.shots[0]) != ".png" {
		t.Fatalf("unexpected snapshots %v", viewer.shots)
	}
	if err := s.HandleJSON([]byte(`{not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

// TestServeHTTP_SingleConnection verifies auth, message flow and the single-connection rule.
func TestServeHTTP_SingleConnection(t *testing.T) {
	s, viewer, sess, _ := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got err=%v resp=%v", err, resp)
	}

	sess.Authenticate("pw")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(Message{T: MsgFitAll}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		viewer.mu.Lock()
		fits := viewer.fits
		viewer.mu.Unlock()
		if fits == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("fitAll never reached the viewer")
		}
		time.Sleep(5 * time.Millisecond)
	}

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("second dial failed: %v", err)
	}
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatalf("expected second connection to be closed")
	}
}
