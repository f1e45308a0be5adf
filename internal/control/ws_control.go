package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/filepicker"
	"github.com/frudas24/occtview/internal/gesture"
	"github.com/frudas24/occtview/internal/session"
	"github.com/frudas24/occtview/internal/viewstate"
	"github.com/gorilla/websocket"
)

// ErrInvalidMessage marks a message that is rejected without closing the connection.
var ErrInvalidMessage = errors.New("invalid control message")

// Viewer is the part of the viewer the control channel drives.
type Viewer interface {
	HandleTouch(ev gesture.Event) error
	Open(path string) error
	FitAll() error
	SetProjection(o command.Orientation) error
	Snapshot(path string) error
	SetDensity(density float64)
	SurfaceChanged(width, height int)
}

// Settings are the filesystem and size limits used by the control server.
type Settings struct {
	ModelsDir   string
	SnapshotDir string
	MaxSurface  viewstate.Size
}

// Server handles control input from the websocket and the WebRTC data channel.
type Server struct {
	mu               sync.Mutex
	upgrader         websocket.Upgrader
	session          *session.Session
	viewer           Viewer
	settings         Settings
	onPipelineChange func(reason string)
	saveState        func(viewstate.State) error
	conn             *websocket.Conn

	inputMu  sync.Mutex
	pointers *PointerTracker
}

// NewServer creates a control server.
func NewServer(sess *session.Session, viewer Viewer, settings Settings, onPipelineChange func(reason string), saveState func(viewstate.State) error) *Server {
	return &Server{
		session:  sess,
		viewer:   viewer,
		settings: settings,
		pointers: NewPointerTracker(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		onPipelineChange: onPipelineChange,
		saveState:        saveState,
	}
}

// ServeHTTP upgrades the connection and processes control messages.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAuthenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.acceptConn(conn); err != nil {
		_ = conn.Close()
		return
	}
	defer s.cleanupConn(conn)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if err := s.HandleMessage(msg); err != nil {
			if errors.Is(err, ErrInvalidMessage) {
				log.Printf("control: %v", err)
				continue
			}
			log.Printf("control: closing connection: %v", err)
			return
		}
	}
}

// acceptConn ensures only one active control connection exists.
func (s *Server) acceptConn(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return fmt.Errorf("control connection already active")
	}
	s.conn = conn
	return nil
}

// cleanupConn clears the active connection and releases its pointers.
func (s *Server) cleanupConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
	s.ReleasePointers()
}

// HandleJSON decodes and dispatches a raw control message.
func (s *Server) HandleJSON(data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return s.HandleMessage(msg)
}

// HandleMessage dispatches a single control message.
func (s *Server) HandleMessage(msg Message) error {
	switch msg.T {
	case MsgHello:
		if msg.Density > 0 {
			s.session.SetDensity(msg.Density)
			s.viewer.SetDensity(msg.Density)
		}
		return nil
	case MsgDown, MsgMove, MsgUp, MsgCancel, MsgCancelAll:
		return s.handleTouch(msg)
	case MsgProjection:
		return s.handleProjection(msg.Dir)
	case MsgOpen:
		return s.handleOpen(msg.Path)
	case MsgFitAll:
		return s.viewer.FitAll()
	case MsgSnapshot:
		_, err := s.TakeSnapshot()
		return err
	case MsgResize:
		return s.handleResize(msg.W, msg.H)
	case MsgSetVideo:
		s.session.SetVideoMode(msg.Video)
		s.notifyPipeline("video")
		return nil
	case MsgInputEnabled:
		if msg.Enabled != nil {
			s.session.SetInputEnabled(*msg.Enabled)
			if !*msg.Enabled {
				s.ReleasePointers()
			}
		}
		return nil
	default:
		return nil
	}
}

// handleTouch maps a pointer message to surface pixels and feeds the viewer.
func (s *Server) handleTouch(msg Message) error {
	if !s.session.InputEnabled() {
		return nil
	}
	w, h := s.session.Surface()
	p := PointToSurface(Pointer{ID: msg.ID, X: msg.X, Y: msg.Y}, w, h)

	s.inputMu.Lock()
	defer s.inputMu.Unlock()
	var evs []gesture.Event
	switch msg.T {
	case MsgDown:
		evs = s.pointers.Down(p)
	case MsgMove:
		if len(msg.Pointers) == 0 {
			evs = s.pointers.Move(p)
			break
		}
		batch := make([]command.TouchPoint, len(msg.Pointers))
		for i, ptr := range msg.Pointers {
			batch[i] = PointToSurface(ptr, w, h)
		}
		evs = s.pointers.MoveBatch(batch)
	case MsgUp:
		evs = s.pointers.Up(p)
	case MsgCancel:
		evs = s.pointers.Cancel(p)
	case MsgCancelAll:
		evs = s.pointers.CancelAll()
	}
	return s.applyEvents(evs)
}

// ReleasePointers cancels every active pointer, as a system cancel would.
func (s *Server) ReleasePointers() {
	s.inputMu.Lock()
	defer s.inputMu.Unlock()
	if s.pointers.Active() == 0 {
		return
	}
	if err := s.applyEvents(s.pointers.CancelAll()); err != nil {
		log.Printf("control: release pointers: %v", err)
	}
}

// applyEvents forwards touch events to the viewer in order.
func (s *Server) applyEvents(evs []gesture.Event) error {
	for _, ev := range evs {
		if err := s.viewer.HandleTouch(ev); err != nil {
			return err
		}
	}
	return nil
}

// handleProjection switches the camera to a named orientation.
func (s *Server) handleProjection(dir string) error {
	o, err := command.ParseOrientation(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := s.viewer.SetProjection(o); err != nil {
		return err
	}
	s.session.SetProjection(o.String())
	s.persist()
	return nil
}

// handleOpen resolves a model name under the models directory and opens it.
func (s *Server) handleOpen(name string) error {
	path, err := filepicker.Resolve(s.settings.ModelsDir, name)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrInvalidMessage, err)
	}
	if err := s.viewer.Open(path); err != nil {
		return err
	}
	s.session.SetLastFile(name)
	s.persist()
	return nil
}

// TakeSnapshot requests a snapshot into the snapshot directory and returns its file name.
func (s *Server) TakeSnapshot() (string, error) {
	name := fmt.Sprintf("view-%s.png", time.Now().Format("20060102-150405.000"))
	if err := s.viewer.Snapshot(filepath.Join(s.settings.SnapshotDir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// handleResize changes the render surface size.
func (s *Server) handleResize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: resize %dx%d", ErrInvalidMessage, w, h)
	}
	size := viewstate.Clamp(viewstate.Size{W: w, H: h}, viewstate.Size{W: w, H: h}, s.settings.MaxSurface)
	if cw, ch := s.session.Surface(); cw == size.W && ch == size.H {
		return nil
	}
	s.ReleasePointers()
	s.session.SetSurface(size.W, size.H)
	s.viewer.SurfaceChanged(size.W, size.H)
	s.persist()
	s.notifyPipeline("resize")
	return nil
}

// persist saves the restorable view state.
func (s *Server) persist() {
	if s.saveState == nil {
		return
	}
	if err := s.saveState(s.session.View()); err != nil {
		log.Printf("control: save view state: %v", err)
	}
}

// notifyPipeline notifies the app about pipeline-relevant changes.
func (s *Server) notifyPipeline(reason string) {
	if s.onPipelineChange != nil {
		s.onPipelineChange(reason)
	}
}
