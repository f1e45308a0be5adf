package signaling

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
)

// errViewerBusy is returned when the reject policy turns a viewer away.
var errViewerBusy = errors.New("viewer already connected")

// ViewerPolicy controls how additional viewers are handled.
type ViewerPolicy int

const (
	// ViewerReject rejects new connections when one is active.
	ViewerReject ViewerPolicy = iota
	// ViewerReplace closes the active connection when a new one arrives.
	ViewerReplace
)

// ParsePolicy maps a config value to a ViewerPolicy.
func ParsePolicy(s string) (ViewerPolicy, error) {
	switch s {
	case "", "replace":
		return ViewerReplace, nil
	case "reject":
		return ViewerReject, nil
	default:
		return ViewerReject, fmt.Errorf("unknown viewer policy %q", s)
	}
}

// viewerSlot holds the single connected viewer and its peer connection.
// Writes to the socket are serialized because pion callbacks and the
// pipeline both send.
type viewerSlot struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	policy  ViewerPolicy
	conn    *websocket.Conn
	peer    *webrtc.PeerConnection
}

// claim makes conn the active viewer, evicting or refusing the current one.
func (v *viewerSlot) claim(conn *websocket.Conn) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn != nil {
		if v.policy != ViewerReplace {
			return errViewerBusy
		}
		_ = v.conn.Close()
		v.conn, v.peer = nil, nil
	}
	v.conn = conn
	return nil
}

// bind stores the peer for conn; it fails once conn has been replaced.
func (v *viewerSlot) bind(conn *websocket.Conn, peer *webrtc.PeerConnection) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn != conn {
		return errors.New("connection no longer active")
	}
	v.peer = peer
	return nil
}

// release clears the slot if conn still owns it and closes the socket.
func (v *viewerSlot) release(conn *websocket.Conn) {
	v.mu.Lock()
	if v.conn == conn {
		if v.peer != nil {
			_ = v.peer.Close()
		}
		v.conn, v.peer = nil, nil
	}
	v.mu.Unlock()
	_ = conn.Close()
}

// current returns the active connection, or nil.
func (v *viewerSlot) current() *websocket.Conn {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conn
}

// send writes msg to conn while it is still the active viewer.
func (v *viewerSlot) send(conn *websocket.Conn, msg Message) error {
	if v.current() != conn {
		return errors.New("connection not active")
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// refuse closes conn with a policy violation.
func refuse(conn *websocket.Conn, reason string) {
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	_ = conn.Close()
}
