package signaling

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	pub "github.com/frudas24/occtview/internal/webrtc"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
)

// Server negotiates the rendered video stream with one browser viewer.
type Server struct {
	publisher *pub.Publisher
	authFn    func() bool
	upgrader  websocket.Upgrader
	slot      viewerSlot

	sizeMu  sync.Mutex
	sizeFn  func() (int, int)
	epoch   atomic.Uint64
	dropped atomic.Uint64
}

// NewServer creates a signaling server with the chosen viewer policy and auth function.
func NewServer(publisher *pub.Publisher, policy ViewerPolicy, authFn func() bool) *Server {
	s := &Server{
		publisher: publisher,
		authFn:    authFn,
		slot:      viewerSlot{policy: policy},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.epoch.Store(1)
	return s
}

// SetSurfaceFunc sets where the server reads the encoded surface size from.
func (s *Server) SetSurfaceFunc(fn func() (int, int)) {
	s.sizeMu.Lock()
	s.sizeFn = fn
	s.sizeMu.Unlock()
}

// Stream returns the current stream description.
func (s *Server) Stream() Stream {
	s.sizeMu.Lock()
	fn := s.sizeFn
	s.sizeMu.Unlock()
	st := Stream{Epoch: s.epoch.Load()}
	if fn != nil {
		st.Width, st.Height = fn()
	}
	return st
}

// StaleOffers returns how many offers were ignored for an outdated epoch.
func (s *Server) StaleOffers() uint64 {
	return s.dropped.Load()
}

// ServeHTTP upgrades the request, announces the stream and runs the
// signaling loop until the socket closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.authFn != nil && !s.authFn() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.slot.claim(conn); err != nil {
		refuse(conn, err.Error())
		return
	}
	defer s.slot.release(conn)

	peer, err := s.openPeer(conn)
	if err != nil {
		log.Printf("signaling: new peer: %v", err)
		return
	}
	st := s.Stream()
	if err := s.slot.send(conn, Message{T: MsgReady, Stream: &st}); err != nil {
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if peer, err = s.dispatch(conn, peer, msg); err != nil {
			log.Printf("signaling: %s: %v", msg.T, err)
			return
		}
	}
}

// NotifyRestart starts a new stream epoch and asks the viewer to
// renegotiate for it, e.g. after the encoder restarted for a new size.
func (s *Server) NotifyRestart(reason string) {
	s.epoch.Add(1)
	conn := s.slot.current()
	if conn == nil {
		return
	}
	st := s.Stream()
	_ = s.slot.send(conn, Message{T: MsgRestart, Reason: reason, Stream: &st})
}

// Active reports whether a viewer is connected.
func (s *Server) Active() bool {
	return s.slot.current() != nil
}

// openPeer creates the viewer's peer connection and trickles local ICE.
func (s *Server) openPeer(conn *websocket.Conn) (*webrtc.PeerConnection, error) {
	peer, err := s.publisher.NewPeer()
	if err != nil {
		return nil, err
	}
	if err := s.slot.bind(conn, peer); err != nil {
		_ = peer.Close()
		return nil, err
	}
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("signaling: peer %s", state)
	})
	peer.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		candidate := c.ToJSON()
		_ = s.slot.send(conn, Message{T: MsgICE, Candidate: &candidate})
	})
	return peer, nil
}

// dispatch handles one viewer message and returns the peer to use next.
// Offers for an old epoch are ignored; an offer after a completed
// negotiation comes from a fresh browser peer and gets a fresh peer here.
func (s *Server) dispatch(conn *websocket.Conn, peer *webrtc.PeerConnection, msg Message) (*webrtc.PeerConnection, error) {
	switch msg.T {
	case MsgOffer:
		if cur := s.epoch.Load(); msg.Epoch != 0 && msg.Epoch != cur {
			s.dropped.Add(1)
			log.Printf("signaling: stale offer for epoch %d (current %d)", msg.Epoch, cur)
			return peer, nil
		}
		if peer.RemoteDescription() != nil {
			next, err := s.openPeer(conn)
			if err != nil {
				return peer, err
			}
			peer = next
		}
		return peer, s.answer(conn, peer, msg.SDP)
	case MsgICE:
		if msg.Candidate == nil {
			return peer, nil
		}
		return peer, peer.AddICECandidate(*msg.Candidate)
	default:
		return peer, nil
	}
}

// answer applies the viewer's offer and replies once ICE gathering is done.
func (s *Server) answer(conn *websocket.Conn, peer *webrtc.PeerConnection, sdp string) error {
	if sdp == "" {
		return errors.New("empty offer")
	}
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := peer.SetRemoteDescription(offer); err != nil {
		return err
	}
	reply, err := peer.CreateAnswer(nil)
	if err != nil {
		return err
	}
	gathered := webrtc.GatheringCompletePromise(peer)
	if err := peer.SetLocalDescription(reply); err != nil {
		return err
	}
	<-gathered
	local := peer.LocalDescription()
	if local == nil {
		return errors.New("missing local description")
	}
	return s.slot.send(conn, Message{T: MsgAnswer, SDP: local.SDP})
}
