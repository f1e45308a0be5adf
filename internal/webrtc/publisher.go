package webrtc

import (
	"fmt"
	"log"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
)

// ControlLabel is the data channel label carrying control messages.
const ControlLabel = "control"

// InputHandler receives control messages from the data channel.
type InputHandler interface {
	HandleJSON(data []byte) error
	ReleasePointers()
}

// Publisher manages the WebRTC peer connection, video track and control channel.
type Publisher struct {
	mu    sync.Mutex
	api   *webrtc.API
	peer  *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticRTP
	input InputHandler

	rewriter    *rtpRewriter
	rtpListener *rtpListener
}

// NewPublisher initializes a WebRTC publisher with default codecs/interceptors.
func NewPublisher() (*Publisher, error) {
	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	interceptors := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(media, interceptors); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(media),
		webrtc.WithInterceptorRegistry(interceptors),
	)

	return &Publisher{api: api, rewriter: &rtpRewriter{}}, nil
}

// SetInputHandler routes data channel messages to h.
func (p *Publisher) SetInputHandler(h InputHandler) {
	p.mu.Lock()
	p.input = h
	p.mu.Unlock()
}

// Track returns the H264 RTP track, creating it if needed.
func (p *Publisher) Track() (*webrtc.TrackLocalStaticRTP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureTrack()
}

// NewPeer creates a new peer connection, attaches the video track and
// accepts the browser's control data channel.
func (p *Publisher) NewPeer() (*webrtc.PeerConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.peer != nil {
		_ = p.peer.Close()
		p.peer = nil
	}

	peer, err := p.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, err
	}

	track, err := p.ensureTrack()
	if err != nil {
		_ = peer.Close()
		return nil, err
	}

	sender, err := peer.AddTrack(track)
	if err != nil {
		_ = peer.Close()
		return nil, err
	}

	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, rtcpErr := sender.Read(buf); rtcpErr != nil {
				return
			}
		}
	}()

	peer.OnDataChannel(p.attachDataChannel)
	p.peer = peer
	return peer, nil
}

// attachDataChannel wires the control channel to the input handler.
func (p *Publisher) attachDataChannel(dc *webrtc.DataChannel) {
	if dc.Label() != ControlLabel {
		log.Printf("webrtc: ignoring data channel %q", dc.Label())
		return
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if h := p.inputHandler(); h != nil {
			if err := h.HandleJSON(msg.Data); err != nil {
				log.Printf("webrtc: control message: %v", err)
			}
		}
	})
	dc.OnClose(func() {
		if h := p.inputHandler(); h != nil {
			h.ReleasePointers()
		}
	})
}

// inputHandler returns the current input handler.
func (p *Publisher) inputHandler() InputHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input
}

// ClosePeer closes the current peer connection.
func (p *Publisher) ClosePeer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		_ = p.peer.Close()
		p.peer = nil
	}
}

// AttachRTP binds a local UDP port for RTP ingest, replacing any previous one.
func (p *Publisher) AttachRTP(port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rtpListener != nil {
		p.rtpListener.close()
		p.rtpListener = nil
	}

	listener, err := newRTPListener(port, p.rewriter)
	if err != nil {
		return err
	}
	p.rtpListener = listener
	return nil
}

// StartForwarding begins forwarding RTP packets into the WebRTC track.
func (p *Publisher) StartForwarding() error {
	p.mu.Lock()
	listener := p.rtpListener
	track, err := p.ensureTrack()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if listener == nil {
		return fmt.Errorf("rtp listener not ready")
	}
	return listener.start(track)
}

// StopForwarding stops RTP forwarding and releases the UDP port.
func (p *Publisher) StopForwarding() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rtpListener != nil {
		p.rtpListener.close()
		p.rtpListener = nil
	}
}

// Forwarded returns the number of RTP packets written to the track.
func (p *Publisher) Forwarded() uint64 {
	return p.rewriter.count()
}

// ensureTrack initializes the track if it does not already exist.
func (p *Publisher) ensureTrack() (*webrtc.TrackLocalStaticRTP, error) {
	if p.track != nil {
		return p.track, nil
	}
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"video",
		"occtview",
	)
	if err != nil {
		return nil, err
	}
	p.track = track
	return track, nil
}
