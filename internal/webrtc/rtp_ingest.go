package webrtc

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

const (
	// videoClockRate is the RTP clock of H.264 video.
	videoClockRate = 90000
	// maxTimestampJump bounds the forwarded timestamp delta; larger input
	// jumps come from an encoder restart and are replaced by one frame step.
	maxTimestampJump = 2 * videoClockRate
	// fallbackTimestampStep is one frame at 30 fps.
	fallbackTimestampStep = videoClockRate / 30
	// debugEvery is the packet interval between debug log lines.
	debugEvery = 500
)

// rtpWriteParams overrides header fields on forwarded packets when non-zero.
type rtpWriteParams struct {
	payloadType uint8
	ssrc        uint32
}

// rtpRewriter keeps the outgoing sequence and timestamps continuous across
// encoder restarts, which each start a fresh RTP session.
type rtpRewriter struct {
	mu        sync.Mutex
	started   bool
	seq       uint16
	lastIn    uint32
	outTS     uint32
	forwarded uint64
}

// Apply rewrites p in place.
func (rw *rtpRewriter) Apply(p *rtp.Packet, params rtpWriteParams) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.started {
		rw.started = true
		rw.seq = p.SequenceNumber
		rw.lastIn = p.Timestamp
		rw.outTS = p.Timestamp
	} else {
		rw.seq++
		if p.Timestamp != rw.lastIn {
			delta := p.Timestamp - rw.lastIn
			if delta > maxTimestampJump {
				delta = fallbackTimestampStep
			}
			rw.outTS += delta
			rw.lastIn = p.Timestamp
		}
	}
	rw.forwarded++
	p.SequenceNumber = rw.seq
	p.Timestamp = rw.outTS
	if params.payloadType != 0 {
		p.PayloadType = params.payloadType
	}
	if params.ssrc != 0 {
		p.SSRC = params.ssrc
	}
}

// count returns the number of rewritten packets.
func (rw *rtpRewriter) count() uint64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.forwarded
}

type rtpListener struct {
	mu       sync.Mutex
	conn     *net.UDPConn
	rewriter *rtpRewriter
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// newRTPListener binds a UDP port for RTP ingestion.
func newRTPListener(port int, rewriter *rtpRewriter) (*rtpListener, error) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &rtpListener{conn: conn, rewriter: rewriter}, nil
}

// start begins forwarding RTP packets into the provided track.
func (l *rtpListener) start(track *webrtc.TrackLocalStaticRTP) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return fmt.Errorf("rtp listener not initialized")
	}
	if l.running {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true
	go l.loop(l.ctx, l.conn, track)
	return nil
}

// stop cancels the forward loop.
func (l *rtpListener) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.running = false
}

// close stops forwarding and closes the UDP socket, unblocking the loop.
func (l *rtpListener) close() {
	l.stop()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
}

// loop reads RTP packets and forwards them to the track.
func (l *rtpListener) loop(ctx context.Context, conn *net.UDPConn, track *webrtc.TrackLocalStaticRTP) {
	buf := make([]byte, 1600)
	var n uint64
	for {
		size, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:size]); err != nil {
			continue
		}
		l.rewriter.Apply(&pkt, rtpWriteParams{})
		if err := track.WriteRTP(&pkt); err != nil && debugRTPEnabled() {
			log.Printf("webrtc: write rtp: %v", err)
		}
		n++
		if debugRTPEnabled() && n%debugEvery == 0 {
			log.Printf("webrtc: forwarded %d packets (seq=%d ts=%d)", n, pkt.SequenceNumber, pkt.Timestamp)
		}
	}
}
