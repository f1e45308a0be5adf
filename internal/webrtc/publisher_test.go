package webrtc

import (
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
)

// recordingInput records data channel payloads.
type recordingInput struct {
	mu       sync.Mutex
	msgs     []string
	released int
}

func (r *recordingInput) HandleJSON(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, string(data))
	return nil
}

func (r *recordingInput) ReleasePointers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
}

func (r *recordingInput) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...), r.released
}

// connectClient negotiates a browser-like peer against the publisher and
// returns its control channel, closed when it opens.
func connectClient(t *testing.T, pub *Publisher) (*webrtc.PeerConnection, *webrtc.DataChannel, <-chan struct{}) {
	t.Helper()
	client, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("client peer: %v", err)
	}
	dc, err := client.CreateDataChannel(ControlLabel, nil)
	if err != nil {
		t.Fatalf("data channel: %v", err)
	}
	opened := make(chan struct{})
	dc.OnOpen(func() { close(opened) })
	if _, err := client.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
		t.Fatalf("transceiver: %v", err)
	}

	offer, err := client.CreateOffer(nil)
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	gathered := webrtc.GatheringCompletePromise(client)
	if err := client.SetLocalDescription(offer); err != nil {
		t.Fatalf("client local: %v", err)
	}
	<-gathered

	server, err := pub.NewPeer()
	if err != nil {
		t.Fatalf("server peer: %v", err)
	}
	if err := server.SetRemoteDescription(*client.LocalDescription()); err != nil {
		t.Fatalf("server remote: %v", err)
	}
	answer, err := server.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	serverGathered := webrtc.GatheringCompletePromise(server)
	if err := server.SetLocalDescription(answer); err != nil {
		t.Fatalf("server local: %v", err)
	}
	<-serverGathered
	if err := client.SetRemoteDescription(*server.LocalDescription()); err != nil {
		t.Fatalf("client remote: %v", err)
	}
	return client, dc, opened
}

// TestPublisherControlChannel verifies data channel messages reach the input handler.
func TestPublisherControlChannel(t *testing.T) {
	pub, err := NewPublisher()
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	input := &recordingInput{}
	pub.SetInputHandler(input)
	defer pub.ClosePeer()

	client, dc, opened := connectClient(t, pub)
	defer client.Close()

	select {
	case <-opened:
	case <-time.After(10 * time.Second):
		t.Fatalf("control channel never opened")
	}
	if err := dc.SendText(`{"t":"fitAll"}`); err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		msgs, _ := input.snapshot()
		if len(msgs) == 1 && msgs[0] == `{"t":"fitAll"}` {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never reached handler, got %v", msgs)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
