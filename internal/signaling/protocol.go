// Package signaling exchanges WebRTC offers, answers and ICE candidates with
// the browser over a websocket.
package signaling

import "github.com/pion/webrtc/v3"

// Signaling message types.
const (
	MsgOffer   = "offer"
	MsgAnswer  = "answer"
	MsgICE     = "ice"
	MsgReady   = "ready"
	MsgRestart = "restart"
)

// Stream describes the video the viewer will receive. Epoch changes every
// time the encoder restarts; offers made for an older epoch are stale.
type Stream struct {
	Width  int    `json:"w"`
	Height int    `json:"h"`
	Epoch  uint64 `json:"epoch"`
}

// Message is a websocket signaling payload.
type Message struct {
	T         string                   `json:"t"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	Stream    *Stream                  `json:"stream,omitempty"`
	Epoch     uint64                   `json:"epoch,omitempty"`
}
