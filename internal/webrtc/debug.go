// Package webrtc publishes the rendered view as an H.264 track and receives
// touch input over a data channel.
package webrtc

import "sync/atomic"

// debugRTP controls whether verbose RTP forwarding logs are emitted.
var debugRTP atomic.Bool

// SetDebugLogging enables/disables verbose WebRTC/RTP debug logs.
func SetDebugLogging(enabled bool) {
	debugRTP.Store(enabled)
}

// debugRTPEnabled reports whether RTP debug logs are enabled.
func debugRTPEnabled() bool {
	return debugRTP.Load()
}
