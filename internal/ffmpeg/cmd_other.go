//go:build !windows

// Package ffmpeg encodes rendered frames to H.264 RTP with an ffmpeg child process.
package ffmpeg

import "os/exec"

// configureCmd is a no-op outside Windows.
func configureCmd(cmd *exec.Cmd) {
	_ = cmd
}
