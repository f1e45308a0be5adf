//go:build windows

// Package ffmpeg encodes rendered frames to H.264 RTP with an ffmpeg child process.
package ffmpeg

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureCmd hides the console window ffmpeg would otherwise open.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
