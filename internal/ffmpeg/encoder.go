package ffmpeg

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/occtview/internal/frame"
)

const (
	// probeWindow is how long a freshly started encoder must survive.
	probeWindow = 700 * time.Millisecond
	// stopGrace is how long ffmpeg may take to flush after stdin closes.
	stopGrace = 2 * time.Second
)

// ErrNotRunning is returned when frames are offered to a stopped encoder.
var ErrNotRunning = errors.New("ffmpeg: encoder not running")

// Encoder manages an ffmpeg process fed with raw frames on stdin. mu is held
// across process start and stop; Offer only reads box and never waits on it.
type Encoder struct {
	mu     sync.Mutex
	opts   Options
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	waitCh chan error
	done   chan struct{}
	wg     sync.WaitGroup
	w, h   int
	port   int
	box    atomic.Pointer[frame.Mailbox]

	written atomic.Uint64
	skipped atomic.Uint64
}

// NewEncoder returns an idle encoder.
func NewEncoder(opts Options) *Encoder {
	return &Encoder{opts: opts.withDefaults()}
}

// Start launches ffmpeg for frames of w x h and returns the RTP port it
// sends to. A running encoder is stopped first.
func (e *Encoder) Start(w, h int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stopLocked(); err != nil {
		return 0, err
	}
	if e.opts.FFmpegPath == "" {
		return 0, errors.New("FFmpegPath is required")
	}
	if w < 2 || h < 2 {
		return 0, fmt.Errorf("ffmpeg: invalid frame size %dx%d", w, h)
	}

	port, err := allocatePort()
	if err != nil {
		return 0, err
	}
	opts := e.opts
	args := BuildEncodeArgs(w, h, opts, port)
	cmd, stdin, waitCh, err := startWithFallback(opts.FFmpegPath, args, w*h*4, func() ([]string, error) {
		if opts.Codec == DefaultCodec {
			return nil, fmt.Errorf("ffmpeg: %s exited early", opts.Codec)
		}
		log.Printf("ffmpeg: codec %s failed, falling back to %s", opts.Codec, DefaultCodec)
		opts.Codec = DefaultCodec
		e.opts.Codec = DefaultCodec
		return BuildEncodeArgs(w, h, opts, port), nil
	})
	if err != nil {
		return 0, err
	}

	e.cmd, e.stdin, e.waitCh = cmd, stdin, waitCh
	e.w, e.h, e.port = w, h, port
	box := frame.NewMailbox()
	e.done = make(chan struct{})
	e.wg.Add(1)
	go e.writeLoop(stdin, box, e.done, w, h, opts.FPS)
	e.box.Store(box)
	log.Printf("ffmpeg: encoding %dx%d@%d with %s to rtp port %d", w, h, opts.FPS, opts.Codec, port)
	return port, nil
}

// Offer hands a frame to the running encoder without blocking.
func (e *Encoder) Offer(img image.Image) error {
	box := e.box.Load()
	if box == nil {
		return ErrNotRunning
	}
	box.Put(img)
	return nil
}

// Stop closes stdin, waits briefly for ffmpeg to flush and kills it otherwise.
func (e *Encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

// Running reports whether an ffmpeg process is attached.
func (e *Encoder) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil
}

// Port returns the RTP port of the running encoder, or 0.
func (e *Encoder) Port() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.port
}

// Stats returns frames written to ffmpeg and frames skipped for a size mismatch.
func (e *Encoder) Stats() (written, skipped uint64) {
	return e.written.Load(), e.skipped.Load()
}

// stopLocked stops the current ffmpeg process without acquiring the lock.
func (e *Encoder) stopLocked() error {
	if e.cmd == nil {
		return nil
	}
	e.box.Store(nil)
	close(e.done)
	_ = e.stdin.Close()
	e.wg.Wait()

	var err error
	select {
	case <-e.waitCh:
	case <-time.After(stopGrace):
		if kerr := e.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		<-e.waitCh
	}
	e.cmd, e.stdin, e.waitCh, e.done = nil, nil, nil, nil
	e.port = 0
	return err
}

// writeLoop writes the newest frame to ffmpeg at a fixed rate. ffmpeg's
// rawvideo input expects a steady stream, so an idle view repeats its
// last frame.
func (e *Encoder) writeLoop(stdin io.Writer, box *frame.Mailbox, done <-chan struct{}, w, h, fps int) {
	defer e.wg.Done()
	tick := time.NewTicker(time.Second / time.Duration(fps))
	defer tick.Stop()

	want := image.Rect(0, 0, w, h)
	var cur *image.RGBA
	for {
		select {
		case <-done:
			return
		case <-tick.C:
		}
		if next, ok := box.Take(); ok {
			if next.Rect != want {
				e.skipped.Add(1)
				box.Recycle(next)
			} else {
				box.Recycle(cur)
				cur = next
			}
		}
		if cur == nil {
			continue
		}
		if _, err := stdin.Write(cur.Pix); err != nil {
			select {
			case <-done:
			default:
				log.Printf("ffmpeg: write frame: %v", err)
			}
			return
		}
		e.written.Add(1)
	}
}

// startCmd launches ffmpeg with the provided args and a stdin pipe.
func startCmd(path string, args []string) (*exec.Cmd, io.WriteCloser, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	configureCmd(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, stdin, nil
}

// startWithFallback launches ffmpeg, primes it with a blank frame so the
// encoder opens, and falls back if it exits early.
func startWithFallback(path string, args []string, frameSize int, fallback func() ([]string, error)) (*exec.Cmd, io.WriteCloser, chan error, error) {
	cmd, stdin, waitCh, exitErr, err := startAndProbe(path, args, frameSize)
	if err != nil {
		return nil, nil, nil, err
	}
	if cmd != nil {
		return cmd, stdin, waitCh, nil
	}

	fallbackArgs, err := fallback()
	if err != nil {
		if exitErr != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", err, exitErr)
		}
		return nil, nil, nil, err
	}
	cmd, stdin, waitCh, exitErr, err = startAndProbe(path, fallbackArgs, frameSize)
	if err != nil {
		return nil, nil, nil, err
	}
	if cmd == nil {
		return nil, nil, nil, fmt.Errorf("ffmpeg exited early: %v", exitErr)
	}
	return cmd, stdin, waitCh, nil
}

// startAndProbe starts ffmpeg and reports a nil cmd when it exits inside
// the probe window.
func startAndProbe(path string, args []string, frameSize int) (*exec.Cmd, io.WriteCloser, chan error, error, error) {
	cmd, stdin, err := startCmd(path, args)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()
	primed := make(chan struct{})
	go func() {
		_, _ = stdin.Write(make([]byte, frameSize))
		close(primed)
	}()

	exited, exitErr := waitForExit(waitCh, probeWindow)
	if !exited {
		select {
		case <-primed:
			return cmd, stdin, waitCh, nil, nil
		case exitErr = <-waitCh:
		}
	}
	_ = stdin.Close()
	<-primed
	if exitErr == nil {
		exitErr = errors.New("exit status 0")
	}
	return nil, nil, nil, exitErr, nil
}

// waitForExit waits for a process to exit or times out.
func waitForExit(waitCh <-chan error, timeout time.Duration) (bool, error) {
	select {
	case err := <-waitCh:
		return true, err
	case <-time.After(timeout):
		return false, nil
	}
}

// allocatePort reserves a local UDP port and returns it.
func allocatePort() (int, error) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return 0, err
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	if err := conn.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
