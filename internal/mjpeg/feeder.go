package mjpeg

import (
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/occtview/internal/frame"
)

// Feeder encodes frames off the render thread and publishes them to a Stream.
type Feeder struct {
	stream   *Stream
	quality  atomic.Int32
	interval time.Duration
	box      *frame.Mailbox

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeeder starts a feeder that encodes at most fps frames per second.
func NewFeeder(stream *Stream, quality, fps int) *Feeder {
	var interval time.Duration
	if fps > 0 {
		interval = time.Second / time.Duration(fps)
	}
	f := &Feeder{
		stream:   stream,
		interval: interval,
		box:      frame.NewMailbox(),
		done:     make(chan struct{}),
	}
	f.SetQuality(quality)
	f.wg.Add(1)
	go f.run()
	return f
}

// Offer queues a frame for encoding. It copies img and never blocks.
func (f *Feeder) Offer(img image.Image) {
	select {
	case <-f.done:
		return
	default:
	}
	f.box.Put(img)
}

// SetQuality changes the JPEG quality of later frames.
func (f *Feeder) SetQuality(quality int) {
	f.quality.Store(int32(quality))
}

// Quality returns the JPEG quality in use.
func (f *Feeder) Quality() int {
	return int(f.quality.Load())
}

// Close stops the encoder goroutine.
func (f *Feeder) Close() {
	f.once.Do(func() { close(f.done) })
	f.wg.Wait()
}

// run encodes the newest pending frame, sleeping out the interval so the
// last frame of a burst is still published.
func (f *Feeder) run() {
	defer f.wg.Done()
	var last time.Time
	for {
		select {
		case <-f.done:
			return
		case <-f.box.Ready():
		}
		if wait := f.interval - time.Since(last); f.interval > 0 && wait > 0 {
			select {
			case <-f.done:
				return
			case <-time.After(wait):
			}
		}
		img, ok := f.box.Take()
		if !ok {
			continue
		}
		jpg, err := EncodeImage(img, f.Quality())
		f.box.Recycle(img)
		if err != nil {
			log.Printf("mjpeg: encode failed: %v", err)
			continue
		}
		last = time.Now()
		f.stream.Publish(jpg)
	}
}
