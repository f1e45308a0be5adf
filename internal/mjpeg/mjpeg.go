// Package mjpeg serves rendered view frames as a multipart JPEG stream.
package mjpeg

import (
	"bytes"
	"image"
	"image/jpeg"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	boundary = "frame"
	// DefaultQuality is used when a quality outside 1..100 is requested.
	DefaultQuality = 70
	// repeatInterval re-sends the last frame so idle views stay visible.
	repeatInterval = time.Second
)

// Stream broadcasts JPEG frames to connected HTTP clients.
type Stream struct {
	mu          sync.RWMutex
	subs        map[chan []byte]struct{}
	last        []byte
	minInterval time.Duration
	lastPush    time.Time
	published   uint64
}

// NewStream creates a new stream with a minimum publish interval.
func NewStream(minInterval time.Duration) *Stream {
	return &Stream{
		subs:        make(map[chan []byte]struct{}),
		minInterval: minInterval,
	}
}

// SetMinInterval sets the minimum interval between broadcast frames.
func (s *Stream) SetMinInterval(d time.Duration) {
	s.mu.Lock()
	s.minInterval = d
	s.mu.Unlock()
}

// Publish stores a JPEG frame and broadcasts it unless throttled.
func (s *Stream) Publish(jpg []byte) {
	now := time.Now()
	frame := append([]byte(nil), jpg...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = frame
	if s.minInterval > 0 && now.Sub(s.lastPush) < s.minInterval {
		return
	}
	s.lastPush = now
	s.published++
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- frame:
		default:
		}
	}
}

// Last returns a copy of the most recent frame, or nil.
func (s *Stream) Last() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.last) == 0 {
		return nil
	}
	return append([]byte(nil), s.last...)
}

// Subscribers returns the number of connected clients.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Handler serves the MJPEG multipart stream to the HTTP client.
func (s *Stream) Handler(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	repeat := time.NewTicker(repeatInterval)
	defer repeat.Stop()

	for {
		var jpg []byte
		select {
		case <-r.Context().Done():
			return
		case jpg = <-ch:
		case <-repeat.C:
			jpg = s.Last()
		}
		if len(jpg) == 0 {
			continue
		}
		if err := writePart(w, jpg); err != nil {
			return
		}
		fl.Flush()
	}
}

// SnapshotHandler serves the most recent frame as a single JPEG.
func (s *Stream) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	jpg := s.Last()
	if len(jpg) == 0 {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(jpg)))
	_, _ = w.Write(jpg)
}

// EncodeImage encodes a frame into a JPEG buffer.
func EncodeImage(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// subscribe registers a new client for MJPEG frames.
func (s *Stream) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if len(s.last) > 0 {
		ch <- s.last
	}
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a client subscription.
func (s *Stream) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	close(ch)
	s.mu.Unlock()
}

// writePart writes a single JPEG frame to the multipart response.
func writePart(w http.ResponseWriter, jpg []byte) error {
	head := "\r\n--" + boundary + "\r\nContent-Type: image/jpeg\r\nContent-Length: " + strconv.Itoa(len(jpg)) + "\r\n\r\n"
	if _, err := w.Write([]byte(head)); err != nil {
		return err
	}
	_, err := w.Write(jpg)
	return err
}
