package mjpeg

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// threadSafeRecorder is a minimal http.ResponseWriter + http.Flusher that is safe to use across goroutines.
type threadSafeRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	status int
}

// Header returns the response headers.
func (r *threadSafeRecorder) Header() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

// Write appends bytes to the response body.
func (r *threadSafeRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.buf.Write(p)
}

// WriteHeader sets the HTTP status code.
func (r *threadSafeRecorder) WriteHeader(statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = statusCode
}

// Flush implements http.Flusher.
func (r *threadSafeRecorder) Flush() {}

// bodyBytes returns a copy of the current body as bytes.
func (r *threadSafeRecorder) bodyBytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.buf.Bytes()...)
}

// testJPEG encodes a single-colour frame.
func testJPEG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetRGBA(i%2, i/2, c)
	}
	jpg, err := EncodeImage(img, 60)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return jpg
}

// TestEncodeImage validates the encoder output decodes back to the frame size.
func TestEncodeImage(t *testing.T) {
	t.Parallel()
	jpg := testJPEG(t, color.RGBA{R: 255, A: 255})
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(jpg))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 2 || cfg.Height != 2 {
		t.Fatalf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}
}

// TestStreamHandlerWritesFrame validates the handler writes a multipart frame when a last frame is available.
func TestStreamHandlerWritesFrame(t *testing.T) {
	t.Parallel()

	s := NewStream(0)
	jpg := testJPEG(t, color.RGBA{G: 255, A: 255})
	s.Publish(jpg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example/mjpeg/view", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	rec := &threadSafeRecorder{}

	done := make(chan struct{})
	go func() {
		s.Handler(rec, req)
		close(done)
	}()

	deadline := time.Now().Add(500 * time.Millisecond)
	for !bytes.Contains(rec.bodyBytes(), jpg) {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("timed out waiting for frame")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary="+boundary {
		t.Fatalf("unexpected content-type: %q", ct)
	}
	body := rec.bodyBytes()
	if !bytes.Contains(body, []byte("--"+boundary)) || !bytes.Contains(body, []byte("Content-Type: image/jpeg")) {
		t.Fatalf("expected multipart headers, body=%q", body)
	}
}

// TestStreamPublishThrottle ensures a throttled publish updates the last frame without broadcasting.
func TestStreamPublishThrottle(t *testing.T) {
	t.Parallel()

	s := NewStream(time.Hour)
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	jpgA := testJPEG(t, color.RGBA{B: 255, A: 255})
	jpgB := testJPEG(t, color.RGBA{R: 255, G: 255, A: 255})

	s.Publish(jpgA)
	select {
	case got := <-ch:
		if !bytes.Equal(got, jpgA) {
			t.Fatalf("expected first publish to broadcast jpgA")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for first publish")
	}

	s.Publish(jpgB)
	select {
	case <-ch:
		t.Fatal("expected throttled publish to not broadcast immediately")
	case <-time.After(50 * time.Millisecond):
	}
	if !bytes.Equal(s.Last(), jpgB) {
		t.Fatal("expected last frame to update even when throttled")
	}
}

// TestSnapshotHandler verifies the single-frame endpoint.
func TestSnapshotHandler(t *testing.T) {
	t.Parallel()
	s := NewStream(0)

	rec := httptest.NewRecorder()
	s.SnapshotHandler(rec, httptest.NewRequest(http.MethodGet, "/mjpeg/frame", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before any frame, got %d", rec.Code)
	}

	jpg := testJPEG(t, color.RGBA{R: 10, A: 255})
	s.Publish(jpg)
	rec = httptest.NewRecorder()
	s.SnapshotHandler(rec, httptest.NewRequest(http.MethodGet, "/mjpeg/frame", nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), jpg) {
		t.Fatalf("unexpected snapshot response %d", rec.Code)
	}
}

// TestFeederPublishesLastFrame verifies the final frame of a burst is published.
func TestFeederPublishesLastFrame(t *testing.T) {
	t.Parallel()
	s := NewStream(0)
	f := NewFeeder(s, 80, 20)
	defer f.Close()

	for i := 0; i < 5; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		shade := uint8(i * 60)
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = shade, shade, shade, 255
		}
		f.Offer(img)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if jpg := s.Last(); jpg != nil {
			img, err := jpeg.Decode(bytes.NewReader(jpg))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			r, _, _, _ := img.At(4, 4).RGBA()
			if r>>8 >= 230 {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("last frame never published")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestStreamPublishConcurrent churns publishers and subscribers to catch races under -race.
func TestStreamPublishConcurrent(t *testing.T) {
	t.Parallel()

	s := NewStream(0)
	jpg := testJPEG(t, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Publish(jpg)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				ch := s.subscribe()
				select {
				case <-ch:
				default:
				}
				s.unsubscribe(ch)
			}
		}()
	}
	wg.Wait()
}
