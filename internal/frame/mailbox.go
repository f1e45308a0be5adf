// Package frame hands rendered frames from the render thread to encoders.
package frame

import (
	"image"
	"image/draw"
	"sync"
)

// Mailbox keeps only the newest frame. Put never blocks the caller.
type Mailbox struct {
	mu      sync.Mutex
	pending *image.RGBA
	spare   *image.RGBA
	seq     uint64
	dropped uint64
	ready   chan struct{}
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Put copies img into the mailbox, replacing any frame not yet taken.
func (m *Mailbox) Put(img image.Image) {
	if img == nil {
		return
	}
	m.mu.Lock()
	dst := m.spare
	m.spare = nil
	if m.pending != nil {
		m.dropped++
		if dst == nil {
			dst = m.pending
		}
	}
	m.pending = Copy(dst, img)
	m.seq++
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after Put.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Take returns the pending frame and clears it. The caller owns the
// image until it hands it back with Recycle.
func (m *Mailbox) Take() (*image.RGBA, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := m.pending
	m.pending = nil
	return img, img != nil
}

// Recycle returns a taken image for reuse by later Puts.
func (m *Mailbox) Recycle(img *image.RGBA) {
	if img == nil {
		return
	}
	m.mu.Lock()
	if m.spare == nil {
		m.spare = img
	}
	m.mu.Unlock()
}

// Stats returns the number of frames put and replaced before being taken.
func (m *Mailbox) Stats() (put, dropped uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, m.dropped
}

// Copy copies src into dst, reallocating dst when the bounds differ.
func Copy(dst *image.RGBA, src image.Image) *image.RGBA {
	b := src.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	}
	if s, ok := src.(*image.RGBA); ok && s.Rect.Min == (image.Point{}) && s.Stride == dst.Stride {
		copy(dst.Pix, s.Pix)
		return dst
	}
	draw.Draw(dst, r, src, b.Min, draw.Src)
	return dst
}
