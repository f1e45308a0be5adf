// Package control handles the input protocol and feeds touches to the viewer.
package control

import (
	"math"
	"sort"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/gesture"
)

const (
	minMoveInterval = 16 * time.Millisecond
	minMoveDelta    = 1.0
)

// PointerTracker turns per-pointer client messages into touch events whose
// move batches carry every active pointer. Moves are throttled; the latest
// position is always flushed before the pointer goes up.
type PointerTracker struct {
	active     map[int]command.TouchPoint
	sent       map[int]command.TouchPoint
	lastMoveAt time.Time
	now        func() time.Time
}

// NewPointerTracker returns a ready-to-use tracker.
func NewPointerTracker() *PointerTracker {
	return &PointerTracker{
		active: make(map[int]command.TouchPoint),
		sent:   make(map[int]command.TouchPoint),
		now:    time.Now,
	}
}

// SetNowFunc overrides the clock used for throttling.
func (p *PointerTracker) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		p.now = fn
	}
}

// Active returns the number of pointers down.
func (p *PointerTracker) Active() int {
	return len(p.active)
}

// Down records a new pointer.
func (p *PointerTracker) Down(pt command.TouchPoint) []gesture.Event {
	p.active[pt.ID] = pt
	p.sent[pt.ID] = pt
	return []gesture.Event{{Phase: gesture.PhaseDown, Pointer: pt}}
}

// Move updates one pointer and emits a batch unless throttled.
func (p *PointerTracker) Move(pt command.TouchPoint) []gesture.Event {
	if _, ok := p.active[pt.ID]; !ok {
		return nil
	}
	p.active[pt.ID] = pt

	now := p.now()
	if !p.lastMoveAt.IsZero() && now.Sub(p.lastMoveAt) < minMoveInterval {
		return nil
	}
	if !p.dirty(minMoveDelta) {
		return nil
	}
	p.lastMoveAt = now
	return []gesture.Event{p.batch()}
}

// MoveBatch replaces the positions of the listed pointers and always emits.
func (p *PointerTracker) MoveBatch(pts []command.TouchPoint) []gesture.Event {
	for _, pt := range pts {
		if _, ok := p.active[pt.ID]; ok {
			p.active[pt.ID] = pt
		}
	}
	if len(p.active) == 0 {
		return nil
	}
	p.lastMoveAt = p.now()
	return []gesture.Event{p.batch()}
}

// Up releases a pointer, flushing a pending move first.
func (p *PointerTracker) Up(pt command.TouchPoint) []gesture.Event {
	return p.release(pt, gesture.PhaseUp)
}

// Cancel cancels a single pointer, flushing a pending move first.
func (p *PointerTracker) Cancel(pt command.TouchPoint) []gesture.Event {
	return p.release(pt, gesture.PhaseCancel)
}

// release flushes a dirty move batch, then ends pointer pt with phase.
func (p *PointerTracker) release(pt command.TouchPoint, phase gesture.Phase) []gesture.Event {
	if _, ok := p.active[pt.ID]; !ok {
		return nil
	}
	p.active[pt.ID] = pt
	var out []gesture.Event
	if p.dirty(0) {
		out = append(out, p.batch())
	}
	out = append(out, gesture.Event{Phase: phase, Pointer: pt})
	delete(p.active, pt.ID)
	delete(p.sent, pt.ID)
	return out
}

// CancelAll drops every pointer.
func (p *PointerTracker) CancelAll() []gesture.Event {
	p.Reset()
	return []gesture.Event{{Phase: gesture.PhaseCancelAll}}
}

// Reset forgets every pointer without emitting events.
func (p *PointerTracker) Reset() {
	p.active = make(map[int]command.TouchPoint)
	p.sent = make(map[int]command.TouchPoint)
	p.lastMoveAt = time.Time{}
}

// dirty reports whether any pointer moved more than delta since the last batch.
func (p *PointerTracker) dirty(delta float64) bool {
	for id, pt := range p.active {
		last := p.sent[id]
		if math.Abs(pt.X-last.X) > delta || math.Abs(pt.Y-last.Y) > delta {
			return true
		}
	}
	return false
}

// batch builds a move event holding every active pointer in id order.
func (p *PointerTracker) batch() gesture.Event {
	ids := make([]int, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	pts := make([]command.TouchPoint, 0, len(ids))
	for _, id := range ids {
		pt := p.active[id]
		pts = append(pts, pt)
		p.sent[id] = pt
	}
	return gesture.Event{Phase: gesture.PhaseMove, Batch: pts}
}
