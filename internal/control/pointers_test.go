package control

import (
	"testing"
	"time"

	"github.com/frudas24/occtview/internal/command"
	"github.com/frudas24/occtview/internal/gesture"
)

func pt(id int, x, y float64) command.TouchPoint {
	return command.TouchPoint{ID: id, X: x, Y: y}
}

// TestMove_BatchCarriesEveryPointer verifies a single-pointer move reports all active pointers.
func TestMove_BatchCarriesEveryPointer(t *testing.T) {
	p := NewPointerTracker()
	p.Down(pt(2, 10, 10))
	p.Down(pt(1, 50, 50))

	evs := p.Move(pt(2, 20, 10))
	if len(evs) != 1 || evs[0].Phase != gesture.PhaseMove {
		t.Fatalf("expected one move, got %#v", evs)
	}
	b := evs[0].Batch
	if len(b) != 2 || b[0].ID != 1 || b[1] != pt(2, 20, 10) {
		t.Fatalf("unexpected batch %#v", b)
	}
}

// TestMove_Throttled verifies moves inside the interval are held back.
func TestMove_Throttled(t *testing.T) {
	p := NewPointerTracker()
	now := time.Unix(0, 0)
	p.SetNowFunc(func() time.Time { return now })
	p.Down(pt(1, 0, 0))

	if evs := p.Move(pt(1, 5, 0)); len(evs) != 1 {
		t.Fatalf("expected first move, got %#v", evs)
	}
	now = now.Add(5 * time.Millisecond)
	if evs := p.Move(pt(1, 9, 0)); len(evs) != 0 {
		t.Fatalf("expected throttled move, got %#v", evs)
	}
	now = now.Add(20 * time.Millisecond)
	if evs := p.Move(pt(1, 9.5, 0)); len(evs) != 1 || evs[0].Batch[0].X != 9.5 {
		t.Fatalf("expected move after interval, got %#v", evs)
	}
}

// TestMove_UnknownPointerIgnored verifies moves for pointers never down are dropped.
func TestMove_UnknownPointerIgnored(t *testing.T) {
	p := NewPointerTracker()
	if evs := p.Move(pt(7, 1, 1)); len(evs) != 0 {
		t.Fatalf("expected no events, got %#v", evs)
	}
	if evs := p.Up(pt(7, 1, 1)); len(evs) != 0 {
		t.Fatalf("expected no events, got %#v", evs)
	}
}

// TestUp_FlushesPendingMove verifies a throttled drag still reaches the classifier before up.
func TestUp_FlushesPendingMove(t *testing.T) {
	p := NewPointerTracker()
	now := time.Unix(0, 0)
	p.SetNowFunc(func() time.Time { return now })
	p.Down(pt(1, 0, 0))
	p.Move(pt(1, 1.5, 0))
	p.Move(pt(1, 40, 0))

	evs := p.Up(pt(1, 40, 0))
	if len(evs) != 2 || evs[0].Phase != gesture.PhaseMove || evs[1].Phase != gesture.PhaseUp {
		t.Fatalf("expected move+up, got %#v", evs)
	}
	if evs[0].Batch[0].X != 40 {
		t.Fatalf("expected flushed position 40, got %#v", evs[0].Batch)
	}
	if p.Active() != 0 {
		t.Fatalf("expected no active pointers")
	}
}

// TestCancelAll_Resets verifies system cancel drops every pointer.
func TestCancelAll_Resets(t *testing.T) {
	p := NewPointerTracker()
	p.Down(pt(1, 0, 0))
	p.Down(pt(2, 0, 0))
	evs := p.CancelAll()
	if len(evs) != 1 || evs[0].Phase != gesture.PhaseCancelAll || p.Active() != 0 {
		t.Fatalf("unexpected cancel-all result %#v active=%d", evs, p.Active())
	}
}

// TestTrackerFeedsClassifier verifies a throttled drag never turns into a tap.
func TestTrackerFeedsClassifier(t *testing.T) {
	p := NewPointerTracker()
	now := time.Unix(0, 0)
	p.SetNowFunc(func() time.Time { return now })
	c := gesture.NewClassifier(1)

	var cmds []command.Command
	feed := func(evs []gesture.Event) {
		for _, ev := range evs {
			cmds = append(cmds, c.Handle(ev)...)
		}
	}
	feed(p.Down(pt(0, 100, 100)))
	feed(p.Move(pt(0, 101, 100)))
	feed(p.Move(pt(0, 160, 100)))
	feed(p.Up(pt(0, 160, 100)))

	for _, cmd := range cmds {
		if cmd.Kind == command.KindSelect {
			t.Fatalf("expected no select for a drag, got %v", cmds)
		}
	}
}
