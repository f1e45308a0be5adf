package control

import "testing"

// TestNormToSurface_TopLeft verifies the top-left mapping.
func TestNormToSurface_TopLeft(t *testing.T) {
	x, y := NormToSurface(0, 0, 301, 401)
	if x != 0 || y != 0 {
		t.Fatalf("expected (0,0), got (%v,%v)", x, y)
	}
}

// TestNormToSurface_Center verifies center mapping.
func TestNormToSurface_Center(t *testing.T) {
	x, y := NormToSurface(0.5, 0.5, 301, 401)
	if x != 150 || y != 200 {
		t.Fatalf("expected (150,200), got (%v,%v)", x, y)
	}
}

// TestNormToSurface_BottomRight verifies bottom-right mapping.
func TestNormToSurface_BottomRight(t *testing.T) {
	x, y := NormToSurface(1, 1, 301, 401)
	if x != 300 || y != 400 {
		t.Fatalf("expected (300,400), got (%v,%v)", x, y)
	}
}

// TestNormToSurface_ClampOutOfRange verifies normalization clamps out-of-range values.
func TestNormToSurface_ClampOutOfRange(t *testing.T) {
	x, y := NormToSurface(-1, 2, 301, 401)
	if x != 0 || y != 400 {
		t.Fatalf("expected clamped (0,400), got (%v,%v)", x, y)
	}
}

// TestNormToSurface_EmptySurface verifies degenerate sizes map to the origin.
func TestNormToSurface_EmptySurface(t *testing.T) {
	x, y := NormToSurface(0.7, 0.7, 0, 1)
	if x != 0 || y != 0 {
		t.Fatalf("expected (0,0), got (%v,%v)", x, y)
	}
}

// TestPointToSurface keeps the pointer id.
func TestPointToSurface(t *testing.T) {
	p := PointToSurface(Pointer{ID: 4, X: 0.25, Y: 1}, 101, 11)
	if p.ID != 4 || p.X != 25 || p.Y != 10 {
		t.Fatalf("unexpected point %+v", p)
	}
}
