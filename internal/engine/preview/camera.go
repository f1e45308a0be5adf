package preview

import (
	"math"

	"github.com/frudas24/occtview/internal/engine"
)

// Camera is an orthographic orbit camera around the model center. Z is up.
type Camera struct {
	Yaw   float64 // radians around Z, 0 puts the eye on +X
	Pitch float64 // radians above the XY plane
	Scale float64 // pixels per model unit
	PanX  float64
	PanY  float64
}

// axes returns the screen right and up vectors in model space.
func (c Camera) axes() (right, up Vec3) {
	sy, cy := math.Sincos(c.Yaw)
	sp, cp := math.Sincos(c.Pitch)
	right = Vec3{-sy, cy, 0}
	up = Vec3{-sp * cy, -sp * sy, cp}
	return right, up
}

// Project maps a model point to screen pixels for a w x h viewport.
func (c Camera) Project(p, center Vec3, w, h int) (x, y float64) {
	right, up := c.axes()
	d := p.Sub(center)
	x = float64(w)/2 + c.PanX + c.Scale*d.Dot(right)
	y = float64(h)/2 + c.PanY - c.Scale*d.Dot(up)
	return x, y
}

// Orbit rotates by a screen-space drag.
func (c *Camera) Orbit(dx, dy, radPerPixel float64) {
	c.Yaw -= dx * radPerPixel
	c.Pitch = clamp(c.Pitch+dy*radPerPixel, -math.Pi/2, math.Pi/2)
}

// cameraFor returns the camera pose for an axis entry point, keeping zoom and pan.
func cameraFor(dir engine.Direction, base Camera) Camera {
	c := base
	c.Pitch = 0
	switch dir {
	case engine.XPos:
		c.Yaw = 0
	case engine.YPos:
		c.Yaw = math.Pi / 2
	case engine.XNeg:
		c.Yaw = math.Pi
	case engine.YNeg:
		c.Yaw = -math.Pi / 2
	case engine.ZPos:
		c.Yaw, c.Pitch = 0, math.Pi/2
	case engine.ZNeg:
		c.Yaw, c.Pitch = 0, -math.Pi/2
	}
	return c
}

// lerpCamera interpolates two poses; yaw takes the short way round.
func lerpCamera(a, b Camera, t float64) Camera {
	dyaw := math.Remainder(b.Yaw-a.Yaw, 2*math.Pi)
	return Camera{
		Yaw:   a.Yaw + dyaw*t,
		Pitch: a.Pitch + (b.Pitch-a.Pitch)*t,
		Scale: a.Scale + (b.Scale-a.Scale)*t,
		PanX:  a.PanX + (b.PanX-a.PanX)*t,
		PanY:  a.PanY + (b.PanY-a.PanY)*t,
	}
}

// animation moves the camera over a fixed number of frames.
type animation struct {
	from, to Camera
	step     int
	steps    int
}

// advance moves one frame and reports whether frames remain.
func (a *animation) advance() (Camera, bool) {
	a.step++
	if a.step >= a.steps {
		return a.to, false
	}
	return lerpCamera(a.from, a.to, float64(a.step)/float64(a.steps)), true
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
