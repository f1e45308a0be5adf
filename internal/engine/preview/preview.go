// Package preview is a software viewer engine: an orbit camera over an STL
// wireframe, rasterized on the CPU.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/frudas24/occtview/internal/engine"
	"golang.org/x/image/vector"
)

const (
	// Name identifies the engine in the load result.
	Name = "preview"
	// Version is reported next to the engine name.
	Version = "1.2.0"

	animationFrames = 12
	fitMargin       = 0.45
	pickRadius      = 8.0
	edgeHalfWidth   = 0.75
)

var (
	background = color.RGBA{R: 38, G: 38, B: 51, A: 255}
	edgeColor  = color.RGBA{R: 205, G: 210, B: 220, A: 255}
	pickColor  = color.RGBA{R: 255, G: 196, B: 0, A: 255}
	axisColors = [3]color.RGBA{
		{R: 220, G: 60, B: 60, A: 255},
		{R: 60, G: 200, B: 80, A: 255},
		{R: 70, G: 110, B: 240, A: 255},
	}
)

// ErrNoFrame is returned by SaveSnapshot before the first sized frame.
var ErrNoFrame = errors.New("preview: no frame rendered")

type point struct {
	x, y float64
}

// Engine implements engine.Engine on the CPU.
type Engine struct {
	logger  *log.Logger
	density float64

	width, height int
	img           *image.RGBA
	ras           *vector.Rasterizer

	mesh     *Mesh
	center   Vec3
	radius   float64
	cam      Camera
	anim     *animation
	pendFit  bool
	touches  map[int]point
	selected int
	sink     engine.FrameSink
}

// Ensure Engine implements the engine interfaces.
var (
	_ engine.Engine      = (*Engine)(nil)
	_ engine.Releaser    = (*Engine)(nil)
	_ engine.Snapshotter = (*Engine)(nil)
	_ engine.Presenter   = (*Engine)(nil)
)

// New returns an engine for a display density.
func New(density float64, logger *log.Logger) *Engine {
	if density <= 0 || math.IsNaN(density) {
		density = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		logger:   logger,
		density:  density,
		touches:  make(map[int]point),
		selected: -1,
		cam:      Camera{Yaw: math.Pi / 4, Pitch: math.Pi / 6, Scale: 1},
	}
}

// Load returns the load result for the preview engine.
func Load(logger *log.Logger) engine.LoadResult {
	return engine.Load(Name, Version, func(density float64) (engine.Engine, error) {
		return New(density, logger), nil
	})
}

// Init shows the placeholder cube.
func (e *Engine) Init() bool {
	e.setMesh(Cube())
	e.logger.Printf("preview: engine %s initialized (density %.2f)", Version, e.density)
	return true
}

// Resize reallocates the framebuffer.
func (e *Engine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.width, e.height = width, height
	e.img = image.NewRGBA(image.Rect(0, 0, width, height))
	if e.ras == nil {
		e.ras = vector.NewRasterizer(width, height)
	}
	if e.pendFit {
		e.cam = e.fitCamera()
		e.pendFit = false
	}
}

// Open loads an STL model and fits it. Other CAD formats are reported and
// leave the current model in place.
func (e *Engine) Open(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".stl" {
		e.logger.Printf("preview: %s: %s models are not rendered by the preview engine", filepath.Base(path), ext)
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		e.logger.Printf("preview: open: %v", err)
		return false
	}
	defer f.Close()

	m, err := ParseSTL(filepath.Base(path), f)
	if err != nil {
		e.logger.Printf("preview: %s: %v", filepath.Base(path), err)
		return false
	}
	e.setMesh(m)
	e.logger.Printf("preview: opened %s (%d vertices, %d edges)", m.Name, len(m.Vertices), len(m.Edges))
	return true
}

// setMesh replaces the model and fits the camera without animation.
func (e *Engine) setMesh(m *Mesh) {
	e.mesh = m
	e.center, e.radius = m.Sphere()
	e.selected = -1
	e.anim = nil
	if e.width == 0 {
		e.pendFit = true
		return
	}
	e.cam = e.fitCamera()
}

// fitCamera returns the current pose zoomed to the model and re-centered.
func (e *Engine) fitCamera() Camera {
	c := e.cam
	short := math.Min(float64(e.width), float64(e.height))
	c.Scale = fitMargin * short / e.radius
	c.PanX, c.PanY = 0, 0
	return c
}

// AddTouch starts tracking a touch point.
func (e *Engine) AddTouch(id int, x, y float64) {
	e.touches[id] = point{x, y}
	e.anim = nil
}

// UpdateTouch orbits with one finger, and zooms and pans with two.
func (e *Engine) UpdateTouch(id int, x, y float64) {
	prev, ok := e.touches[id]
	if !ok {
		return
	}
	next := point{x, y}
	switch len(e.touches) {
	case 1:
		e.cam.Orbit(next.x-prev.x, next.y-prev.y, e.radPerPixel())
	default:
		a, b := e.pinchPair()
		if id == a || id == b {
			e.pinch(id, a, b, next)
		}
	}
	e.touches[id] = next
}

// pinchPair returns the two lowest touch ids.
func (e *Engine) pinchPair() (int, int) {
	ids := make([]int, 0, len(e.touches))
	for id := range e.touches {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[0], ids[1]
}

// pinch applies the scale and midpoint change of the pair when id moves to next.
func (e *Engine) pinch(id, a, b int, next point) {
	pa, pb := e.touches[a], e.touches[b]
	na, nb := pa, pb
	if id == a {
		na = next
	} else {
		nb = next
	}
	before := math.Hypot(pb.x-pa.x, pb.y-pa.y)
	after := math.Hypot(nb.x-na.x, nb.y-na.y)
	if before > 1 && after > 1 {
		e.cam.Scale = clamp(e.cam.Scale*after/before, 1e-6, 1e6)
	}
	e.cam.PanX += ((na.x + nb.x) - (pa.x + pb.x)) / 2
	e.cam.PanY += ((na.y + nb.y) - (pa.y + pb.y)) / 2
}

// radPerPixel turns a drag across the short side into half a turn.
func (e *Engine) radPerPixel() float64 {
	short := math.Min(float64(e.width), float64(e.height))
	if short <= 0 {
		return 0.01
	}
	return math.Pi / short
}

// RemoveTouch stops tracking a touch point.
func (e *Engine) RemoveTouch(id int) {
	delete(e.touches, id)
}

// Select highlights the model vertex nearest to a screen point.
func (e *Engine) Select(x, y float64) {
	e.selected = -1
	if e.mesh == nil || e.width == 0 {
		return
	}
	best := pickRadius * e.density
	for i, v := range e.mesh.Vertices {
		px, py := e.cam.Project(v, e.center, e.width, e.height)
		if d := math.Hypot(px-x, py-y); d <= best {
			best, e.selected = d, i
		}
	}
}

// Selected returns the selected vertex index, or -1.
func (e *Engine) Selected() int {
	return e.selected
}

// FitAll animates the camera to frame the whole model.
func (e *Engine) FitAll() {
	if e.width == 0 {
		e.pendFit = true
		return
	}
	e.animateTo(e.fitCamera())
}

// SetProjection animates the camera to an axis view.
func (e *Engine) SetProjection(dir engine.Direction) {
	e.animateTo(cameraFor(dir, e.cam))
}

// animateTo starts an animation from the current camera to to.
func (e *Engine) animateTo(to Camera) {
	e.anim = &animation{from: e.cam, to: to, steps: animationFrames}
}

// Camera returns the current camera pose.
func (e *Engine) Camera() Camera {
	return e.cam
}

// Redraw rasterizes one frame; it wants more frames while an animation runs.
func (e *Engine) Redraw() bool {
	more := false
	if e.anim != nil {
		e.cam, more = e.anim.advance()
		if !more {
			e.anim = nil
		}
	}
	if e.img == nil {
		return more
	}

	draw.Draw(e.img, e.img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	if e.mesh != nil {
		e.drawEdges()
		e.drawSelection()
	}
	e.drawTriad()
	if e.sink != nil {
		e.sink(e.img)
	}
	return more
}

// SetFrameSink sets the sink that receives each redrawn frame.
func (e *Engine) SetFrameSink(sink engine.FrameSink) {
	e.sink = sink
}

// drawEdges strokes every mesh edge.
func (e *Engine) drawEdges() {
	e.ras.Reset(e.width, e.height)
	hw := float32(edgeHalfWidth * e.density)
	for _, ed := range e.mesh.Edges {
		x0, y0 := e.cam.Project(e.mesh.Vertices[ed[0]], e.center, e.width, e.height)
		x1, y1 := e.cam.Project(e.mesh.Vertices[ed[1]], e.center, e.width, e.height)
		strokeSegment(e.ras, float32(x0), float32(y0), float32(x1), float32(y1), hw)
	}
	e.ras.Draw(e.img, e.img.Bounds(), image.NewUniform(edgeColor), image.Point{})
}

// drawSelection marks the selected vertex.
func (e *Engine) drawSelection() {
	if e.selected < 0 || e.selected >= len(e.mesh.Vertices) {
		return
	}
	x, y := e.cam.Project(e.mesh.Vertices[e.selected], e.center, e.width, e.height)
	r := float32(3 * e.density)
	e.ras.Reset(e.width, e.height)
	e.ras.MoveTo(float32(x)-r, float32(y)-r)
	e.ras.LineTo(float32(x)+r, float32(y)-r)
	e.ras.LineTo(float32(x)+r, float32(y)+r)
	e.ras.LineTo(float32(x)-r, float32(y)+r)
	e.ras.ClosePath()
	e.ras.Draw(e.img, e.img.Bounds(), image.NewUniform(pickColor), image.Point{})
}

// drawTriad draws the axis trihedron in the lower left corner.
func (e *Engine) drawTriad() {
	size := 24 * e.density
	ox, oy := size+8, float64(e.height)-size-8
	right, up := e.cam.axes()
	axes := [3]Vec3{{X: 1}, {Y: 1}, {Z: 1}}
	for i, a := range axes {
		tx := ox + size*a.Dot(right)
		ty := oy - size*a.Dot(up)
		e.ras.Reset(e.width, e.height)
		strokeSegment(e.ras, float32(ox), float32(oy), float32(tx), float32(ty), float32(e.density))
		e.ras.Draw(e.img, e.img.Bounds(), image.NewUniform(axisColors[i]), image.Point{})
	}
}

// strokeSegment adds a segment as a thin quad. The winding only depends on
// the segment direction, so overlapping strokes never cancel out.
func strokeSegment(z *vector.Rasterizer, x0, y0, x1, y1, hw float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l < 1e-3 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

// Frame returns the framebuffer. It is reused by the next Redraw.
func (e *Engine) Frame() image.Image {
	if e.img == nil {
		return nil
	}
	return e.img
}

// SaveSnapshot writes the last frame as PNG or JPEG, chosen by extension.
func (e *Engine) SaveSnapshot(path string) error {
	if e.img == nil {
		return ErrNoFrame
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("preview: snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: snapshot: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, e.img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, e.img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("preview: snapshot: %w", err)
	}
	e.logger.Printf("preview: snapshot saved to %s", path)
	return nil
}

// Release drops the framebuffer and the model.
func (e *Engine) Release() {
	e.img = nil
	e.ras = nil
	e.mesh = nil
	e.anim = nil
	e.touches = make(map[int]point)
}
