package preview

import "math"

// Vec3 is a point in model space.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Len returns the vector length.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Mesh is a deduplicated wireframe: unique vertices and the edges between them.
type Mesh struct {
	Name     string
	Vertices []Vec3
	Edges    [][2]int

	index map[Vec3]int
	seen  map[[2]int]struct{}
}

// NewMesh returns an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name, index: make(map[Vec3]int), seen: make(map[[2]int]struct{})}
}

// AddTriangle adds the three edges of a facet.
func (m *Mesh) AddTriangle(a, b, c Vec3) {
	ia, ib, ic := m.vertex(a), m.vertex(b), m.vertex(c)
	m.edge(ia, ib)
	m.edge(ib, ic)
	m.edge(ic, ia)
}

// vertex returns the index of v, adding it when new.
func (m *Mesh) vertex(v Vec3) int {
	if i, ok := m.index[v]; ok {
		return i
	}
	m.Vertices = append(m.Vertices, v)
	m.index[v] = len(m.Vertices) - 1
	return len(m.Vertices) - 1
}

// edge adds the undirected edge a-b once.
func (m *Mesh) edge(a, b int) {
	if a == b {
		return
	}
	if a > b {
		a, b = b, a
	}
	k := [2]int{a, b}
	if _, ok := m.seen[k]; ok {
		return
	}
	m.seen[k] = struct{}{}
	m.Edges = append(m.Edges, k)
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() (lo, hi Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = Vec3{math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z)}
		hi = Vec3{math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Sphere returns the bounding box center and the radius enclosing it.
func (m *Mesh) Sphere() (center Vec3, radius float64) {
	lo, hi := m.Bounds()
	center = Vec3{(lo.X + hi.X) / 2, (lo.Y + hi.Y) / 2, (lo.Z + hi.Z) / 2}
	radius = hi.Sub(center).Len()
	if radius == 0 {
		radius = 1
	}
	return center, radius
}

// Cube returns the unit-cube placeholder shown before a model is opened.
func Cube() *Mesh {
	m := NewMesh("cube")
	c := [8]Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	quads := [6][4]int{
		{0, 1, 2, 3}, {4, 5, 6, 7}, {0, 1, 5, 4},
		{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
	}
	for _, q := range quads {
		// Quad outline only; no diagonal.
		for i := range q {
			m.edge(m.vertex(c[q[i]]), m.vertex(c[q[(i+1)%4]]))
		}
	}
	return m
}
