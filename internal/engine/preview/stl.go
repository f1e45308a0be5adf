package preview

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrEmptyModel is returned for a model without facets.
var ErrEmptyModel = errors.New("stl: no facets")

const (
	stlHeaderSize = 80
	stlFacetSize  = 50
)

// ParseSTL reads an ASCII or binary STL model.
func ParseSTL(name string, r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stl: read: %w", err)
	}
	var m *Mesh
	if isBinarySTL(data) {
		m, err = parseBinarySTL(name, data)
	} else {
		m, err = parseASCIISTL(name, data)
	}
	if err != nil {
		return nil, err
	}
	if len(m.Edges) == 0 {
		return nil, ErrEmptyModel
	}
	return m, nil
}

// isBinarySTL checks the facet count against the payload size. Some binary
// exporters also start their header with "solid", so the size check wins.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	n := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == stlHeaderSize+4+uint64(n)*stlFacetSize
}

// parseBinarySTL reads 50-byte facets after the 84-byte header.
func parseBinarySTL(name string, data []byte) (*Mesh, error) {
	n := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	m := NewMesh(name)
	off := stlHeaderSize + 4
	for i := 0; i < n; i++ {
		f := data[off : off+stlFacetSize]
		// 12 bytes of normal, then three vertices.
		var v [3]Vec3
		for k := range v {
			p := f[12+k*12:]
			v[k] = Vec3{
				X: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[0:]))),
				Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))),
				Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[8:]))),
			}
		}
		m.AddTriangle(v[0], v[1], v[2])
		off += stlFacetSize
	}
	return m, nil
}

// parseASCIISTL collects vertex lines into triangles at each endloop.
func parseASCIISTL(name string, data []byte) (*Mesh, error) {
	m := NewMesh(name)
	sc := bufio.NewScanner(bytes.NewReader(data))
	var facet []Vec3
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "facet":
			facet = facet[:0]
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("stl: line %d: malformed vertex", line)
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("stl: line %d: %w", line, err)
				}
				xyz[i] = f
			}
			facet = append(facet, Vec3{xyz[0], xyz[1], xyz[2]})
		case "endloop":
			if len(facet) != 3 {
				return nil, fmt.Errorf("stl: line %d: facet has %d vertices", line, len(facet))
			}
			m.AddTriangle(facet[0], facet[1], facet[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stl: scan: %w", err)
	}
	return m, nil
}
