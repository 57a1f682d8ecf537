// Package mesh loads triangle meshes from Wavefront OBJ files.
package mesh

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Vertex is the interleaved layout consumed by the vertex shader:
// position at location 0, colour at 1, texture coordinate at 2.
type Vertex struct {
	Pos      mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh is an indexed triangle list with unique vertices.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

var white = mgl32.Vec3{1, 1, 1}

// Load reads and parses an OBJ file.
func Load(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open model")
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return m, nil
}

// Parse reads OBJ data. Only positions, texture coordinates and faces are
// used; faces with more than three corners are fanned into triangles.
// Identical position/texcoord pairs share one vertex.
func Parse(r io.Reader) (*Mesh, error) {
	var (
		positions []mgl32.Vec3
		texCoords []mgl32.Vec2
		m         = &Mesh{}
		unique    = make(map[Vertex]uint32)
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			// OBJ puts v=0 at the bottom of the image, Vulkan at the top.
			texCoords = append(texCoords, mgl32.Vec2{v[0], 1 - v[1]})
		case "f":
			if len(fields) < 4 {
				return nil, errors.Errorf("line %d: face needs at least 3 corners, got %d", line, len(fields)-1)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				vert, err := resolveCorner(ref, positions, texCoords)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", line)
				}
				idx, ok := unique[vert]
				if !ok {
					idx = uint32(len(m.Vertices))
					unique[vert] = idx
					m.Vertices = append(m.Vertices, vert)
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				m.Indices = append(m.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read obj")
	}
	if len(m.Indices) == 0 {
		return nil, errors.New("model has no faces")
	}
	return m, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, errors.Errorf("want %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, errors.Wrapf(err, "component %d", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// resolveCorner turns "p", "p/t", "p//n" or "p/t/n" into a vertex.
func resolveCorner(ref string, positions []mgl32.Vec3, texCoords []mgl32.Vec2) (Vertex, error) {
	parts := strings.Split(ref, "/")
	pi, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return Vertex{}, errors.Wrapf(err, "position of %q", ref)
	}
	v := Vertex{Pos: positions[pi], Color: white}
	if len(parts) > 1 && parts[1] != "" {
		ti, err := resolveIndex(parts[1], len(texCoords))
		if err != nil {
			return Vertex{}, errors.Wrapf(err, "texcoord of %q", ref)
		}
		v.TexCoord = texCoords[ti]
	}
	return v, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= n:
		return i - 1, nil
	case i < 0 && -i <= n:
		return n + i, nil
	default:
		return 0, errors.Errorf("index %d out of range [1, %d]", i, n)
	}
}
