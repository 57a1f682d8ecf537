package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const quadOBJ = `# unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
f 3/3/1 4/4/1 1/1/1
`

func TestParseDeduplicatesVertices(t *testing.T) {
	m, err := Parse(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(m.Vertices) != 4 {
		t.Errorf("len(Vertices) = %d, want 4", len(m.Vertices))
	}
	want := []uint32{0, 1, 2, 2, 3, 0}
	if len(m.Indices) != len(want) {
		t.Fatalf("Indices = %v, want %v", m.Indices, want)
	}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Errorf("Indices = %v, want %v", m.Indices, want)
			break
		}
	}
}

func TestParseFlipsTexCoordAndSetsColor(t *testing.T) {
	m, err := Parse(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	v := m.Vertices[0]
	if v.TexCoord != (mgl32.Vec2{0, 1}) {
		t.Errorf("TexCoord = %v, want [0 1]", v.TexCoord)
	}
	if v.Color != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("Color = %v, want white", v.Color)
	}
}

func TestParseFansPolygons(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv -1 1 0\nf 1 2 3 4 5\n"
	m, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(m.Indices) != 9 {
		t.Errorf("len(Indices) = %d, want 9 (three triangles)", len(m.Indices))
	}
}

func TestParseNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	m, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Vertices[2].Pos != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("third vertex = %v, want [0 1 0]", m.Vertices[2].Pos)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"no faces":       "v 0 0 0\n",
		"short vertex":   "v 0 0\n",
		"bad float":      "v 0 x 0\n",
		"index range":    "v 0 0 0\nf 1 2 3\n",
		"two corners":    "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad texcoord":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/4 2 3\n",
		"non-int corner": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf a 2 3\n",
	}
	for name, src := range tests {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Errorf("%s: Parse() error = nil, want error", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Indices) != 6 {
		t.Errorf("len(Indices) = %d, want 6", len(m.Indices))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.obj")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}
