package actor

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"Forge3D/internal/errs"

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
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestLoadOBJQuad(t *testing.T) {
	g, err := LoadOBJ(strings.NewReader(quadOBJ), false)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}

	if g.VertexCount() != 4 {
		t.Errorf("VertexCount = %d, want 4 shared vertices", g.VertexCount())
	}
	want := []int32{0, 1, 2, 0, 2, 3}
	if len(g.Indices) != len(want) {
		t.Fatalf("Indices = %v, want %v", g.Indices, want)
	}
	for i := range want {
		if g.Indices[i] != want[i] {
			t.Fatalf("Indices = %v, want %v", g.Indices, want)
		}
	}
	v := g.Vertices[2*VertexFloats:]
	if v[3] != 1 || v[4] != 1 || v[7] != 1 {
		t.Errorf("vertex 2 = %v, want uv (1,1) and normal +Z", v[:VertexFloats])
	}
}

func TestLoadOBJRecalculatesMissingNormals(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

	g, err := LoadOBJ(strings.NewReader(src), false)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}

	for i := 0; i < g.VertexCount(); i++ {
		n := g.Vertices[i*VertexFloats+5 : i*VertexFloats+8]
		if !vec3Near(mgl32.Vec3{n[0], n[1], n[2]}, mgl32.Vec3{0, 0, 1}, 1e-5) {
			t.Errorf("normal %d = %v, want +Z", i, n)
		}
	}
}

func TestLoadOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"

	g, err := LoadOBJ(strings.NewReader(src), false)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if !vec3Near(g.Position(int(g.Indices[2])), mgl32.Vec3{0, 1, 0}, 1e-5) {
		t.Errorf("last index should resolve to the last vertex")
	}
}

func TestLoadOBJFanTriangulation(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 2 1 0\nv 1 2 0\nv 0 1 0\nf 1 2 3 4 5\n"

	g, err := LoadOBJ(strings.NewReader(src), false)
	if err != nil {
		t.Fatalf("LoadOBJ failed: %v", err)
	}
	if len(g.Indices) != 9 {
		t.Errorf("pentagon should become 3 triangles, got %d indices", len(g.Indices))
	}
}

func TestLoadOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no faces", "v 0 0 0\n"},
		{"bad vertex", "v 0 x 0\n"},
		{"short vertex", "v 0 0\n"},
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"degenerate face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadOBJ(strings.NewReader(tc.src), false)
			if !errors.Is(err, errs.ErrGeneral) {
				t.Errorf("err = %v, want a general error", err)
			}
		})
	}
}

func TestLoadOBJFile(t *testing.T) {
	fsys := fstest.MapFS{"models/quad.obj": {Data: []byte(quadOBJ)}}

	g, err := LoadOBJFile(fsys, "models/quad.obj", true)
	if err != nil {
		t.Fatalf("LoadOBJFile failed: %v", err)
	}
	if g.Name != "quad" {
		t.Errorf("Name = %q, want quad", g.Name)
	}

	if _, err := LoadOBJFile(fsys, "missing.obj", false); err == nil {
		t.Error("missing file should fail")
	}
}
