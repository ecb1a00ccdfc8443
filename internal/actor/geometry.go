// Package actor holds drawable scene objects that render through a
// renderer.RenderDevice.
package actor

import (
	"math"

	"Forge3D/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexFloats is the size of one interleaved vertex: position, uv, normal.
const VertexFloats = 8

var vertexAttribs = []gpu.VertexAttrib{
	{Index: gpu.AttribPosition, Size: 3, Offset: 0},
	{Index: gpu.AttribUV, Size: 2, Offset: 3},
	{Index: gpu.AttribNormal, Size: 3, Offset: 5},
}

// Geometry is an indexed triangle list with interleaved vertices.
type Geometry struct {
	Name     string
	Vertices []float32
	Indices  []int32
}

func (g *Geometry) VertexCount() int { return len(g.Vertices) / VertexFloats }

func (g *Geometry) Position(i int) mgl32.Vec3 {
	v := g.Vertices[i*VertexFloats:]
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// Expand returns the vertices in index order, one entry per triangle
// corner. Indices outside the vertex range are skipped along with the rest
// of their triangle.
func (g *Geometry) Expand() []float32 {
	if len(g.Indices) == 0 {
		return append([]float32(nil), g.Vertices...)
	}
	n := int32(g.VertexCount())
	out := make([]float32, 0, len(g.Indices)*VertexFloats)
	for i := 0; i+2 < len(g.Indices); i += 3 {
		tri := g.Indices[i : i+3]
		if tri[0] < 0 || tri[0] >= n || tri[1] < 0 || tri[1] >= n || tri[2] < 0 || tri[2] >= n {
			continue
		}
		for _, idx := range tri {
			out = append(out, g.Vertices[int(idx)*VertexFloats:int(idx+1)*VertexFloats]...)
		}
	}
	return out
}

// Triangles calls fn for each triangle in model space until fn returns false.
func (g *Geometry) Triangles(fn func(a, b, c mgl32.Vec3) bool) {
	if len(g.Indices) == 0 {
		for i := 0; i+2 < g.VertexCount(); i += 3 {
			if !fn(g.Position(i), g.Position(i+1), g.Position(i+2)) {
				return
			}
		}
		return
	}
	n := int32(g.VertexCount())
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		if a < 0 || a >= n || b < 0 || b >= n || c < 0 || c >= n {
			continue
		}
		if !fn(g.Position(int(a)), g.Position(int(b)), g.Position(int(c))) {
			return
		}
	}
}

// BoundingSphere is the centroid of the vertices and the distance to the
// farthest one.
func (g *Geometry) BoundingSphere() (center mgl32.Vec3, radius float32) {
	n := g.VertexCount()
	if n == 0 {
		return center, 0
	}
	for i := 0; i < n; i++ {
		center = center.Add(g.Position(i))
	}
	center = center.Mul(1 / float32(n))

	var maxDistanceSq float32
	for i := 0; i < n; i++ {
		if d := g.Position(i).Sub(center).LenSqr(); d > maxDistanceSq {
			maxDistanceSq = d
		}
	}
	return center, float32(math.Sqrt(float64(maxDistanceSq)))
}

// CubeGeometry is an axis aligned cube centred on the origin with one
// normal per face.
func CubeGeometry(size float32) *Geometry {
	h := size * 0.5

	vertices := []float32{
		-h, -h, h, 0, 0, 0, 0, 1,
		h, -h, h, 1, 0, 0, 0, 1,
		h, h, h, 1, 1, 0, 0, 1,
		-h, h, h, 0, 1, 0, 0, 1,

		-h, -h, -h, 1, 0, 0, 0, -1,
		-h, h, -h, 1, 1, 0, 0, -1,
		h, h, -h, 0, 1, 0, 0, -1,
		h, -h, -h, 0, 0, 0, 0, -1,

		-h, -h, -h, 0, 0, -1, 0, 0,
		-h, -h, h, 1, 0, -1, 0, 0,
		-h, h, h, 1, 1, -1, 0, 0,
		-h, h, -h, 0, 1, -1, 0, 0,

		h, -h, -h, 1, 0, 1, 0, 0,
		h, h, -h, 1, 1, 1, 0, 0,
		h, h, h, 0, 1, 1, 0, 0,
		h, -h, h, 0, 0, 1, 0, 0,

		-h, h, -h, 0, 1, 0, 1, 0,
		-h, h, h, 0, 0, 0, 1, 0,
		h, h, h, 1, 0, 0, 1, 0,
		h, h, -h, 1, 1, 0, 1, 0,

		-h, -h, -h, 1, 1, 0, -1, 0,
		h, -h, -h, 0, 1, 0, -1, 0,
		h, -h, h, 0, 0, 0, -1, 0,
		-h, -h, h, 1, 0, 0, -1, 0,
	}

	indices := make([]int32, 0, 36)
	for face := int32(0); face < 6; face++ {
		b := face * 4
		indices = append(indices, b, b+1, b+2, b+2, b+3, b)
	}
	return &Geometry{Name: "Cube", Vertices: vertices, Indices: indices}
}

// PlaneGeometry is a flat grid on the XZ plane centred on the origin,
// facing +Y.
func PlaneGeometry(gridSize int, spacing float32) *Geometry {
	if gridSize < 2 {
		gridSize = 2
	}
	half := float32(gridSize-1) * spacing * 0.5
	last := float32(gridSize - 1)

	vertices := make([]float32, 0, gridSize*gridSize*VertexFloats)
	for x := 0; x < gridSize; x++ {
		for z := 0; z < gridSize; z++ {
			vertices = append(vertices,
				float32(x)*spacing-half, 0, float32(z)*spacing-half,
				float32(x)/last, float32(z)/last,
				0, 1, 0)
		}
	}

	indices := make([]int32, 0, (gridSize-1)*(gridSize-1)*6)
	for x := 0; x < gridSize-1; x++ {
		for z := 0; z < gridSize-1; z++ {
			topLeft := int32(x*gridSize + z)
			topRight := topLeft + 1
			bottomLeft := int32((x+1)*gridSize + z)
			bottomRight := bottomLeft + 1

			indices = append(indices, topLeft, topRight, bottomRight, topLeft, bottomRight, bottomLeft)
		}
	}
	return &Geometry{Name: "Plane", Vertices: vertices, Indices: indices}
}

func SphereGeometry(radius float32, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}
	var vertices []float32
	for i := 0; i <= segments; i++ {
		lat := float64(i) * math.Pi / float64(segments)
		for j := 0; j <= segments; j++ {
			lon := float64(j) * 2 * math.Pi / float64(segments)

			nx := float32(math.Sin(lat) * math.Cos(lon))
			ny := float32(math.Cos(lat))
			nz := float32(math.Sin(lat) * math.Sin(lon))

			vertices = append(vertices,
				radius*nx, radius*ny, radius*nz,
				float32(j)/float32(segments), float32(i)/float32(segments),
				nx, ny, nz)
		}
	}

	var indices []int32
	for i := 0; i < segments; i++ {
		for j := 0; j < segments; j++ {
			first := int32(i*(segments+1) + j)
			second := first + int32(segments+1)
			indices = append(indices,
				first, first+1, second,
				second, first+1, second+1,
			)
		}
	}
	return &Geometry{Name: "Sphere", Vertices: vertices, Indices: indices}
}
