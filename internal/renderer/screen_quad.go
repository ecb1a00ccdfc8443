package renderer

import "Forge3D/internal/gpu"

// ScreenQuad is the full screen triangle strip the lighting pass draws.
type ScreenQuad struct {
	dev gpu.Device
	vao uint32
	vbo uint32
}

var screenQuadVertices = []float32{
	// position      uv
	-1, 1, 0, 0, 1,
	-1, -1, 0, 0, 0,
	1, 1, 0, 1, 1,
	1, -1, 0, 1, 0,
}

func NewScreenQuad(dev gpu.Device) *ScreenQuad {
	q := &ScreenQuad{dev: dev}
	q.vao, q.vbo = dev.CreateVertexArray(screenQuadVertices, 5,
		gpu.VertexAttrib{Index: gpu.AttribPosition, Size: 3, Offset: 0},
		gpu.VertexAttrib{Index: gpu.AttribUV, Size: 2, Offset: 3},
	)
	return q
}

func (q *ScreenQuad) Render() {
	q.dev.DrawArrays(q.vao, gpu.TriangleStrip, 0, 4)
}

func (q *ScreenQuad) Release() {
	if q.vao != 0 {
		q.dev.DeleteVertexArray(q.vao, q.vbo)
		q.vao, q.vbo = 0, 0
	}
}
