package renderer

import "github.com/go-gl/mathgl/mgl32"

// Actor is anything that can issue draw calls once the RenderDevice has
// uploaded its model matrix. Implementations activate their own shader
// and material before drawing.
type Actor interface {
	Render(rd *RenderDevice, rotation mgl32.Quat, translation, scale mgl32.Vec3)
}
