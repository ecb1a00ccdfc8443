package renderer

import "github.com/go-gl/mathgl/mgl32"

// Material is the surface description pushed into the MaterialData block.
// Texture fields hold texture handles, 0 meaning none.
type Material struct {
	// HOT DATA - uploaded on every ActivateMaterial
	Color            mgl32.Vec4
	Metallic         float32
	Roughness        float32
	AmbientOcclusion float32
	AlbedoMap        uint32
	NormalMap        uint32
	DepthMap         uint32

	// COLD DATA
	Name string
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:             name,
		Color:            mgl32.Vec4{1, 1, 1, 1},
		Metallic:         0,
		Roughness:        0.5,
		AmbientOcclusion: 1,
	}
}
