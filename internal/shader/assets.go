package shader

import "embed"

// Assets holds the built-in GLSL sources under Shader/.
//
//go:embed Shader
var Assets embed.FS

const (
	ScreenQuadVert            = "Shader/ScreenQuad.vert"
	BasicGeometryPassVert     = "Shader/BasicGeometryPass.vert"
	BasicGeometryPassFrag     = "Shader/BasicGeometryPass.frag"
	ShadowPassVert            = "Shader/ShadowPassShader.vert"
	ShadowPassFrag            = "Shader/ShadowPassShader.frag"
	DeferredLightingPBSFrag   = "Shader/DeferredLightingPBS.frag"
	DeferredLightingPhongFrag = "Shader/DeferredLightingBlinnPhong.frag"
)

// DefaultVersion is the GLSL version tag used when none is configured.
const DefaultVersion = "330 core"
