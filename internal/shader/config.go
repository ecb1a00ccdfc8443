package shader

// LightConfig sizes the light arrays and shadow sampling baked into
// lighting shaders. The counts must match the capacities the light uniform
// buffers were created with.
type LightConfig struct {
	DirLightCount   uint32  `json:"dirLightCount"`
	PointLightCount uint32  `json:"pointLightCount"`
	SpotLightCount  uint32  `json:"spotLightCount"`
	ShadowMapCount  uint32  `json:"shadowMapCount"`
	PCFSize         int32   `json:"pcfSize"`
	ShadowBias      float32 `json:"shadowBias"`
}

type PostProcessingConfig struct {
	Exposure   float32 `json:"exposure"`
	Gamma      float32 `json:"gamma"`
	Saturation float32 `json:"saturation"`
	Brightness float32 `json:"brightness"`
	Contrast   float32 `json:"contrast"`
}

// DefaultPostProcessing is a neutral tone mapping setup.
func DefaultPostProcessing() PostProcessingConfig {
	return PostProcessingConfig{
		Exposure:   1.0,
		Gamma:      2.2,
		Saturation: 1.0,
		Brightness: 1.0,
		Contrast:   1.0,
	}
}

type SkeletalAnimationConfig struct {
	BoneCount uint32 `json:"boneCount"`
}

type MorphTargetAnimationConfig struct {
	TargetCount uint32 `json:"targetCount"`
}
