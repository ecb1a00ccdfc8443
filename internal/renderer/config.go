package renderer

import (
	"encoding/json"
	"io"
	"os"

	"Forge3D/internal/errs"
	"Forge3D/internal/shader"
)

// Window is the part of a window the device queries for default viewports.
// *glfw.Window satisfies it.
type Window interface {
	GetFramebufferSize() (width, height int)
}

// Config configures a RenderDevice. It is copied on Init.
type Config struct {
	// Light capacities, also baked into the shader array sizes
	DirectionalLightsCount uint32 `json:"directionalLightsCount"`
	PointLightsCount       uint32 `json:"pointLightsCount"`
	SpotLightsCount        uint32 `json:"spotLightsCount"`

	// Deferred path
	GBufferWidth           int32 `json:"gBufferWidth"`
	GBufferHeight          int32 `json:"gBufferHeight"`
	UseGBuffer             bool  `json:"useGBuffer"`
	ExecuteLightingPass    bool  `json:"executeLightingPass"`
	PhysicallyBasedShading bool  `json:"physicallyBasedShading"`
	MatchGBufferAndWindow  bool  `json:"matchGBufferAndWindow"`

	AttachedWindow      Window `json:"-"`
	ForwardBufferWidth  int32  `json:"forwardBufferWidth"`
	ForwardBufferHeight int32  `json:"forwardBufferHeight"`

	// Shadows
	ShadowMapCount uint32  `json:"shadowMapCount"`
	PCFSize        int32   `json:"pcfSize"`
	ShadowBias     float32 `json:"shadowBias"`

	// Shader generation
	GLSLVersion    string                      `json:"glslVersion"`
	PrecisionTag   string                      `json:"precisionTag"`
	PostProcessing shader.PostProcessingConfig `json:"postProcessing"`
}

// maxShadowSamplers is the number of TexShadowN samplers shaders declare.
const maxShadowSamplers = 4

func DefaultConfig() Config {
	return Config{
		DirectionalLightsCount: 1,
		PointLightsCount:       4,
		SpotLightsCount:        1,
		GBufferWidth:           1280,
		GBufferHeight:          720,
		UseGBuffer:             true,
		ExecuteLightingPass:    true,
		PhysicallyBasedShading: true,
		MatchGBufferAndWindow:  true,
		ShadowMapCount:         1,
		PCFSize:                1,
		ShadowBias:             0.005,
		GLSLVersion:            shader.DefaultVersion,
		PostProcessing:         shader.DefaultPostProcessing(),
	}
}

// HighQualityConfig trades speed for more lights and softer shadows.
func HighQualityConfig() Config {
	cfg := DefaultConfig()
	cfg.PointLightsCount = 8
	cfg.SpotLightsCount = 2
	cfg.GBufferWidth = 1920
	cfg.GBufferHeight = 1080
	cfg.ShadowMapCount = 2
	cfg.PCFSize = 2
	return cfg
}

// PerformanceConfig drops shadows and uses Blinn-Phong shading.
func PerformanceConfig() Config {
	cfg := DefaultConfig()
	cfg.PointLightsCount = 2
	cfg.SpotLightsCount = 0
	cfg.ShadowMapCount = 0
	cfg.PCFSize = 0
	cfg.PhysicallyBasedShading = false
	return cfg
}

// LoadConfig decodes JSON over DefaultConfig, so omitted fields keep
// their defaults.
func LoadConfig(r io.Reader) (Config, error) {
	return LoadConfigOver(DefaultConfig(), r)
}

// LoadConfigOver decodes JSON over base, typically one of the presets.
func LoadConfigOver(base Config, r io.Reader) (Config, error) {
	cfg := base
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.General, "renderer.LoadConfig", err)
	}
	return cfg, cfg.validate()
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errs.Wrap(errs.General, "renderer.LoadConfigFile", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

func (c *Config) validate() error {
	if c.ExecuteLightingPass && !c.UseGBuffer {
		return errs.New(errs.General, "renderer.Config", "the lighting pass needs a gbuffer")
	}
	if c.ShadowMapCount > maxShadowSamplers {
		return errs.Newf(errs.General, "renderer.Config", "at most %d shadow maps are supported, got %d",
			maxShadowSamplers, c.ShadowMapCount)
	}
	if c.GLSLVersion == "" {
		c.GLSLVersion = shader.DefaultVersion
	}
	return nil
}

func (c *Config) lightConfig() shader.LightConfig {
	return shader.LightConfig{
		DirLightCount:   c.DirectionalLightsCount,
		PointLightCount: c.PointLightsCount,
		SpotLightCount:  c.SpotLightsCount,
		ShadowMapCount:  c.ShadowMapCount,
		PCFSize:         c.PCFSize,
		ShadowBias:      c.ShadowBias,
	}
}

func (c *Config) capacity(t LightType) uint32 {
	switch t {
	case DirectionalLight:
		return c.DirectionalLightsCount
	case PointLight:
		return c.PointLightsCount
	case SpotLight:
		return c.SpotLightsCount
	}
	return 0
}
