package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Forge3D/internal/errs"
	"Forge3D/internal/shader"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DirectionalLightsCount != 1 || cfg.PointLightsCount != 4 || cfg.SpotLightsCount != 1 {
		t.Errorf("Unexpected default capacities %d/%d/%d",
			cfg.DirectionalLightsCount, cfg.PointLightsCount, cfg.SpotLightsCount)
	}
	if !cfg.UseGBuffer || !cfg.ExecuteLightingPass {
		t.Error("Default config should run the deferred path")
	}
	if cfg.GLSLVersion != shader.DefaultVersion {
		t.Errorf("GLSLVersion = %q", cfg.GLSLVersion)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestPresetConfigs(t *testing.T) {
	hq := HighQualityConfig()
	if hq.ShadowMapCount <= DefaultConfig().ShadowMapCount {
		t.Error("High quality should allow more shadow maps")
	}
	if err := hq.validate(); err != nil {
		t.Errorf("High quality config invalid: %v", err)
	}

	perf := PerformanceConfig()
	if perf.ShadowMapCount != 0 || perf.PhysicallyBasedShading {
		t.Error("Performance config should drop shadows and PBS")
	}
	if err := perf.validate(); err != nil {
		t.Errorf("Performance config invalid: %v", err)
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`{"pointLightsCount": 16, "postProcessing": {"exposure": 1.5}}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PointLightsCount != 16 {
		t.Errorf("PointLightsCount = %d", cfg.PointLightsCount)
	}
	if cfg.SpotLightsCount != 1 || cfg.GBufferWidth != 1280 {
		t.Error("Omitted fields should keep their defaults")
	}
	if cfg.PostProcessing.Exposure != 1.5 || cfg.PostProcessing.Gamma != 2.2 {
		t.Errorf("PostProcessing = %+v", cfg.PostProcessing)
	}
}

func TestLoadConfigOverPreset(t *testing.T) {
	cfg, err := LoadConfigOver(PerformanceConfig(), strings.NewReader(`{"shadowMapCount": 1}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ShadowMapCount != 1 {
		t.Errorf("ShadowMapCount = %d", cfg.ShadowMapCount)
	}
	if cfg.PointLightsCount != PerformanceConfig().PointLightsCount || cfg.PhysicallyBasedShading {
		t.Error("Omitted fields should keep the preset values")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"lighting without gbuffer": `{"useGBuffer": false}`,
		"too many shadow maps":     `{"shadowMapCount": 5}`,
		"malformed":                `{"pointLightsCount": "four"}`,
	}
	for name, src := range cases {
		if _, err := LoadConfig(strings.NewReader(src)); !errors.Is(err, errs.ErrGeneral) {
			t.Errorf("%s: expected general error, got %v", name, err)
		}
	}

	cfg, err := LoadConfig(strings.NewReader(`{"glslVersion": ""}`))
	if err != nil || cfg.GLSLVersion != shader.DefaultVersion {
		t.Errorf("Empty version should fall back to the default, got %q, %v", cfg.GLSLVersion, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.json")
	if err := os.WriteFile(path, []byte(`{"gBufferWidth": 640, "gBufferHeight": 360}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GBufferWidth != 640 || cfg.GBufferHeight != 360 {
		t.Errorf("GBuffer size = %dx%d", cfg.GBufferWidth, cfg.GBufferHeight)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Missing file should fail")
	}
}

func TestLightConfigFromCapacities(t *testing.T) {
	cfg := HighQualityConfig()
	lc := cfg.lightConfig()

	if lc.PointLightCount != cfg.PointLightsCount || lc.ShadowMapCount != cfg.ShadowMapCount || lc.PCFSize != cfg.PCFSize {
		t.Errorf("lightConfig = %+v", lc)
	}
}
