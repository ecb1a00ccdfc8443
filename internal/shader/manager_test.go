package shader

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/gpu/gputest"
)

const (
	inlineVert = "#version 330 core\nlayout(location = 0) in vec3 VertPosition;\nvoid main() { gl_Position = vec4(VertPosition, 1.0); }\n"
	inlineFrag = "#version 330 core\nout vec4 FragColor;\nvoid main() { FragColor = vec4(1.0); }\n"
)

func newManager() (*Manager, *gputest.Device) {
	dev := gputest.New()
	return NewManager(dev, Assets), dev
}

func mustCode(t *testing.T, m *Manager, src string, options ConfigOption) *Code {
	t.Helper()
	c, err := m.CreateShaderCode(src, DefaultVersion, options, "")
	if err != nil {
		t.Fatalf("CreateShaderCode(%q) failed: %v", src, err)
	}
	return c
}

func TestCreateShaderCodeIsIdempotent(t *testing.T) {
	m, dev := newManager()

	a := mustCode(t, m, ScreenQuadVert, 0)
	b := mustCode(t, m, ScreenQuadVert, 0)
	if a != b {
		t.Error("identical requests should return the same code")
	}
	if dev.Compiles != 0 {
		t.Errorf("creating code should not compile, got %d compiles", dev.Compiles)
	}

	c, err := m.CreateShaderCode(ScreenQuadVert, DefaultVersion, 0, "mediump")
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("a different precision must produce a different code")
	}
}

func TestBuildShaderKeysOnIdentity(t *testing.T) {
	m, dev := newManager()
	frag := mustCode(t, m, inlineFrag, 0)

	first := &Code{}
	second := &Code{}
	for _, c := range []*Code{first, second} {
		if err := c.Init(nil, inlineVert, DefaultVersion, 0, ""); err != nil {
			t.Fatal(err)
		}
	}

	p1, err := m.BuildShader([]*Code{first}, []*Code{frag})
	if err != nil {
		t.Fatalf("BuildShader failed: %v", err)
	}
	p2, err := m.BuildShader([]*Code{second}, []*Code{frag})
	if err != nil {
		t.Fatalf("BuildShader failed: %v", err)
	}
	if p1 == p2 {
		t.Error("equal text in different codes must not hit the cache")
	}
	if dev.Links != 2 {
		t.Errorf("Links = %d, want 2", dev.Links)
	}

	again, _ := m.BuildShader([]*Code{first}, []*Code{frag})
	if again != p1 {
		t.Error("same code pointers should hit the cache")
	}
	if dev.Links != 2 {
		t.Errorf("cache hit relinked, Links = %d", dev.Links)
	}
}

func TestBuildShaderIsOrderSensitive(t *testing.T) {
	m, _ := newManager()
	a := mustCode(t, m, inlineVert, 0)
	b := mustCode(t, m, "#version 330 core\nvec3 helper() { return vec3(0.0); }\n", 0)
	frag := mustCode(t, m, inlineFrag, 0)

	p1, _ := m.BuildShader([]*Code{a, b}, []*Code{frag})
	p2, _ := m.BuildShader([]*Code{b, a}, []*Code{frag})
	if p1 == p2 {
		t.Error("reordered code lists should build distinct programs")
	}
}

func TestBuildShaderCachesFailure(t *testing.T) {
	m, dev := newManager()
	vert := mustCode(t, m, inlineVert, 0)
	broken := mustCode(t, m, "#version 330 core\n#error broken\n", 0)

	p, err := m.BuildShader([]*Code{vert}, []*Code{broken})
	if p == nil {
		t.Fatal("a failed build should still return a program")
	}
	if !errors.Is(err, errs.ErrGeneral) {
		t.Errorf("expected a general error, got %v", err)
	}
	if p.Valid() {
		t.Error("failed program should not be valid")
	}

	compiles := dev.Compiles
	again, err := m.BuildShader([]*Code{vert}, []*Code{broken})
	if again != p || err == nil {
		t.Error("failed build should be served from the cache with its error")
	}
	if dev.Compiles != compiles {
		t.Error("cached failure should not recompile")
	}
}

func TestBuildShaderRejectsBadInput(t *testing.T) {
	m, _ := newManager()
	vert := mustCode(t, m, inlineVert, 0)

	if _, err := m.BuildShader([]*Code{vert}, nil); !errors.Is(err, errs.ErrGeneral) {
		t.Errorf("missing fragment code: %v", err)
	}
	if _, err := m.BuildShader([]*Code{vert}, []*Code{nil}); !errors.Is(err, errs.ErrNullPointer) {
		t.Errorf("nil fragment code: %v", err)
	}
}

func buildDeferred(t *testing.T, m *Manager) *Program {
	t.Helper()
	vs := mustCode(t, m, ScreenQuadVert, 0)
	fs := mustCode(t, m, DeferredLightingPBSFrag, ConfigLighting|ConfigPostProcessing)
	p, err := m.BuildShader([]*Code{vs}, []*Code{fs})
	if err != nil {
		t.Fatalf("deferred lighting build failed: %v", err)
	}
	return p
}

func TestBuildShaderBindsInterface(t *testing.T) {
	m, dev := newManager()
	if err := m.ConfigShader(LightConfig{DirLightCount: 1, PointLightCount: 4, SpotLightCount: 1, ShadowMapCount: 1, PCFSize: 1}); err != nil {
		t.Fatal(err)
	}
	p := buildDeferred(t, m)

	for _, b := range []Block{BlockCamera, BlockDirectionalLights, BlockPointLights, BlockSpotLights} {
		if binding, ok := p.UBOBinding(b); !ok || binding != uint32(b) {
			t.Errorf("%v: binding %d, declared %v", b, binding, ok)
		}
	}
	if _, ok := p.UBOBinding(BlockModel); ok {
		t.Error("deferred lighting does not declare ModelData")
	}
	if unit, ok := p.TextureUnit(TexShadow0); !ok || unit != 3 {
		t.Errorf("TexShadow0 unit %d, declared %v", unit, ok)
	}
	if v, ok := dev.IntUniform(p.Handle(), "TexShadow1"); !ok || v != int32(TexShadow1) {
		t.Errorf("TexShadow1 sampler set to %d (%v)", v, ok)
	}
	if _, ok := p.TextureUnit(TexShadow2); ok {
		t.Error("TexShadow2 is not declared")
	}
}

func TestConfigShaderRebuildsOnlyAffectedPrograms(t *testing.T) {
	m, dev := newManager()
	cfg := LightConfig{DirLightCount: 1, PointLightCount: 4, SpotLightCount: 1}
	if err := m.ConfigShader(cfg); err != nil {
		t.Fatal(err)
	}
	deferred := buildDeferred(t, m)
	geomVS := mustCode(t, m, BasicGeometryPassVert, 0)
	geomFS := mustCode(t, m, BasicGeometryPassFrag, 0)
	geometry, err := m.BuildShader([]*Code{geomVS}, []*Code{geomFS})
	if err != nil {
		t.Fatal(err)
	}

	oldDeferred, oldGeometry := deferred.Handle(), geometry.Handle()
	links := dev.Links

	cfg.PointLightCount = 0
	if err := m.ConfigShader(cfg); err != nil {
		t.Fatalf("ConfigShader failed: %v", err)
	}
	if dev.Links != links+1 {
		t.Errorf("expected exactly one relink, got %d", dev.Links-links)
	}
	if deferred.Handle() == oldDeferred {
		t.Error("deferred program should have been relinked")
	}
	if geometry.Handle() != oldGeometry {
		t.Error("geometry program does not consume light config")
	}
	if _, ok := deferred.UBOBinding(BlockPointLights); ok {
		t.Error("point lights block should be compiled out")
	}

	links = dev.Links
	if err := m.ConfigShader(cfg); err != nil {
		t.Fatal(err)
	}
	if dev.Links != links {
		t.Error("an unchanged permutation should not relink")
	}
}

func TestConfigPostProcessingBakesConstants(t *testing.T) {
	m, _ := newManager()
	p := buildDeferred(t, m)

	pp := DefaultPostProcessing()
	pp.Exposure = 1.5
	if err := m.ConfigPostProcessing(pp); err != nil {
		t.Fatal(err)
	}
	fs := p.fs[0]
	if !strings.Contains(fs.Text(), "const float Exposure = 1.5;") {
		t.Error("exposure constant not baked")
	}
	if !p.Valid() {
		t.Errorf("program invalid after reconfiguration: %v", p.Err())
	}
}

func TestConfigAnimationCategories(t *testing.T) {
	m, _ := newManager()
	src := "#version 330 core\nconst int BoneCount = 1;\nconst int MorphTargetCount = 1;\nvoid main() {}\n"
	vs := mustCode(t, m, src, ConfigSkeletalAnimation|ConfigMorphTargetAnimation)
	fs := mustCode(t, m, inlineFrag, 0)
	if _, err := m.BuildShader([]*Code{vs}, []*Code{fs}); err != nil {
		t.Fatal(err)
	}

	if err := m.ConfigSkeletalAnimation(SkeletalAnimationConfig{BoneCount: 64}); err != nil {
		t.Fatal(err)
	}
	if err := m.ConfigMorphTargetAnimation(MorphTargetAnimationConfig{TargetCount: 0}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(vs.Text(), "#define SKELETAL_ANIMATION") || !strings.Contains(vs.Text(), "BoneCount = 64;") {
		t.Errorf("skeletal config not applied: %q", vs.Text())
	}
	if strings.Contains(vs.Text(), "#define MORPHTARGET_ANIMATION") {
		t.Error("zero morph targets should not define MORPHTARGET_ANIMATION")
	}
}

func TestBuildComputeShader(t *testing.T) {
	m, dev := newManager()
	cs := mustCode(t, m, "#version 430\nlayout(local_size_x = 1) in;\nvoid main() {}\n", 0)

	p, err := m.BuildComputeShader([]*Code{cs})
	if err != nil {
		t.Fatalf("BuildComputeShader failed: %v", err)
	}
	stages := dev.Programs[p.Handle()].Shaders
	if len(stages) != 1 || stages[0].Stage != gpu.ComputeShader {
		t.Errorf("unexpected stages %+v", stages)
	}
	if again, _ := m.BuildComputeShader([]*Code{cs}); again != p {
		t.Error("compute builds should be cached")
	}
	if _, err := m.BuildComputeShader(nil); err == nil {
		t.Error("empty compute list should fail")
	}
}

func TestReloadSource(t *testing.T) {
	assets := fstest.MapFS{
		"a.frag": {Data: []byte("#version 330 core\nconst uint PointLightCount = 1u;\nout vec4 C;\nvoid main() { C = vec4(1.0); }\n")},
	}
	dev := gputest.New()
	m := NewManager(dev, assets)
	if err := m.ConfigShader(LightConfig{PointLightCount: 2}); err != nil {
		t.Fatal(err)
	}
	vs := mustCode(t, m, inlineVert, 0)
	fs := mustCode(t, m, "a.frag", ConfigLighting)
	p, err := m.BuildShader([]*Code{vs}, []*Code{fs})
	if err != nil {
		t.Fatal(err)
	}
	old := p.Handle()

	assets["a.frag"] = &fstest.MapFile{Data: []byte("#version 330 core\nconst uint PointLightCount = 1u;\nout vec4 C;\nvoid main() { C = vec4(0.5); }\n")}
	if err := m.ReloadSource("a.frag"); err != nil {
		t.Fatalf("ReloadSource failed: %v", err)
	}
	if p.Handle() == old || !p.Valid() {
		t.Error("program should be relinked after reload")
	}
	if !strings.Contains(fs.Text(), "vec4(0.5)") {
		t.Error("new source not loaded")
	}
	if !strings.Contains(fs.Text(), "#define POINT_LIGHTS") || !strings.Contains(fs.Text(), "PointLightCount = 2u;") {
		t.Errorf("permutation not replayed: %q", fs.Text())
	}
}

func TestResetReleasesPrograms(t *testing.T) {
	m, dev := newManager()
	vs := mustCode(t, m, inlineVert, 0)
	fs := mustCode(t, m, inlineFrag, 0)
	p, _ := m.BuildShader([]*Code{vs}, []*Code{fs})
	handle := p.Handle()

	m.Reset()

	if p.Valid() {
		t.Error("program should be unusable after Reset")
	}
	if len(dev.DeletedPrograms) != 1 || dev.DeletedPrograms[0] != handle {
		t.Errorf("DeletedPrograms = %v", dev.DeletedPrograms)
	}
	if mustCode(t, m, inlineVert, 0) == vs {
		t.Error("code cache should be emptied")
	}
	if len(m.Programs()) != 0 {
		t.Error("program cache should be emptied")
	}
}
