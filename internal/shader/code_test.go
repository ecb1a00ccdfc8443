package shader

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"Forge3D/internal/errs"
)

const lightSource = `#version 300 es
const uint DirLightCount = 1u;
const uint PointLightCount = 1u;
const float ShadowBias = 0.005;

void main() {
}
`

func newCode(t *testing.T, src, version, precision string) *Code {
	t.Helper()
	c := &Code{}
	if err := c.Init(nil, src, version, ConfigLighting, precision); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}

func TestCodeInitRewritesVersion(t *testing.T) {
	c := newCode(t, "#version 300\nvoid main() {}\n", "330 core", "")

	if !strings.HasPrefix(c.Text(), "#version 330 core\nvoid main()") {
		t.Errorf("unexpected text %q", c.Text())
	}
	if c.InsertionPoint() != len("#version 330 core\n") {
		t.Errorf("InsertionPoint = %d", c.InsertionPoint())
	}
}

func TestCodeInitInsertsPrecision(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "highp")

	header := "#version 300 es\nprecision highp float;\n"
	if !strings.HasPrefix(c.Text(), header) {
		t.Errorf("unexpected header in %q", c.Text())
	}
	if c.InsertionPoint() != len(header) {
		t.Errorf("InsertionPoint = %d, want %d", c.InsertionPoint(), len(header))
	}
}

func TestCodeInitWithoutVersionLine(t *testing.T) {
	c := newCode(t, "#define FOO\nvoid main() {}", "330 core", "")

	if !strings.HasPrefix(c.Text(), "#version 330 core\n#define FOO\n") {
		t.Errorf("version line not prepended: %q", c.Text())
	}
}

func TestCodeInitFromAssets(t *testing.T) {
	assets := fstest.MapFS{
		"Shader/a.frag": {Data: []byte("#version 330 core\nvoid main() {}\n")},
		"Shader/empty":  {Data: nil},
	}
	c := &Code{}
	if err := c.Init(assets, "Shader/a.frag", "410 core", 0, ""); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !strings.HasPrefix(c.Text(), "#version 410 core") {
		t.Errorf("unexpected text %q", c.Text())
	}

	for _, src := range []string{"", "Shader/missing.frag", "Shader/empty"} {
		err := (&Code{}).Init(assets, src, "330 core", 0, "")
		if !errors.Is(err, errs.ErrGeneral) {
			t.Errorf("Init(%q) = %v, want general error", src, err)
		}
	}
}

func TestAddDefineIsIdempotent(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "")

	c.AddDefine("SHADOWS")
	c.AddDefine("SHADOWS")

	if n := strings.Count(c.Text(), "#define SHADOWS"); n != 1 {
		t.Errorf("define appears %d times", n)
	}
	if !strings.HasPrefix(c.Text()[c.InsertionPoint():], "#define SHADOWS\n") {
		t.Error("define should be inserted at the insertion point")
	}
}

func TestAddDefineMatchesWholeToken(t *testing.T) {
	c := newCode(t, "#version 330 core\n#define FOO_BAR\n", "330 core", "")

	c.AddDefine("FOO")

	if !strings.Contains(c.Text(), "#define FOO\n") {
		t.Errorf("FOO should be added alongside FOO_BAR: %q", c.Text())
	}
}

func TestRemoveDefineBlanksInPlace(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "")
	c.AddDefine("POINT_LIGHTS")
	before := len(c.Text())

	c.RemoveDefine("POINT_LIGHTS")

	if len(c.Text()) != before {
		t.Errorf("text length changed from %d to %d", before, len(c.Text()))
	}
	if strings.Contains(c.Text(), "#define POINT_LIGHTS") {
		t.Error("define still present")
	}

	c.AddDefine("POINT_LIGHTS")
	if n := strings.Count(c.Text(), "#define POINT_LIGHTS"); n != 1 {
		t.Errorf("re-adding after removal gave %d defines", n)
	}
}

func TestChangeConst(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "")

	if !c.ChangeConst("const uint PointLightCount", "4u") {
		t.Fatal("ChangeConst should find the declaration")
	}
	if !strings.Contains(c.Text(), "const uint PointLightCount = 4u;") {
		t.Errorf("constant not rewritten: %q", c.Text())
	}
	if strings.Contains(c.Text(), "PointLightCount = 1u") {
		t.Error("old literal should be blanked")
	}
	if c.ChangeConst("const uint SpotLightCount", "2u") {
		t.Error("ChangeConst should report a missing declaration")
	}
}

func TestConfigLightTogglesDefines(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "")

	c.ConfigLight(LightConfig{DirLightCount: 1, PointLightCount: 4, ShadowMapCount: 1, ShadowBias: 0.01})

	text := c.Text()
	for _, want := range []string{"#define DIRECTIONAL_LIGHTS", "#define POINT_LIGHTS", "#define SHADOWS", "PointLightCount = 4u;", "ShadowBias = 0.01;"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(text, "#define SPOT_LIGHTS") {
		t.Error("zero spot lights should not define SPOT_LIGHTS")
	}

	c.ConfigLight(LightConfig{DirLightCount: 1})
	if strings.Contains(c.Text(), "#define POINT_LIGHTS") {
		t.Error("POINT_LIGHTS should be removed when the count drops to zero")
	}
}

func TestConfigLightUpgradesVersion(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"330 core", "400 core"},
		{"330", "400"},
		{"300 es", "320 es"},
		{"430 core", "430 core"},
	}
	for _, tt := range tests {
		c := newCode(t, lightSource, tt.version, "")
		c.ConfigLight(LightConfig{DirLightCount: 1, ShadowMapCount: 2})

		if c.Version() != tt.want {
			t.Errorf("%s: Version() = %q, want %q", tt.version, c.Version(), tt.want)
		}
		if !strings.HasPrefix(c.Text(), "#version "+tt.want+"\n") {
			t.Errorf("%s: header not rewritten: %q", tt.version, c.Text())
		}
		if c.Text()[c.InsertionPoint()-1] != '\n' {
			t.Errorf("%s: insertion point not at a line start", tt.version)
		}

		// Dropping back to one shadow map keeps the upgraded version.
		c.ConfigLight(LightConfig{DirLightCount: 1, ShadowMapCount: 1})
		if c.Version() != tt.want {
			t.Errorf("%s: version lowered to %q", tt.version, c.Version())
		}
	}
}

func TestRequiresConfig(t *testing.T) {
	c := &Code{}
	if err := c.Init(nil, lightSource, "300 es", ConfigLighting|ConfigPostProcessing, ""); err != nil {
		t.Fatal(err)
	}
	if !c.RequiresConfig(ConfigPostProcessing | ConfigSkeletalAnimation) {
		t.Error("expected intersection with post processing")
	}
	if c.RequiresConfig(ConfigSkeletalAnimation) {
		t.Error("skeletal animation was not requested")
	}
}

func TestPermutationFingerprint(t *testing.T) {
	c := newCode(t, lightSource, "300 es", "")
	before := c.Permutation().Fingerprint()

	c.AddDefine("SHADOWS")
	after := c.Permutation().Fingerprint()
	if before == after {
		t.Error("fingerprint should change with defines")
	}

	c.RemoveDefine("SHADOWS")
	if c.Permutation().Fingerprint() != before {
		t.Error("fingerprint should return to the original permutation")
	}
}

func TestFloatLiteral(t *testing.T) {
	if got := floatLiteral(2); got != "2.0" {
		t.Errorf("floatLiteral(2) = %q", got)
	}
	if got := floatLiteral(0.005); got != "0.005" {
		t.Errorf("floatLiteral(0.005) = %q", got)
	}
}
