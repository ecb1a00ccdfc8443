package renderer

import (
	"bytes"
	"strings"
	"testing"

	"Forge3D/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLightsUBOLayout(t *testing.T) {
	dev := gputest.New()
	u := newLightsUBO(dev, SpotLight, 2)

	l := NewLight(SpotLight)
	l.SetPosition(mgl32.Vec3{1, 2, 3})
	l.SetColor(mgl32.Vec3{0.5, 0.25, 0.125})
	l.SetIntensity(4)
	u.SetLight(1, l, 2, mgl32.Ident4())

	b := dev.Buffers[u.Handle()]
	base := LightDataSize
	if floatAt(b, base+lightPositionOffset+8) != 3 || floatAt(b, base+lightPositionOffset+12) != 1 {
		t.Error("position should be written as vec4(p, 1)")
	}
	if floatAt(b, base+lightColorOffset+8) != 0.125 || floatAt(b, base+lightIntensityOffset) != 4 {
		t.Error("color and intensity share a vec4")
	}
	if intAt(b, base+lightDataOffset) != 2 {
		t.Error("shadow slot not written")
	}
	if floatAt(b, base+lightSpaceOffset) != 1 || floatAt(b, base+lightSpaceOffset+4) != 0 {
		t.Error("light space matrix not written column major")
	}
	if intAt(b, lightDataOffset) != -1 || floatAt(b, lightIntensityOffset) != 0 {
		t.Error("entry 0 should still be unlit")
	}
}

func TestUnusedLightEntriesAreUnlit(t *testing.T) {
	dev := gputest.New()
	u := newLightsUBO(dev, SpotLight, 2)
	u.SetLight(0, NewLight(SpotLight), -1, mgl32.Ident4())

	b := dev.Buffers[u.Handle()]
	base := LightDataSize
	if slot := intAt(b, base+lightDataOffset); slot != -1 {
		t.Errorf("unused shadow slot = %d, want -1", slot)
	}
	if c := floatAt(b, base+lightAttenuationOffset); c == 0 {
		t.Error("unused constant attenuation must not be zero")
	}
	if v := floatAt(b, base+lightIntensityOffset); v != 0 {
		t.Errorf("unused intensity = %v, want 0", v)
	}
	dir := mgl32.Vec3{
		floatAt(b, base+lightDirectionOffset),
		floatAt(b, base+lightDirectionOffset+4),
		floatAt(b, base+lightDirectionOffset+8),
	}
	if dir.Len() == 0 {
		t.Error("unused direction must be normalizable")
	}
	if !bytes.Equal(b[base:base+LightDataSize], u.Entry(1)) {
		t.Error("GPU buffer and CPU copy disagree")
	}
}

func TestUniformBufferDropsOutOfRangeWrites(t *testing.T) {
	dev := gputest.New()
	u := newLightsUBO(dev, PointLight, 1)

	before := append([]byte(nil), u.Bytes()...)
	u.SetIntensity(1, 7)

	if u.Entry(1) != nil {
		t.Error("Entry past capacity should be nil")
	}
	for _, c := range dev.Calls {
		if strings.HasSuffix(c, "invalid") {
			t.Error("out of range write reached the device")
		}
	}
	if !bytes.Equal(before, u.Bytes()) {
		t.Fatal("out of range write modified the CPU copy")
	}
}

func TestZeroSizedUniformBuffer(t *testing.T) {
	dev := gputest.New()
	u := newLightsUBO(dev, DirectionalLight, 0)

	if u.Handle() != 0 || len(dev.Buffers) != 0 {
		t.Error("zero capacity should not allocate")
	}
	u.SetPosition(0, mgl32.Vec3{})
	u.release()
}

func TestCameraUBO(t *testing.T) {
	dev := gputest.New()
	u := newCameraUBO(dev)
	proj := mgl32.Perspective(1, 1.5, 0.1, 100)

	u.SetProjection(proj)
	u.SetPosition(mgl32.Vec3{4, 5, 6})

	b := dev.Buffers[u.Handle()]
	if got := mat4At(b, 64); got != proj {
		t.Error("projection not at offset 64")
	}
	if floatAt(b, 128) != 4 || floatAt(b, 140) != 1 {
		t.Error("position not at offset 128")
	}
}

func TestModelUBONormalMatrix(t *testing.T) {
	dev := gputest.New()
	u := newModelUBO(dev)
	m := mgl32.Scale3D(2, 4, 8)

	u.SetModel(m)

	n := mat4At(dev.Buffers[u.Handle()], 64)
	if !mat4Near(n, mgl32.Scale3D(0.5, 0.25, 0.125), 1e-5) {
		t.Errorf("normal matrix = %v", n)
	}
}
