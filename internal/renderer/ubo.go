package renderer

import (
	"encoding/binary"
	"math"

	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// std140 sizes of the engine's uniform blocks, in bytes.
const (
	CameraDataSize   = 144
	ModelDataSize    = 128
	MaterialDataSize = 32
	LightDataSize    = 160
)

// uniformBuffer keeps a CPU copy of a std140 block and pushes only the
// byte ranges that change.
type uniformBuffer struct {
	dev    gpu.Device
	name   string
	handle uint32
	data   []byte
}

func newUniformBuffer(dev gpu.Device, name string, size int) *uniformBuffer {
	ub := &uniformBuffer{dev: dev, name: name, data: make([]byte, size)}
	if size > 0 {
		ub.handle = dev.CreateUniformBuffer(size)
	}
	return ub
}

func (ub *uniformBuffer) Handle() uint32 { return ub.handle }

// Bytes returns the CPU copy. Callers must not modify it.
func (ub *uniformBuffer) Bytes() []byte { return ub.data }

// write stores b at offset and uploads it. Writes past the end are dropped
// the way the driver rejects them.
func (ub *uniformBuffer) write(offset int, b []byte) {
	if offset < 0 || offset+len(b) > len(ub.data) {
		logger.Log.Warn("Uniform buffer write out of range",
			zap.String("block", ub.name),
			zap.Int("offset", offset),
			zap.Int("length", len(b)),
			zap.Int("size", len(ub.data)))
		return
	}
	copy(ub.data[offset:], b)
	ub.dev.BufferSubData(ub.handle, offset, b)
}

func (ub *uniformBuffer) putFloats(offset int, v ...float32) {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	ub.write(offset, b)
}

func (ub *uniformBuffer) putInts(offset int, v ...int32) {
	b := make([]byte, 4*len(v))
	for i, n := range v {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(n))
	}
	ub.write(offset, b)
}

func (ub *uniformBuffer) putMat4(offset int, m mgl32.Mat4) {
	ub.putFloats(offset, m[:]...)
}

func (ub *uniformBuffer) release() {
	if ub.handle != 0 {
		ub.dev.DeleteBuffer(ub.handle)
		ub.handle = 0
	}
}

// CameraUBO mirrors the CameraData block:
//
//	mat4 ViewMatrix; mat4 ProjectionMatrix; vec4 Position;
type CameraUBO struct{ *uniformBuffer }

func newCameraUBO(dev gpu.Device) *CameraUBO {
	return &CameraUBO{newUniformBuffer(dev, "CameraData", CameraDataSize)}
}

func (u *CameraUBO) SetView(m mgl32.Mat4)       { u.putMat4(0, m) }
func (u *CameraUBO) SetProjection(m mgl32.Mat4) { u.putMat4(64, m) }
func (u *CameraUBO) SetPosition(p mgl32.Vec3)   { u.putFloats(128, p[0], p[1], p[2], 1) }

// ModelUBO mirrors ModelData: mat4 ModelMatrix; mat4 NormalMatrix;
type ModelUBO struct{ *uniformBuffer }

func newModelUBO(dev gpu.Device) *ModelUBO {
	return &ModelUBO{newUniformBuffer(dev, "ModelData", ModelDataSize)}
}

// SetModel writes the model matrix and its inverse transpose.
func (u *ModelUBO) SetModel(m mgl32.Mat4) {
	u.putMat4(0, m)
	u.putMat4(64, m.Inv().Transpose())
}

// MaterialUBO mirrors MaterialData:
//
//	vec4 Color; float Metallic; float Roughness; float AmbientOcclusion;
type MaterialUBO struct{ *uniformBuffer }

func newMaterialUBO(dev gpu.Device) *MaterialUBO {
	return &MaterialUBO{newUniformBuffer(dev, "MaterialData", MaterialDataSize)}
}

func (u *MaterialUBO) Set(m *Material) {
	c := m.Color
	u.putFloats(0, c[0], c[1], c[2], c[3], m.Metallic, m.Roughness, m.AmbientOcclusion, 0)
}

// LightsUBO holds an array of Light structs, LightDataSize bytes each:
//
//	vec4 Position; vec4 Direction; vec4 Color (w intensity);
//	vec4 Attenuation; vec4 CutOff; ivec4 Data (x shadow slot); mat4 LightSpace;
type LightsUBO struct {
	*uniformBuffer
	capacity int
}

const (
	lightPositionOffset    = 0
	lightDirectionOffset   = 16
	lightColorOffset       = 32
	lightIntensityOffset   = 44
	lightAttenuationOffset = 48
	lightCutOffOffset      = 64
	lightDataOffset        = 80
	lightSpaceOffset       = 96
)

// newLightsUBO fills every entry with an unlit light so the shaders can
// loop over the whole array.
func newLightsUBO(dev gpu.Device, t LightType, capacity uint32) *LightsUBO {
	u := &LightsUBO{
		uniformBuffer: newUniformBuffer(dev, lightBlockNames[t], int(capacity)*LightDataSize),
		capacity:      int(capacity),
	}
	for i := 0; i < u.capacity; i++ {
		u.ClearLight(i)
	}
	return u
}

// ClearLight resets entry i to a light that contributes nothing: zero
// intensity, unit constant attenuation, no shadow slot. Every value stays
// finite in the lighting equations.
func (u *LightsUBO) ClearLight(i int) {
	u.SetPosition(i, mgl32.Vec3{})
	u.SetDirection(i, mgl32.Vec3{0, -1, 0})
	u.SetColor(i, mgl32.Vec3{})
	u.SetIntensity(i, 0)
	u.SetAttenuation(i, mgl32.Vec3{1, 0, 0})
	u.SetCutOff(i, 1, 1)
	u.SetShadowSlot(i, -1)
	u.SetLightSpace(i, mgl32.Ident4())
}

func (u *LightsUBO) Capacity() int { return u.capacity }

func (u *LightsUBO) SetPosition(i int, p mgl32.Vec3) {
	u.putFloats(i*LightDataSize+lightPositionOffset, p[0], p[1], p[2], 1)
}

func (u *LightsUBO) SetDirection(i int, d mgl32.Vec3) {
	u.putFloats(i*LightDataSize+lightDirectionOffset, d[0], d[1], d[2], 0)
}

func (u *LightsUBO) SetColor(i int, c mgl32.Vec3) {
	u.putFloats(i*LightDataSize+lightColorOffset, c[0], c[1], c[2])
}

func (u *LightsUBO) SetIntensity(i int, v float32) {
	u.putFloats(i*LightDataSize+lightIntensityOffset, v)
}

func (u *LightsUBO) SetAttenuation(i int, a mgl32.Vec3) {
	u.putFloats(i*LightDataSize+lightAttenuationOffset, a[0], a[1], a[2], 0)
}

func (u *LightsUBO) SetCutOff(i int, inner, outer float32) {
	u.putFloats(i*LightDataSize+lightCutOffOffset, inner, outer, 0, 0)
}

func (u *LightsUBO) SetShadowSlot(i int, slot int) {
	u.putInts(i*LightDataSize+lightDataOffset, int32(slot), 0, 0, 0)
}

func (u *LightsUBO) SetLightSpace(i int, m mgl32.Mat4) {
	u.putMat4(i*LightDataSize+lightSpaceOffset, m)
}

// Entry returns the CPU copy of light i, or nil when i is out of range.
func (u *LightsUBO) Entry(i int) []byte {
	start := i * LightDataSize
	if i < 0 || start+LightDataSize > len(u.data) {
		return nil
	}
	return u.data[start : start+LightDataSize]
}

// SetLight writes every field of l at index i.
func (u *LightsUBO) SetLight(i int, l *Light, slot int, lightSpace mgl32.Mat4) {
	u.SetPosition(i, l.Position())
	u.SetDirection(i, l.Direction())
	u.SetColor(i, l.Color())
	u.SetIntensity(i, l.Intensity())
	u.SetAttenuation(i, l.Attenuation())
	inner, outer := l.CutOff()
	u.SetCutOff(i, inner, outer)
	u.SetShadowSlot(i, slot)
	u.SetLightSpace(i, lightSpace)
}
