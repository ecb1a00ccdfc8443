package renderer

import (
	"Forge3D/internal/shader"

	"github.com/go-gl/mathgl/mgl32"
)

// ActiveLight is the registry entry of a light added to a RenderDevice.
type ActiveLight struct {
	Light      *Light
	ShadowSlot int // -1 when the light has no slot
	UBOIndex   int
	LightSpace mgl32.Mat4
}

// DefaultTexture is the sampler the light's shadow map is bound to. Only
// the first four slots have one.
func (al *ActiveLight) DefaultTexture() (shader.Sampler, bool) {
	if al.ShadowSlot < 0 {
		return 0, false
	}
	return shader.ShadowSampler(al.ShadowSlot)
}

// shadowSlots hands out the lowest free slot index to shadow casters.
type shadowSlots struct {
	lights []*ActiveLight
}

func (s *shadowSlots) acquire(al *ActiveLight) int {
	for i, occupant := range s.lights {
		if occupant == nil {
			s.lights[i] = al
			return i
		}
	}
	s.lights = append(s.lights, al)
	return len(s.lights) - 1
}

func (s *shadowSlots) release(slot int) {
	if slot >= 0 && slot < len(s.lights) {
		s.lights[slot] = nil
	}
}

// at returns the light holding slot, or nil.
func (s *shadowSlots) at(slot int) *ActiveLight {
	if slot < 0 || slot >= len(s.lights) {
		return nil
	}
	return s.lights[slot]
}

func (s *shadowSlots) reset() { s.lights = nil }
