package shader

import (
	"Forge3D/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformCache caches uniform locations to avoid repeated location queries
type UniformCache struct {
	dev       gpu.Device
	locations map[string]int32
	program   uint32
}

func NewUniformCache(dev gpu.Device, program uint32) *UniformCache {
	return &UniformCache{
		dev:       dev,
		locations: make(map[string]int32),
		program:   program,
	}
}

// GetLocation returns the cached uniform location or fetches and caches it
func (uc *UniformCache) GetLocation(name string) int32 {
	if loc, exists := uc.locations[name]; exists {
		return loc
	}

	loc := uc.dev.UniformLocation(uc.program, name)
	uc.locations[name] = loc
	return loc
}

// SetFloat sets a float uniform on the currently bound program
func (uc *UniformCache) SetFloat(name string, value float32) {
	if loc := uc.GetLocation(name); loc != -1 {
		uc.dev.Uniform1f(loc, value)
	}
}

func (uc *UniformCache) SetVec3(name string, v mgl32.Vec3) {
	if loc := uc.GetLocation(name); loc != -1 {
		uc.dev.Uniform3f(loc, v.X(), v.Y(), v.Z())
	}
}

func (uc *UniformCache) SetInt(name string, value int32) {
	if loc := uc.GetLocation(name); loc != -1 {
		uc.dev.Uniform1i(loc, value)
	}
}

// Reset points the cache at a relinked program and forgets all locations.
func (uc *UniformCache) Reset(program uint32) {
	uc.program = program
	uc.locations = make(map[string]int32)
}
