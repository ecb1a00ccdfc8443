package shader

import (
	"Forge3D/internal/gpu"
)

// Block is one of the uniform blocks the engine recognises by name.
// Its value is the binding point the block is attached to.
type Block uint32

const (
	BlockCamera Block = iota
	BlockModel
	BlockMaterial
	BlockDirectionalLights
	BlockPointLights
	BlockSpotLights
	BlockBone
	BlockMorphTarget
	BlockText
	BlockColorAdjustment
	blockCount
)

var blockNames = [blockCount]string{
	"CameraData",
	"ModelData",
	"MaterialData",
	"DirectionalLightsData",
	"PointLightsData",
	"SpotLightsData",
	"BoneData",
	"MorphTargetData",
	"TextData",
	"ColorAdjustmentData",
}

func (b Block) String() string {
	if b < blockCount {
		return blockNames[b]
	}
	return "InvalidBlock"
}

// Sampler is one of the recognised sampler uniforms. Its value is the
// texture unit the sampler reads from.
type Sampler uint32

const (
	TexAlbedo Sampler = iota
	TexNormal
	TexDepth
	TexShadow0
	TexShadow1
	TexShadow2
	TexShadow3
	TexMorphTargetData
	TexPosition
	samplerCount
)

var samplerNames = [samplerCount]string{
	"TexAlbedo",
	"TexNormal",
	"TexDepth",
	"TexShadow0",
	"TexShadow1",
	"TexShadow2",
	"TexShadow3",
	"MorphTargetDataBuffer",
	"TexPosition",
}

func (s Sampler) String() string {
	if s < samplerCount {
		return samplerNames[s]
	}
	return "InvalidSampler"
}

// ShadowSampler returns the sampler for shadow slot i, if the slot has one.
func ShadowSampler(i int) (Sampler, bool) {
	if i < 0 || i > 3 {
		return 0, false
	}
	return TexShadow0 + Sampler(i), true
}

// Program is a linked shader permutation. The pointer stays valid across
// reconfiguration; the handle behind it may change.
type Program struct {
	handle      uint32
	vs, fs, cs  []*Code
	fingerprint string
	err         error

	blocks   map[Block]bool
	samplers map[Sampler]bool
	uniforms *UniformCache
}

func (p *Program) Handle() uint32 { return p.handle }

// Valid reports whether the last build linked.
func (p *Program) Valid() bool { return p.handle != 0 && p.err == nil }

// Err is the last build failure, if any.
func (p *Program) Err() error { return p.err }

// UBOBinding returns the binding point of block if the program declares it.
func (p *Program) UBOBinding(b Block) (uint32, bool) {
	if !p.blocks[b] {
		return 0, false
	}
	return uint32(b), true
}

// TextureUnit returns the unit sampler s reads from if the program declares it.
func (p *Program) TextureUnit(s Sampler) (uint32, bool) {
	if !p.samplers[s] {
		return 0, false
	}
	return uint32(s), true
}

func (p *Program) Uniforms() *UniformCache { return p.uniforms }

func (p *Program) Fingerprint() string { return p.fingerprint }

func (p *Program) codes() []*Code {
	all := make([]*Code, 0, len(p.vs)+len(p.fs)+len(p.cs))
	all = append(all, p.vs...)
	all = append(all, p.fs...)
	return append(all, p.cs...)
}

func (p *Program) uses(c *Code) bool {
	for _, x := range p.codes() {
		if x == c {
			return true
		}
	}
	return false
}

func (p *Program) requires(mask ConfigOption) bool {
	for _, c := range p.codes() {
		if c.RequiresConfig(mask) {
			return true
		}
	}
	return false
}

func (p *Program) matches(vs, fs, cs []*Code) bool {
	return sameCodes(p.vs, vs) && sameCodes(p.fs, fs) && sameCodes(p.cs, cs)
}

func sameCodes(a, b []*Code) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func fingerprint(codes []*Code) string {
	var s string
	for _, c := range codes {
		s += c.Permutation().Fingerprint() + ";"
	}
	return s
}

// bindInterface attaches every declared block to its binding point and
// every declared sampler to its unit.
func (p *Program) bindInterface(dev gpu.Device) {
	p.blocks = make(map[Block]bool)
	p.samplers = make(map[Sampler]bool)
	for b := Block(0); b < blockCount; b++ {
		if idx, ok := dev.UniformBlockIndex(p.handle, blockNames[b]); ok {
			dev.UniformBlockBinding(p.handle, idx, uint32(b))
			p.blocks[b] = true
		}
	}
	dev.UseProgram(p.handle)
	for s := Sampler(0); s < samplerCount; s++ {
		if loc := dev.UniformLocation(p.handle, samplerNames[s]); loc >= 0 {
			dev.Uniform1i(loc, int32(s))
			p.samplers[s] = true
		}
	}
	dev.UseProgram(0)
}
