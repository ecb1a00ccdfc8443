// Package gputest provides an in-memory gpu.Device that records the
// commands issued to it. Shader sources are run through a minimal
// preprocessor (#define, #ifdef, #ifndef, #else, #endif, #error) so block
// and uniform queries answer the way a driver would for the active code.
package gputest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"Forge3D/internal/gpu"
)

type Shader struct {
	Stage  gpu.Enum
	Source string
}

type Program struct {
	Shaders  []Shader
	Blocks   map[string]uint32
	Bindings map[uint32]uint32 // block index -> binding point
	Uniforms map[string]int32
	Ints     map[int32]int32
}

type Texture struct {
	Width, Height  int32
	InternalFormat gpu.Enum
	Pixels         []byte
	// Fill is returned for every texel read back through ReadPixels.
	Fill [4]float32
}

type FramebufferObj struct {
	Attachments map[gpu.Enum]uint32
	DrawBuffers []gpu.Enum
	ReadBuffer  gpu.Enum
}

type Blit struct {
	ReadFB, DrawFB uint32
	Src, Dst       gpu.Rect
	Mask, Filter   gpu.Enum
}

type Draw struct {
	Program uint32
	VAO     uint32
	Mode    gpu.Enum
	Count   int32
	// Units snapshots texture unit bindings at draw time.
	Units map[uint32]uint32
}

// VertexLayout is the attribute layout a vertex array was created with.
type VertexLayout struct {
	Stride  int32 // floats
	Attribs []gpu.VertexAttrib
}

type Device struct {
	Prof gpu.Profile
	// Status, when non-zero, is returned by CheckFramebufferStatus.
	Status gpu.Enum

	next uint32

	Shaders      map[uint32]Shader
	Programs     map[uint32]*Program
	Buffers      map[uint32][]byte
	Bindings     map[uint32]uint32 // binding point -> buffer
	Textures     map[uint32]*Texture
	Units        map[uint32]uint32 // texture unit -> texture
	Framebuffers map[uint32]*FramebufferObj
	VertexArrays map[uint32][]float32
	Layouts      map[uint32]VertexLayout
	Enabled      map[gpu.Enum]bool

	ActiveUnit      uint32
	ReadFB, DrawFB  uint32
	CurrentProgram  uint32
	CurrentViewport gpu.Rect
	CullMode        gpu.Enum
	ClearRGBA       [4]float32

	Clears []gpu.Enum
	Blits  []Blit
	Draws  []Draw
	Calls  []string

	Compiles, Links int
	DeletedPrograms []uint32
	DeletedTextures []uint32
	DeletedBuffers  []uint32
}

func New() *Device {
	return &Device{
		Shaders:      make(map[uint32]Shader),
		Programs:     make(map[uint32]*Program),
		Buffers:      make(map[uint32][]byte),
		Bindings:     make(map[uint32]uint32),
		Textures:     make(map[uint32]*Texture),
		Units:        make(map[uint32]uint32),
		Framebuffers: make(map[uint32]*FramebufferObj),
		VertexArrays: make(map[uint32][]float32),
		Layouts:      make(map[uint32]VertexLayout),
		Enabled:      make(map[gpu.Enum]bool),
	}
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) record(format string, args ...interface{}) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *Device) Profile() gpu.Profile { return d.Prof }

func (d *Device) CreateShader(stage gpu.Enum, source string) (uint32, error) {
	d.Compiles++
	d.record("CreateShader %#x", uint32(stage))
	active := Preprocess(source)
	if !strings.HasPrefix(strings.TrimSpace(source), "#version") && !strings.Contains(source, "\n#version") {
		return 0, errors.New("failed to compile shader: missing #version")
	}
	if i := strings.Index(active, "#error"); i >= 0 {
		line := active[i:]
		if j := strings.IndexByte(line, '\n'); j >= 0 {
			line = line[:j]
		}
		return 0, fmt.Errorf("failed to compile shader: %s", line)
	}
	h := d.handle()
	d.Shaders[h] = Shader{Stage: stage, Source: source}
	return h, nil
}

func (d *Device) DeleteShader(shader uint32) {
	delete(d.Shaders, shader)
}

var (
	blockRe   = regexp.MustCompile(`uniform\s+(\w+)\s*\{`)
	uniformRe = regexp.MustCompile(`uniform\s+\w+\s+(\w+)\s*(\[[^\]]*\])?\s*;`)
)

func (d *Device) CreateProgram(shaders ...uint32) (uint32, error) {
	d.Links++
	d.record("CreateProgram")
	if len(shaders) == 0 {
		return 0, errors.New("failed to link program: no shaders attached")
	}
	p := &Program{
		Blocks:   make(map[string]uint32),
		Bindings: make(map[uint32]uint32),
		Uniforms: make(map[string]int32),
		Ints:     make(map[int32]int32),
	}
	for _, s := range shaders {
		obj, ok := d.Shaders[s]
		if !ok {
			return 0, fmt.Errorf("failed to link program: unknown shader %d", s)
		}
		p.Shaders = append(p.Shaders, obj)
		active := Preprocess(obj.Source)
		for _, m := range blockRe.FindAllStringSubmatch(active, -1) {
			if _, ok := p.Blocks[m[1]]; !ok {
				p.Blocks[m[1]] = uint32(len(p.Blocks))
			}
		}
		for _, m := range uniformRe.FindAllStringSubmatch(active, -1) {
			if _, ok := p.Uniforms[m[1]]; !ok {
				p.Uniforms[m[1]] = int32(len(p.Uniforms))
			}
		}
		delete(d.Shaders, s)
	}
	h := d.handle()
	d.Programs[h] = p
	return h, nil
}

func (d *Device) DeleteProgram(program uint32) {
	delete(d.Programs, program)
	d.DeletedPrograms = append(d.DeletedPrograms, program)
}

func (d *Device) UseProgram(program uint32) {
	d.record("UseProgram %d", program)
	d.CurrentProgram = program
}

func (d *Device) UniformBlockIndex(program uint32, name string) (uint32, bool) {
	p, ok := d.Programs[program]
	if !ok {
		return 0, false
	}
	idx, ok := p.Blocks[name]
	return idx, ok
}

func (d *Device) UniformBlockBinding(program, block, binding uint32) {
	if p, ok := d.Programs[program]; ok {
		p.Bindings[block] = binding
	}
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	p, ok := d.Programs[program]
	if !ok {
		return -1
	}
	loc, ok := p.Uniforms[name]
	if !ok {
		return -1
	}
	return loc
}

func (d *Device) Uniform1i(location, v int32) {
	d.record("Uniform1i %d %d", location, v)
	if p, ok := d.Programs[d.CurrentProgram]; ok && location >= 0 {
		p.Ints[location] = v
	}
}

func (d *Device) Uniform1f(location int32, v float32) {
	d.record("Uniform1f %d %g", location, v)
}

func (d *Device) Uniform3f(location int32, x, y, z float32) {
	d.record("Uniform3f %d", location)
}

// IntUniform returns the last int written to name on program.
func (d *Device) IntUniform(program uint32, name string) (int32, bool) {
	p, ok := d.Programs[program]
	if !ok {
		return 0, false
	}
	loc, ok := p.Uniforms[name]
	if !ok {
		return 0, false
	}
	v, ok := p.Ints[loc]
	return v, ok
}

func (d *Device) CreateUniformBuffer(size int) uint32 {
	h := d.handle()
	d.Buffers[h] = make([]byte, size)
	return h
}

// BufferSubData rejects writes past the end of the store, like
// GL_INVALID_VALUE, and reports them in Calls.
func (d *Device) BufferSubData(buffer uint32, offset int, data []byte) {
	buf, ok := d.Buffers[buffer]
	if !ok || offset < 0 || offset+len(data) > len(buf) {
		d.record("BufferSubData %d invalid", buffer)
		return
	}
	copy(buf[offset:], data)
}

func (d *Device) BindBufferBase(binding, buffer uint32) {
	d.record("BindBufferBase %d %d", binding, buffer)
	d.Bindings[binding] = buffer
}

func (d *Device) DeleteBuffer(buffer uint32) {
	delete(d.Buffers, buffer)
	d.DeletedBuffers = append(d.DeletedBuffers, buffer)
}

func (d *Device) CreateTexture2D(width, height int32, internalFormat, format, xtype gpu.Enum, pixels []byte) uint32 {
	h := d.handle()
	d.Textures[h] = &Texture{Width: width, Height: height, InternalFormat: internalFormat, Pixels: pixels}
	return h
}

func (d *Device) DeleteTexture(texture uint32) {
	delete(d.Textures, texture)
	d.DeletedTextures = append(d.DeletedTextures, texture)
}

func (d *Device) ActiveTexture(unit uint32) { d.ActiveUnit = unit }

func (d *Device) BindTexture(texture uint32) {
	d.record("BindTexture %d %d", d.ActiveUnit, texture)
	d.Units[d.ActiveUnit] = texture
}

func (d *Device) CreateFramebuffer() uint32 {
	h := d.handle()
	d.Framebuffers[h] = &FramebufferObj{Attachments: make(map[gpu.Enum]uint32)}
	return h
}

func (d *Device) DeleteFramebuffer(fb uint32) {
	delete(d.Framebuffers, fb)
}

func (d *Device) BindFramebuffer(target gpu.Enum, fb uint32) {
	d.record("BindFramebuffer %#x %d", uint32(target), fb)
	switch target {
	case gpu.ReadFramebuffer:
		d.ReadFB = fb
	case gpu.DrawFramebuffer:
		d.DrawFB = fb
	default:
		d.ReadFB, d.DrawFB = fb, fb
	}
}

func (d *Device) FramebufferTexture2D(target, attachment gpu.Enum, texture uint32) {
	fb := d.bound(target)
	if fb != nil {
		fb.Attachments[attachment] = texture
	}
}

func (d *Device) bound(target gpu.Enum) *FramebufferObj {
	if target == gpu.ReadFramebuffer {
		return d.Framebuffers[d.ReadFB]
	}
	return d.Framebuffers[d.DrawFB]
}

func (d *Device) DrawBuffers(attachments ...gpu.Enum) {
	if fb := d.bound(gpu.DrawFramebuffer); fb != nil {
		fb.DrawBuffers = append([]gpu.Enum(nil), attachments...)
	}
}

func (d *Device) ReadBuffer(attachment gpu.Enum) {
	if fb := d.bound(gpu.ReadFramebuffer); fb != nil {
		fb.ReadBuffer = attachment
	}
}

func (d *Device) CheckFramebufferStatus(target gpu.Enum) gpu.Enum {
	if d.Status != 0 {
		return d.Status
	}
	fb := d.bound(target)
	if fb == nil || len(fb.Attachments) == 0 {
		return gpu.FramebufferIncompleteMissing
	}
	return gpu.FramebufferComplete
}

func (d *Device) BlitFramebuffer(src, dst gpu.Rect, mask, filter gpu.Enum) {
	d.record("BlitFramebuffer %d->%d", d.ReadFB, d.DrawFB)
	d.Blits = append(d.Blits, Blit{ReadFB: d.ReadFB, DrawFB: d.DrawFB, Src: src, Dst: dst, Mask: mask, Filter: filter})
}

func (d *Device) ReadPixels(r gpu.Rect, format gpu.Enum, dst []float32) {
	fb := d.Framebuffers[d.ReadFB]
	if fb == nil {
		return
	}
	var tex *Texture
	if format == gpu.DepthComponent {
		tex = d.Textures[fb.Attachments[gpu.DepthStencilAttachment]]
		if tex == nil {
			tex = d.Textures[fb.Attachments[gpu.DepthAttachment]]
		}
	} else {
		tex = d.Textures[fb.Attachments[fb.ReadBuffer]]
	}
	if tex == nil {
		return
	}
	comps := 4
	if format == gpu.DepthComponent {
		comps = 1
	}
	for i := range dst {
		dst[i] = tex.Fill[i%comps]
	}
}

func (d *Device) Viewport(r gpu.Rect) {
	d.record("Viewport %d %d %d %d", r.X, r.Y, r.W, r.H)
	d.CurrentViewport = r
}

func (d *Device) ClearColor(r, g, b, a float32) { d.ClearRGBA = [4]float32{r, g, b, a} }

func (d *Device) Clear(mask gpu.Enum) {
	d.record("Clear %#x", uint32(mask))
	d.Clears = append(d.Clears, mask)
}

func (d *Device) Enable(capability gpu.Enum)  { d.Enabled[capability] = true }
func (d *Device) Disable(capability gpu.Enum) { d.Enabled[capability] = false }

func (d *Device) CullFace(face gpu.Enum) {
	d.record("CullFace %#x", uint32(face))
	d.CullMode = face
}

func (d *Device) CreateVertexArray(vertices []float32, stride int32, attribs ...gpu.VertexAttrib) (uint32, uint32) {
	vao := d.handle()
	vbo := d.handle()
	d.record("CreateVertexArray %d %d", len(vertices), stride)
	d.VertexArrays[vao] = append([]float32(nil), vertices...)
	d.Layouts[vao] = VertexLayout{Stride: stride, Attribs: append([]gpu.VertexAttrib(nil), attribs...)}
	return vao, vbo
}

func (d *Device) DeleteVertexArray(vao, vbo uint32) {
	delete(d.VertexArrays, vao)
	delete(d.Layouts, vao)
}

func (d *Device) DrawArrays(vao uint32, mode gpu.Enum, first, count int32) {
	d.record("DrawArrays %d %d", vao, count)
	units := make(map[uint32]uint32, len(d.Units))
	for k, v := range d.Units {
		units[k] = v
	}
	d.Draws = append(d.Draws, Draw{Program: d.CurrentProgram, VAO: vao, Mode: mode, Count: count, Units: units})
}

// Preprocess strips the lines a GLSL preprocessor would discard. Only
// #define, #undef, #ifdef, #ifndef, #else and #endif are understood.
func Preprocess(source string) string {
	defined := make(map[string]bool)
	var stack []bool // active state of each open conditional
	active := func() bool {
		for _, s := range stack {
			if !s {
				return false
			}
		}
		return true
	}
	var out strings.Builder
	for _, line := range strings.Split(source, "\n") {
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "#ifdef", "#ifndef":
			name := ""
			if len(f) > 1 {
				name = f[1]
			}
			cond := defined[name]
			if f[0] == "#ifndef" {
				cond = !cond
			}
			stack = append(stack, cond)
			continue
		case "#else":
			if len(stack) > 0 {
				stack[len(stack)-1] = !stack[len(stack)-1]
			}
			continue
		case "#endif":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if !active() {
			continue
		}
		switch f[0] {
		case "#define":
			if len(f) > 1 {
				defined[f[1]] = true
			}
		case "#undef":
			if len(f) > 1 {
				delete(defined, f[1])
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.String()
}

var _ gpu.Device = (*Device)(nil)
