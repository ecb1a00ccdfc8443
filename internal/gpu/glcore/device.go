// Package glcore implements gpu.Device on an OpenGL 4.3 core context.
package glcore

import (
	"fmt"
	"strings"
	"unsafe"

	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"
)

type Device struct{}

// New loads the GL function pointers. A context must be current.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initialize OpenGL: %w", err)
	}
	logger.Log.Info("OpenGL device initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return &Device{}, nil
}

func (d *Device) Profile() gpu.Profile { return gpu.ProfileCore }

func (d *Device) CreateShader(stage gpu.Enum, source string) (uint32, error) {
	shader := gl.CreateShader(uint32(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func (d *Device) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (d *Device) CreateProgram(shaders ...uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, s)
		gl.DeleteShader(s)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func (d *Device) DeleteProgram(program uint32) { gl.DeleteProgram(program) }
func (d *Device) UseProgram(program uint32)    { gl.UseProgram(program) }

func (d *Device) UniformBlockIndex(program uint32, name string) (uint32, bool) {
	idx := gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
	return idx, idx != gl.INVALID_INDEX
}

func (d *Device) UniformBlockBinding(program, block, binding uint32) {
	gl.UniformBlockBinding(program, block, binding)
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(location, v int32)         { gl.Uniform1i(location, v) }
func (d *Device) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }
func (d *Device) Uniform3f(location int32, x, y, z float32) {
	gl.Uniform3f(location, x, y, z)
}

func (d *Device) CreateUniformBuffer(size int) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.UNIFORM_BUFFER, buf)
	gl.BufferData(gl.UNIFORM_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return buf
}

func (d *Device) BufferSubData(buffer uint32, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, buffer)
	gl.BufferSubData(gl.UNIFORM_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (d *Device) BindBufferBase(binding, buffer uint32) {
	gl.BindBufferBase(gl.UNIFORM_BUFFER, binding, buffer)
}

func (d *Device) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

func (d *Device) CreateTexture2D(width, height int32, internalFormat, format, xtype gpu.Enum, pixels []byte) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internalFormat), width, height, 0, uint32(format), uint32(xtype), ptr)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func (d *Device) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

func (d *Device) ActiveTexture(unit uint32)  { gl.ActiveTexture(gl.TEXTURE0 + unit) }
func (d *Device) BindTexture(texture uint32) { gl.BindTexture(gl.TEXTURE_2D, texture) }

func (d *Device) CreateFramebuffer() uint32 {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return fb
}

func (d *Device) DeleteFramebuffer(fb uint32) { gl.DeleteFramebuffers(1, &fb) }

func (d *Device) BindFramebuffer(target gpu.Enum, fb uint32) {
	gl.BindFramebuffer(uint32(target), fb)
}

func (d *Device) FramebufferTexture2D(target, attachment gpu.Enum, texture uint32) {
	gl.FramebufferTexture2D(uint32(target), uint32(attachment), gl.TEXTURE_2D, texture, 0)
}

func (d *Device) DrawBuffers(attachments ...gpu.Enum) {
	if len(attachments) == 1 && attachments[0] == gpu.None {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, len(attachments))
	for i, a := range attachments {
		bufs[i] = uint32(a)
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

func (d *Device) ReadBuffer(attachment gpu.Enum) { gl.ReadBuffer(uint32(attachment)) }

func (d *Device) CheckFramebufferStatus(target gpu.Enum) gpu.Enum {
	return gpu.Enum(gl.CheckFramebufferStatus(uint32(target)))
}

func (d *Device) BlitFramebuffer(src, dst gpu.Rect, mask, filter gpu.Enum) {
	gl.BlitFramebuffer(src.X, src.Y, src.X+src.W, src.Y+src.H,
		dst.X, dst.Y, dst.X+dst.W, dst.Y+dst.H, uint32(mask), uint32(filter))
}

func (d *Device) ReadPixels(r gpu.Rect, format gpu.Enum, dst []float32) {
	if len(dst) == 0 {
		return
	}
	gl.ReadPixels(r.X, r.Y, r.W, r.H, uint32(format), gl.FLOAT, gl.Ptr(dst))
}

func (d *Device) Viewport(r gpu.Rect)           { gl.Viewport(r.X, r.Y, r.W, r.H) }
func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (d *Device) Clear(mask gpu.Enum)           { gl.Clear(uint32(mask)) }
func (d *Device) Enable(capability gpu.Enum)    { gl.Enable(uint32(capability)) }
func (d *Device) Disable(capability gpu.Enum)   { gl.Disable(uint32(capability)) }
func (d *Device) CullFace(face gpu.Enum)        { gl.CullFace(uint32(face)) }

func (d *Device) CreateVertexArray(vertices []float32, stride int32, attribs ...gpu.VertexAttrib) (uint32, uint32) {
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	const floatSize = 4
	for _, a := range attribs {
		gl.VertexAttribPointer(a.Index, a.Size, gl.FLOAT, false, stride*floatSize, gl.PtrOffset(a.Offset*floatSize))
		gl.EnableVertexAttribArray(a.Index)
	}
	gl.BindVertexArray(0)
	return vao, vbo
}

func (d *Device) DeleteVertexArray(vao, vbo uint32) {
	gl.DeleteVertexArrays(1, &vao)
	gl.DeleteBuffers(1, &vbo)
}

func (d *Device) DrawArrays(vao uint32, mode gpu.Enum, first, count int32) {
	gl.BindVertexArray(vao)
	gl.DrawArrays(uint32(mode), first, count)
	gl.BindVertexArray(0)
}

var _ gpu.Device = (*Device)(nil)
