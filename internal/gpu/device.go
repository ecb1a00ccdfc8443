// Package gpu describes the slice of the graphics API the rendering core
// issues commands through. Enum values are the OpenGL ones so backends can
// pass them straight to the driver.
package gpu

// Enum is an OpenGL enumerant.
type Enum uint32

const (
	None Enum = 0

	VertexShader   Enum = 0x8B31
	FragmentShader Enum = 0x8B30
	ComputeShader  Enum = 0x91B9

	Framebuffer     Enum = 0x8D40
	ReadFramebuffer Enum = 0x8CA8
	DrawFramebuffer Enum = 0x8CA9

	ColorAttachment0       Enum = 0x8CE0
	DepthAttachment        Enum = 0x8D00
	DepthStencilAttachment Enum = 0x821A

	FramebufferComplete          Enum = 0x8CD5
	FramebufferIncompleteAttach  Enum = 0x8CD6
	FramebufferIncompleteMissing Enum = 0x8CD7

	RGBA8            Enum = 0x8058
	RGBA16F          Enum = 0x881A
	RGBA             Enum = 0x1908
	Float            Enum = 0x1406
	UnsignedByte     Enum = 0x1401
	DepthComponent   Enum = 0x1902
	DepthComponent24 Enum = 0x81A6
	Depth24Stencil8  Enum = 0x88F0
	DepthStencil     Enum = 0x84F9
	UnsignedInt248   Enum = 0x84FA

	ColorBufferBit   Enum = 0x4000
	DepthBufferBit   Enum = 0x0100
	StencilBufferBit Enum = 0x0400

	Nearest Enum = 0x2600
	Linear  Enum = 0x2601

	CullFaceMode Enum = 0x0B44
	DepthTest    Enum = 0x0B71
	Front        Enum = 0x0404
	Back         Enum = 0x0405

	Triangles     Enum = 0x0004
	TriangleStrip Enum = 0x0005

	StaticDraw  Enum = 0x88E4
	DynamicDraw Enum = 0x88E8
)

// ColorAttachment returns COLOR_ATTACHMENTi.
func ColorAttachment(i int) Enum {
	return ColorAttachment0 + Enum(i)
}

// Profile is the API flavour a device runs on.
type Profile int

const (
	ProfileCore Profile = iota
	ProfileES
)

// Vertex attribute slots every shader declares its inputs against.
const (
	AttribPosition uint32 = iota
	AttribNormal
	AttribTangent
	AttribUV
	AttribBoneIndices
	AttribBoneWeights
	AttribColor
	AttribSpare
)

// VertexAttrib describes one float attribute inside an interleaved vertex.
type VertexAttrib struct {
	Index  uint32
	Size   int32 // components
	Offset int   // in floats
}

// Rect is an integer rectangle in framebuffer pixels.
type Rect struct {
	X, Y, W, H int32
}

// Device issues graphics commands. All methods must be called from the
// thread that owns the context.
type Device interface {
	Profile() Profile

	// CreateShader compiles one stage. The error carries the driver log.
	CreateShader(stage Enum, source string) (uint32, error)
	DeleteShader(shader uint32)
	// CreateProgram links the given stages and releases them afterwards.
	CreateProgram(shaders ...uint32) (uint32, error)
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	UniformBlockIndex(program uint32, name string) (uint32, bool)
	UniformBlockBinding(program, block, binding uint32)
	UniformLocation(program uint32, name string) int32
	Uniform1i(location, v int32)
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, x, y, z float32)

	CreateUniformBuffer(size int) uint32
	BufferSubData(buffer uint32, offset int, data []byte)
	BindBufferBase(binding, buffer uint32)
	DeleteBuffer(buffer uint32)

	// CreateTexture2D allocates a texture, uploading pixels when non-nil.
	CreateTexture2D(width, height int32, internalFormat, format, xtype Enum, pixels []byte) uint32
	DeleteTexture(texture uint32)
	ActiveTexture(unit uint32)
	BindTexture(texture uint32)

	CreateFramebuffer() uint32
	DeleteFramebuffer(fb uint32)
	BindFramebuffer(target Enum, fb uint32)
	FramebufferTexture2D(target, attachment Enum, texture uint32)
	DrawBuffers(attachments ...Enum)
	ReadBuffer(attachment Enum)
	CheckFramebufferStatus(target Enum) Enum
	BlitFramebuffer(src, dst Rect, mask, filter Enum)
	// ReadPixels reads from the bound read framebuffer as floats.
	ReadPixels(r Rect, format Enum, dst []float32)

	Viewport(r Rect)
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)
	Enable(capability Enum)
	Disable(capability Enum)
	CullFace(face Enum)

	// CreateVertexArray uploads interleaved vertices. stride, like the
	// attribute offsets, is counted in floats.
	CreateVertexArray(vertices []float32, stride int32, attribs ...VertexAttrib) (vao, vbo uint32)
	DeleteVertexArray(vao, vbo uint32)
	DrawArrays(vao uint32, mode Enum, first, count int32)
}
