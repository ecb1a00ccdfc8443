// Package gbuffer implements the geometry buffer written by the geometry
// pass and sampled by the deferred lighting pass.
package gbuffer

import (
	"image"
	"image/color"
	"io"
	"math"

	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/image/tiff"
)

// Component selects one attachment of the buffer.
type Component int

const (
	Position Component = iota
	Normal
	Albedo
	Depth
	componentCount
)

func (c Component) String() string {
	switch c {
	case Position:
		return "position"
	case Normal:
		return "normal"
	case Albedo:
		return "albedo"
	case Depth:
		return "depth"
	}
	return "invalid"
}

// GBuffer owns a framebuffer with three RGBA16F color attachments and a
// DEPTH24_STENCIL8 attachment. Either all of them exist or none does.
type GBuffer struct {
	dev      gpu.Device
	fb       uint32
	textures [componentCount]uint32
	width    int32
	height   int32
}

func New(dev gpu.Device) *GBuffer {
	return &GBuffer{dev: dev}
}

// Init (re)allocates the attachments. A zero dimension yields a 1x1
// buffer. An incomplete framebuffer releases everything and fails.
func (g *GBuffer) Init(width, height int32) error {
	g.Clear()
	if width <= 0 || height <= 0 {
		logger.Log.Warn("GBuffer dimension is zero, using 1x1",
			zap.Int32("width", width), zap.Int32("height", height))
		width, height = 1, 1
	}

	g.fb = g.dev.CreateFramebuffer()
	g.dev.BindFramebuffer(gpu.Framebuffer, g.fb)
	for c := Position; c <= Albedo; c++ {
		tex := g.dev.CreateTexture2D(width, height, gpu.RGBA16F, gpu.RGBA, gpu.Float, nil)
		g.dev.FramebufferTexture2D(gpu.Framebuffer, gpu.ColorAttachment(int(c)), tex)
		g.textures[c] = tex
	}
	depth := g.dev.CreateTexture2D(width, height, gpu.Depth24Stencil8, gpu.DepthStencil, gpu.UnsignedInt248, nil)
	g.dev.FramebufferTexture2D(gpu.Framebuffer, gpu.DepthStencilAttachment, depth)
	g.textures[Depth] = depth
	g.dev.DrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1), gpu.ColorAttachment(2))

	status := g.dev.CheckFramebufferStatus(gpu.Framebuffer)
	g.dev.BindFramebuffer(gpu.Framebuffer, 0)
	if status != gpu.FramebufferComplete {
		g.Clear()
		return errs.Newf(errs.General, "gbuffer.Init", "framebuffer incomplete (status %#x)", uint32(status))
	}

	g.width, g.height = width, height
	logger.Log.Debug("GBuffer initialized",
		zap.Uint32("framebuffer", g.fb),
		zap.Int32("width", width),
		zap.Int32("height", height))
	return nil
}

// Clear releases the framebuffer and its attachments.
func (g *GBuffer) Clear() {
	for i, tex := range g.textures {
		if tex != 0 {
			g.dev.DeleteTexture(tex)
			g.textures[i] = 0
		}
	}
	if g.fb != 0 {
		g.dev.DeleteFramebuffer(g.fb)
		g.fb = 0
	}
	g.width, g.height = 0, 0
}

func (g *GBuffer) Bind()   { g.dev.BindFramebuffer(gpu.Framebuffer, g.fb) }
func (g *GBuffer) Unbind() { g.dev.BindFramebuffer(gpu.Framebuffer, 0) }

// BindTexture binds component c to texture unit for sampling.
func (g *GBuffer) BindTexture(c Component, unit uint32) error {
	if c < 0 || c >= componentCount {
		return errs.Newf(errs.IndexOutOfBounds, "gbuffer.BindTexture", "invalid component %d", int(c))
	}
	if g.fb == 0 {
		return errs.New(errs.NotInitialized, "gbuffer.BindTexture", "gbuffer not initialized")
	}
	g.dev.ActiveTexture(unit)
	g.dev.BindTexture(g.textures[c])
	return nil
}

// BlitDepthBuffer copies the depth attachment into dst.
func (g *GBuffer) BlitDepthBuffer(dst uint32, src, dstRect gpu.Rect) {
	g.dev.BindFramebuffer(gpu.ReadFramebuffer, g.fb)
	g.dev.BindFramebuffer(gpu.DrawFramebuffer, dst)
	g.dev.BlitFramebuffer(src, dstRect, gpu.DepthBufferBit, gpu.Nearest)
	g.dev.BindFramebuffer(gpu.Framebuffer, 0)
}

func (g *GBuffer) RetrievePositionBuffer() (image.Image, error) { return g.Retrieve(Position) }
func (g *GBuffer) RetrieveNormalBuffer() (image.Image, error)   { return g.Retrieve(Normal) }
func (g *GBuffer) RetrieveAlbedoBuffer() (image.Image, error)   { return g.Retrieve(Albedo) }
func (g *GBuffer) RetrieveDepthBuffer() (image.Image, error)    { return g.Retrieve(Depth) }

// Retrieve reads component c back to the CPU. Color attachments become
// NRGBA64 images clamped to [0,1], depth becomes Gray16. ES devices cannot
// read these formats back; Retrieve returns a nil image for them.
func (g *GBuffer) Retrieve(c Component) (image.Image, error) {
	if c < 0 || c >= componentCount {
		return nil, errs.Newf(errs.IndexOutOfBounds, "gbuffer.Retrieve", "invalid component %d", int(c))
	}
	if g.fb == 0 {
		return nil, errs.New(errs.NotInitialized, "gbuffer.Retrieve", "gbuffer not initialized")
	}
	if g.dev.Profile() == gpu.ProfileES {
		logger.Log.Debug("GBuffer readback skipped on ES", zap.Stringer("component", c))
		return nil, nil
	}

	w, h := int(g.width), int(g.height)
	rect := gpu.Rect{W: g.width, H: g.height}
	g.dev.BindFramebuffer(gpu.ReadFramebuffer, g.fb)
	defer g.dev.BindFramebuffer(gpu.ReadFramebuffer, 0)

	if c == Depth {
		buf := make([]float32, w*h)
		g.dev.ReadPixels(rect, gpu.DepthComponent, buf)
		img := image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				// GL rows start at the bottom.
				img.SetGray16(x, h-1-y, color.Gray16{Y: unorm16(buf[y*w+x])})
			}
		}
		return img, nil
	}

	g.dev.ReadBuffer(gpu.ColorAttachment(int(c)))
	buf := make([]float32, w*h*4)
	g.dev.ReadPixels(rect, gpu.RGBA, buf)
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := buf[(y*w+x)*4:]
			img.SetNRGBA64(x, h-1-y, color.NRGBA64{
				R: unorm16(p[0]),
				G: unorm16(p[1]),
				B: unorm16(p[2]),
				A: unorm16(p[3]),
			})
		}
	}
	return img, nil
}

// ExportTIFF writes component c as a TIFF image.
func (g *GBuffer) ExportTIFF(w io.Writer, c Component) error {
	img, err := g.Retrieve(c)
	if err != nil {
		return err
	}
	if img == nil {
		return errs.Newf(errs.General, "gbuffer.ExportTIFF", "%v readback unsupported on this device", c)
	}
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

func unorm16(v float32) uint16 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	return uint16(v*math.MaxUint16 + 0.5)
}

func (g *GBuffer) Width() int32        { return g.width }
func (g *GBuffer) Height() int32       { return g.height }
func (g *GBuffer) Framebuffer() uint32 { return g.fb }

// Texture returns the texture behind component c, or 0.
func (g *GBuffer) Texture(c Component) uint32 {
	if c < 0 || c >= componentCount {
		return 0
	}
	return g.textures[c]
}
