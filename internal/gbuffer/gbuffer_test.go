package gbuffer

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/gpu/gputest"

	"golang.org/x/image/tiff"
)

func newGBuffer(t *testing.T, w, h int32) (*GBuffer, *gputest.Device) {
	t.Helper()
	dev := gputest.New()
	g := New(dev)
	if err := g.Init(w, h); err != nil {
		t.Fatalf("Init(%d, %d) failed: %v", w, h, err)
	}
	return g, dev
}

func TestInitIsComplete(t *testing.T) {
	g, dev := newGBuffer(t, 800, 600)

	if g.Width() != 800 || g.Height() != 600 {
		t.Errorf("size = %dx%d, want 800x600", g.Width(), g.Height())
	}
	if dev.DrawFB != 0 {
		t.Error("Init should leave the default framebuffer bound")
	}
	dev.BindFramebuffer(gpu.Framebuffer, g.Framebuffer())
	if status := dev.CheckFramebufferStatus(gpu.Framebuffer); status != gpu.FramebufferComplete {
		t.Errorf("status = %#x", uint32(status))
	}

	fb := dev.Framebuffers[g.Framebuffer()]
	for c := Position; c <= Albedo; c++ {
		tex := fb.Attachments[gpu.ColorAttachment(int(c))]
		if tex == 0 || tex != g.Texture(c) {
			t.Errorf("%v not attached", c)
			continue
		}
		if f := dev.Textures[tex].InternalFormat; f != gpu.RGBA16F {
			t.Errorf("%v format = %#x", c, uint32(f))
		}
	}
	depth := fb.Attachments[gpu.DepthStencilAttachment]
	if depth == 0 || dev.Textures[depth].InternalFormat != gpu.Depth24Stencil8 {
		t.Error("depth-stencil attachment missing")
	}
	if len(fb.DrawBuffers) != 3 {
		t.Errorf("DrawBuffers = %v", fb.DrawBuffers)
	}
}

func TestClearReleasesEverything(t *testing.T) {
	g, dev := newGBuffer(t, 64, 32)

	g.Clear()

	if g.Width() != 0 || g.Height() != 0 {
		t.Errorf("size after Clear = %dx%d", g.Width(), g.Height())
	}
	if g.Framebuffer() != 0 {
		t.Error("framebuffer should be released")
	}
	if len(dev.Textures) != 0 || len(dev.Framebuffers) != 0 {
		t.Errorf("leaked %d textures, %d framebuffers", len(dev.Textures), len(dev.Framebuffers))
	}
}

func TestInitZeroDimension(t *testing.T) {
	g, _ := newGBuffer(t, 0, 600)

	if g.Width() != 1 || g.Height() != 1 {
		t.Errorf("size = %dx%d, want 1x1", g.Width(), g.Height())
	}
}

func TestInitIncompleteFramebuffer(t *testing.T) {
	dev := gputest.New()
	dev.Status = gpu.FramebufferIncompleteAttach
	g := New(dev)

	err := g.Init(128, 128)
	if !errors.Is(err, errs.ErrGeneral) {
		t.Fatalf("expected general error, got %v", err)
	}
	if g.Framebuffer() != 0 || g.Width() != 0 {
		t.Error("failed Init should leave the buffer empty")
	}
	if len(dev.Textures) != 0 || len(dev.Framebuffers) != 0 {
		t.Error("failed Init should release its resources")
	}
}

func TestReinitReplacesResources(t *testing.T) {
	g, dev := newGBuffer(t, 64, 64)
	old := g.Framebuffer()

	if err := g.Init(128, 64); err != nil {
		t.Fatal(err)
	}
	if _, ok := dev.Framebuffers[old]; ok {
		t.Error("old framebuffer should be deleted")
	}
	if len(dev.Textures) != 4 {
		t.Errorf("expected 4 live textures, got %d", len(dev.Textures))
	}
}

func TestBindTexture(t *testing.T) {
	g, dev := newGBuffer(t, 16, 16)

	if err := g.BindTexture(Normal, 5); err != nil {
		t.Fatal(err)
	}
	if dev.Units[5] != g.Texture(Normal) {
		t.Error("normal texture not bound to unit 5")
	}

	if err := g.BindTexture(Component(7), 0); !errors.Is(err, errs.ErrIndexOutOfBounds) {
		t.Errorf("invalid component: %v", err)
	}
	if err := g.BindTexture(Component(-1), 0); !errors.Is(err, errs.ErrIndexOutOfBounds) {
		t.Errorf("negative component: %v", err)
	}

	g.Clear()
	if err := g.BindTexture(Albedo, 0); !errors.Is(err, errs.ErrNotInitialized) {
		t.Errorf("cleared buffer: %v", err)
	}
}

func TestBlitDepthBuffer(t *testing.T) {
	g, dev := newGBuffer(t, 32, 32)
	src := gpu.Rect{W: 32, H: 32}
	dst := gpu.Rect{W: 64, H: 64}

	g.BlitDepthBuffer(0, src, dst)

	if len(dev.Blits) != 1 {
		t.Fatalf("expected one blit, got %d", len(dev.Blits))
	}
	b := dev.Blits[0]
	if b.ReadFB != g.Framebuffer() || b.DrawFB != 0 {
		t.Errorf("blit %d -> %d", b.ReadFB, b.DrawFB)
	}
	if b.Mask != gpu.DepthBufferBit || b.Src != src || b.Dst != dst {
		t.Errorf("unexpected blit %+v", b)
	}
}

func TestRetrieveBuffers(t *testing.T) {
	g, dev := newGBuffer(t, 4, 2)
	dev.Textures[g.Texture(Albedo)].Fill = [4]float32{1, 0.5, 0, 1}
	dev.Textures[g.Texture(Depth)].Fill = [4]float32{0.25}

	img, err := g.RetrieveAlbedoBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	c := img.(*image.NRGBA64).NRGBA64At(3, 1)
	if c.R != 65535 || c.G != 32768 || c.B != 0 || c.A != 65535 {
		t.Errorf("albedo texel = %+v", c)
	}

	depth, err := g.RetrieveDepthBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if y := depth.(*image.Gray16).Gray16At(0, 0).Y; y != 16384 {
		t.Errorf("depth texel = %d, want 16384", y)
	}
}

func TestRetrieveSkippedOnES(t *testing.T) {
	dev := gputest.New()
	dev.Prof = gpu.ProfileES
	g := New(dev)
	if err := g.Init(8, 8); err != nil {
		t.Fatal(err)
	}

	img, err := g.RetrievePositionBuffer()
	if err != nil || img != nil {
		t.Errorf("expected a no-op, got %v, %v", img, err)
	}
	if err := g.ExportTIFF(&bytes.Buffer{}, Position); err == nil {
		t.Error("export should fail without readback")
	}
}

func TestExportTIFF(t *testing.T) {
	g, _ := newGBuffer(t, 8, 4)

	var buf bytes.Buffer
	if err := g.ExportTIFF(&buf, Normal); err != nil {
		t.Fatalf("ExportTIFF failed: %v", err)
	}
	img, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}
