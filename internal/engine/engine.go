// Package engine owns the window, the render device and the scene, and
// runs one deferred frame per loop iteration.
package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"Forge3D/internal/actor"
	"Forge3D/internal/behaviour"
	"Forge3D/internal/errs"
	"Forge3D/internal/gbuffer"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"
	"Forge3D/internal/renderer"
	"Forge3D/internal/shader"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FrameStats describes the last rendered frame.
type FrameStats struct {
	ShadowPasses int
	Drawn        int
	Culled       int
}

type Engine struct {
	Width             int32
	Height            int32
	Title             string
	Config            renderer.Config
	Camera            *renderer.Camera
	EnableCameraInput bool
	FrustumCulling    bool

	// ShaderDir, when set, replaces the embedded shaders with a directory
	// laid out like it and reloads files as they change.
	ShaderDir string
	// Assets is where textures are loaded from.
	Assets fs.FS

	window     *glfw.Window
	dev        gpu.Device
	shaders    *shader.Manager
	rd         *renderer.RenderDevice
	textures   *renderer.TextureManager
	watcher    *shader.Watcher
	behaviours *behaviour.Manager

	meshes   []*actor.StaticMesh
	lights   []*renderer.Light
	selected *actor.StaticMesh

	pendingShadows []shadowRequest

	started          bool
	frameTrackId     int
	stats            FrameStats
	onRenderCallback func(deltaTime float64)
	mouse            mouseState
}

func New(cfg renderer.Config) *Engine {
	return &Engine{
		Width:             1280,
		Height:            720,
		Title:             "Forge3D",
		Config:            cfg,
		EnableCameraInput: true,
		FrustumCulling:    true,
		behaviours:        behaviour.NewManager(),
	}
}

// Start brings up the render device on dev. win may be nil for offscreen
// use. Meshes and lights added before Start are initialized here.
func (e *Engine) Start(dev gpu.Device, win renderer.Window) (err error) {
	if e.started {
		return errs.New(errs.General, "Engine.Start", "already started")
	}
	if dev == nil {
		return errs.New(errs.NullPointer, "Engine.Start", "nil device")
	}
	e.dev = dev

	var assets fs.FS = shader.Assets
	if e.ShaderDir != "" {
		assets = os.DirFS(e.ShaderDir)
	}
	e.shaders = shader.NewManager(dev, assets)
	e.textures = renderer.NewTextureManager(dev, e.Assets)
	e.rd = renderer.NewRenderDevice(dev, e.shaders)

	cfg := e.Config
	if win != nil {
		cfg.AttachedWindow = win
	}
	if err = e.rd.Init(cfg); err != nil {
		e.shaders.Close()
		return err
	}

	if e.ShaderDir != "" {
		if e.watcher, err = shader.NewWatcher(e.shaders, e.ShaderDir); err != nil {
			logger.Log.Warn("Shader hot reload disabled", zap.Error(err))
			err = nil
		}
	}

	if e.Camera == nil {
		e.Camera = renderer.NewDefaultCamera(e.Height, e.Width)
	}
	if err = e.rd.ActivateCamera(e.Camera); err != nil {
		e.rd.Close()
		return err
	}
	e.started = true

	for _, m := range e.meshes {
		e.initMesh(m)
	}
	for _, l := range e.lights {
		if lerr := e.rd.AddLight(l); lerr != nil {
			logger.Log.Warn("Light not registered", zap.Stringer("type", l.Type()), zap.Error(lerr))
		}
	}
	for _, req := range e.pendingShadows {
		if serr := req.light.InitShadowCasting(dev, req.size, req.size, req.projection); serr != nil {
			logger.Log.Warn("Shadow map not created", zap.Stringer("type", req.light.Type()), zap.Error(serr))
		}
	}
	e.pendingShadows = nil
	logger.Log.Info("Engine started",
		zap.Int("meshes", len(e.meshes)),
		zap.Int("lights", len(e.lights)))
	return nil
}

func (e *Engine) initMesh(m *actor.StaticMesh) {
	// A failed mesh is logged by Init and keeps its place in the scene.
	_ = m.Init(e.rd, e.textures)
}

func (e *Engine) AddMesh(m *actor.StaticMesh) {
	e.meshes = append(e.meshes, m)
	if e.started {
		e.initMesh(m)
	}
}

// AddLight registers l with the render device once the engine runs.
func (e *Engine) AddLight(l *renderer.Light) error {
	if l == nil {
		return errs.New(errs.NullPointer, "Engine.AddLight", "nil light")
	}
	if e.started {
		if err := e.rd.AddLight(l); err != nil {
			return err
		}
	}
	e.lights = append(e.lights, l)
	return nil
}

type shadowRequest struct {
	light      *renderer.Light
	size       int32
	projection mgl32.Mat4
}

// EnableShadows gives l a square shadow map, at Start when the engine is
// not running yet. Registered lights pick the change up through their
// notifications.
func (e *Engine) EnableShadows(l *renderer.Light, size int32, projection mgl32.Mat4) error {
	if l == nil {
		return errs.New(errs.NullPointer, "Engine.EnableShadows", "nil light")
	}
	if !e.started {
		e.pendingShadows = append(e.pendingShadows, shadowRequest{l, size, projection})
		return nil
	}
	return l.InitShadowCasting(e.dev, size, size, projection)
}

func (e *Engine) AddBehaviour(b behaviour.Behaviour) { e.behaviours.Add(b) }

func (e *Engine) Meshes() []*actor.StaticMesh              { return e.meshes }
func (e *Engine) Lights() []*renderer.Light                { return e.lights }
func (e *Engine) Selected() *actor.StaticMesh              { return e.selected }
func (e *Engine) Stats() FrameStats                        { return e.stats }
func (e *Engine) RenderDevice() *renderer.RenderDevice     { return e.rd }
func (e *Engine) TextureManager() *renderer.TextureManager { return e.textures }
func (e *Engine) Window() *glfw.Window                     { return e.window }

// SetOnRenderCallback sets a callback that will be called each frame after the 3D scene is rendered
func (e *Engine) SetOnRenderCallback(callback func(deltaTime float64)) {
	e.onRenderCallback = callback
}

// Frame applies pending shader edits, advances behaviours and renders.
func (e *Engine) Frame(deltaTime float64) error {
	if !e.started {
		return errs.New(errs.NotInitialized, "Engine.Frame", "engine not started")
	}
	if e.watcher != nil {
		if err := e.watcher.Apply(); err != nil {
			logger.Log.Warn("Shader reload failed", zap.Error(err))
		}
	}

	if e.frameTrackId >= 2 {
		e.behaviours.UpdateAllFixed(e)
		e.frameTrackId = 0
	}
	e.behaviours.UpdateAll(e, deltaTime)

	err := e.RenderFrame()
	if e.onRenderCallback != nil {
		e.onRenderCallback(deltaTime)
	}
	e.frameTrackId++
	return err
}

// RenderFrame runs a shadow pass per registered caster, then the geometry,
// lighting and forward passes. Meshes outside the camera frustum skip the
// geometry pass.
func (e *Engine) RenderFrame() error {
	var err error
	stats := FrameStats{}

	for _, l := range e.lights {
		if !l.CastsShadows() {
			continue
		}
		if _, ok := e.rd.ActiveLight(l); !ok {
			continue
		}
		if perr := e.rd.ActivatePass(renderer.PassShadow, l, true); perr != nil {
			err = multierr.Append(err, perr)
			continue
		}
		stats.ShadowPasses++
		for _, m := range e.meshes {
			err = multierr.Append(err, m.Draw(e.rd))
		}
	}

	if perr := e.rd.ActivatePass(renderer.PassGeometry, nil, true); perr != nil {
		return multierr.Append(err, perr)
	}
	frustum := e.Camera.CalculateFrustum()
	for _, m := range e.meshes {
		if e.FrustumCulling {
			center, radius := m.BoundingSphere()
			if !frustum.IntersectsSphere(center, radius) {
				stats.Culled++
				continue
			}
		}
		err = multierr.Append(err, m.Draw(e.rd))
		stats.Drawn++
	}

	err = multierr.Append(err, e.rd.ActivatePass(renderer.PassLighting, nil, true))
	err = multierr.Append(err, e.rd.ActivatePass(renderer.PassForward, nil, true))
	e.stats = stats
	return err
}

// Resize follows a framebuffer size change.
func (e *Engine) Resize(width, height int32) error {
	if width <= 0 || height <= 0 {
		// minimized
		return nil
	}
	e.Width, e.Height = width, height
	if e.Camera != nil {
		e.Camera.SetAspectRatio(float32(width) / float32(height))
	}
	if !e.started {
		return nil
	}
	return e.rd.Resize(width, height)
}

// Pick selects the mesh under a window pixel, or clears the selection.
func (e *Engine) Pick(x, y float32) *actor.StaticMesh {
	ray := actor.ScreenToRay(e.Camera, x, y, int(e.Width), int(e.Height))
	picked, dist := actor.Pick(e.meshes, ray)
	e.selected = picked
	if picked != nil {
		logger.Log.Info("Mesh picked", zap.String("mesh", picked.Name), zap.Float32("distance", dist))
	}
	return picked
}

// DumpGBuffer writes every GBuffer attachment to dir as <component>.tiff.
func (e *Engine) DumpGBuffer(dir string) error {
	if !e.started || e.rd.GBuffer() == nil {
		return errs.New(errs.NotInitialized, "Engine.DumpGBuffer", "no gbuffer")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.General, "Engine.DumpGBuffer", err)
	}
	var err error
	for _, c := range []gbuffer.Component{gbuffer.Position, gbuffer.Normal, gbuffer.Albedo, gbuffer.Depth} {
		err = multierr.Append(err, e.dumpComponent(filepath.Join(dir, fmt.Sprintf("%v.tiff", c)), c))
	}
	return err
}

func (e *Engine) dumpComponent(path string, c gbuffer.Component) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.General, "Engine.DumpGBuffer", err)
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	if err = e.rd.GBuffer().ExportTIFF(f, c); err != nil {
		return err
	}
	logger.Log.Info("GBuffer attachment written", zap.Stringer("component", c), zap.String("path", path))
	return nil
}

// Close releases scene resources and the render device. The engine can be
// started again afterwards.
func (e *Engine) Close() {
	if !e.started {
		return
	}
	for _, m := range e.meshes {
		m.Release()
	}
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			logger.Log.Warn("Closing shader watcher", zap.Error(err))
		}
		e.watcher = nil
	}
	e.textures.Clear()
	e.rd.Close()
	for _, l := range e.lights {
		if l.CastsShadows() {
			l.ReleaseShadowCasting(e.dev)
		}
	}
	e.shaders.Close()
	e.started = false
}
