package renderer

import (
	"Forge3D/internal/errs"
	"Forge3D/internal/event"
	"Forge3D/internal/gbuffer"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"
	"Forge3D/internal/shader"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// RenderDevice drives the per-frame pass protocol. It owns the engine's
// uniform buffers, the GBuffer and the light registry. Lights, cameras and
// materials are referenced, never owned.
type RenderDevice struct {
	dev     gpu.Device
	shaders *shader.Manager
	cfg     Config

	initialized bool

	cameraUBO   *CameraUBO
	modelUBO    *ModelUBO
	materialUBO *MaterialUBO
	lightUBOs   [lightTypeCount]*LightsUBO

	gbuffer *gbuffer.GBuffer
	quad    *ScreenQuad

	deferredShader *shader.Program
	shadowShader   *shader.Program

	lights    [lightTypeCount][]*ActiveLight
	registry  map[*Light]*ActiveLight
	lightSubs map[*Light]event.Subscription
	slots     shadowSlots

	viewports [passCount]Viewport

	activePass     Pass
	activeShader   *shader.Program
	activeMaterial *Material
	activeCamera   *Camera
	cameraSub      event.Subscription
}

func NewRenderDevice(dev gpu.Device, shaders *shader.Manager) *RenderDevice {
	return &RenderDevice{
		dev:        dev,
		shaders:    shaders,
		activePass: passNone,
		registry:   make(map[*Light]*ActiveLight),
		lightSubs:  make(map[*Light]event.Subscription),
	}
}

// Init allocates the uniform buffers, the GBuffer and the built-in
// shaders. Any failure releases what was created and is fatal.
func (rd *RenderDevice) Init(cfg Config) (err error) {
	const op = "RenderDevice.Init"
	if rd.initialized {
		return errs.New(errs.General, op, "already initialized")
	}
	if rd.shaders == nil {
		return errs.New(errs.NullPointer, op, "nil shader manager")
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	rd.cfg = cfg

	var unwind Unwind
	defer func() {
		if err != nil {
			unwind.Unwind()
			logger.Log.Error("Render device initialization failed", zap.Error(err))
		}
	}()

	rd.cameraUBO = newCameraUBO(rd.dev)
	rd.modelUBO = newModelUBO(rd.dev)
	rd.materialUBO = newMaterialUBO(rd.dev)
	for t := DirectionalLight; t < lightTypeCount; t++ {
		rd.lightUBOs[t] = newLightsUBO(rd.dev, t, cfg.capacity(t))
	}
	unwind.Add(rd.releaseBuffers)

	if cfg.UseGBuffer {
		w, h := cfg.GBufferWidth, cfg.GBufferHeight
		if cfg.MatchGBufferAndWindow && cfg.AttachedWindow != nil {
			fw, fh := cfg.AttachedWindow.GetFramebufferSize()
			w, h = int32(fw), int32(fh)
		}
		rd.gbuffer = gbuffer.New(rd.dev)
		if err := rd.gbuffer.Init(w, h); err != nil {
			rd.gbuffer = nil
			return errs.Wrap(errs.General, op, err)
		}
		rd.quad = NewScreenQuad(rd.dev)
		unwind.Add(func() {
			rd.gbuffer.Clear()
			rd.gbuffer = nil
			rd.quad.Release()
			rd.quad = nil
		})
	}

	if err := rd.shaders.ConfigShader(cfg.lightConfig()); err != nil {
		return errs.Wrap(errs.General, op, err)
	}
	if err := rd.shaders.ConfigPostProcessing(cfg.PostProcessing); err != nil {
		return errs.Wrap(errs.General, op, err)
	}

	if cfg.ExecuteLightingPass {
		if err := rd.buildBuiltinShaders(); err != nil {
			return errs.Wrap(errs.General, op, err)
		}
		unwind.Add(func() { rd.deferredShader, rd.shadowShader = nil, nil })
	}

	rd.resetViewports()
	rd.initialized = true
	unwind.Discard()

	logger.Log.Info("Render device initialized",
		zap.Uint32("directionalLights", cfg.DirectionalLightsCount),
		zap.Uint32("pointLights", cfg.PointLightsCount),
		zap.Uint32("spotLights", cfg.SpotLightsCount),
		zap.Bool("gbuffer", cfg.UseGBuffer),
		zap.Bool("lightingPass", cfg.ExecuteLightingPass),
		zap.Bool("pbs", cfg.PhysicallyBasedShading))
	return nil
}

func (rd *RenderDevice) buildBuiltinShaders() error {
	version, precision := rd.cfg.GLSLVersion, rd.cfg.PrecisionTag

	lightingFrag := shader.DeferredLightingPhongFrag
	if rd.cfg.PhysicallyBasedShading {
		lightingFrag = shader.DeferredLightingPBSFrag
	}
	quadVS, err := rd.shaders.CreateShaderCode(shader.ScreenQuadVert, version, 0, precision)
	if err != nil {
		return err
	}
	lightingFS, err := rd.shaders.CreateShaderCode(lightingFrag, version,
		shader.ConfigLighting|shader.ConfigPostProcessing, precision)
	if err != nil {
		return err
	}
	if rd.deferredShader, err = rd.shaders.BuildShader([]*shader.Code{quadVS}, []*shader.Code{lightingFS}); err != nil {
		return err
	}

	shadowVS, err := rd.shaders.CreateShaderCode(shader.ShadowPassVert, version, shader.ConfigLighting, precision)
	if err != nil {
		return err
	}
	shadowFS, err := rd.shaders.CreateShaderCode(shader.ShadowPassFrag, version, 0, precision)
	if err != nil {
		return err
	}
	rd.shadowShader, err = rd.shaders.BuildShader([]*shader.Code{shadowVS}, []*shader.Code{shadowFS})
	return err
}

// defaultSize is the forward buffer size when configured, else the window
// framebuffer size, else the GBuffer size.
func (rd *RenderDevice) defaultSize() [2]int32 {
	if rd.cfg.ForwardBufferWidth > 0 && rd.cfg.ForwardBufferHeight > 0 {
		return [2]int32{rd.cfg.ForwardBufferWidth, rd.cfg.ForwardBufferHeight}
	}
	if rd.cfg.AttachedWindow != nil {
		w, h := rd.cfg.AttachedWindow.GetFramebufferSize()
		return [2]int32{int32(w), int32(h)}
	}
	return rd.gbufferSize()
}

func (rd *RenderDevice) gbufferSize() [2]int32 {
	if rd.gbuffer != nil {
		return [2]int32{rd.gbuffer.Width(), rd.gbuffer.Height()}
	}
	return [2]int32{rd.cfg.GBufferWidth, rd.cfg.GBufferHeight}
}

func (rd *RenderDevice) resetViewports() {
	size := rd.defaultSize()
	for p := range rd.viewports {
		rd.viewports[p] = Viewport{Size: size}
	}
	rd.viewports[PassGeometry] = Viewport{Size: rd.gbufferSize()}
}

// ActivatePass switches the pipeline state for pass. light is required for
// PassShadow and ignored otherwise. The active shader and material are
// reset on every call.
func (rd *RenderDevice) ActivatePass(pass Pass, light *Light, clear bool) error {
	const op = "RenderDevice.ActivatePass"
	if !rd.initialized {
		return errs.New(errs.NotInitialized, op, "render device not initialized")
	}
	rd.activeShader = nil
	rd.activeMaterial = nil
	if !pass.valid() {
		return errs.Newf(errs.IndexOutOfBounds, op, "invalid pass %d", int(pass))
	}

	switch pass {
	case PassShadow:
		if err := rd.activateShadowPass(light, clear); err != nil {
			return err
		}
	case PassGeometry:
		if rd.gbuffer == nil {
			return errs.New(errs.NotInitialized, op, "geometry pass without gbuffer")
		}
		rd.gbuffer.Bind()
		rd.dev.Viewport(rd.viewports[PassGeometry].rect())
		if clear {
			rd.dev.Clear(gpu.ColorBufferBit | gpu.DepthBufferBit | gpu.StencilBufferBit)
		}
		rd.dev.Enable(gpu.DepthTest)
		rd.dev.Enable(gpu.CullFaceMode)
		rd.dev.CullFace(gpu.Back)
	case PassLighting:
		rd.activateLightingPass(clear)
	case PassForward:
		rd.activateForwardPass(clear)
	case PassLOD:
	}

	rd.activePass = pass
	return nil
}

func (rd *RenderDevice) activateShadowPass(light *Light, clear bool) error {
	const op = "RenderDevice.ActivatePass"
	if light == nil {
		return errs.New(errs.NullPointer, op, "shadow pass without a light")
	}
	al, ok := rd.registry[light]
	if !ok {
		return errs.New(errs.General, op, "shadow pass light is not registered")
	}
	if !light.CastsShadows() {
		return errs.New(errs.General, op, "shadow pass light does not cast shadows")
	}
	if rd.shadowShader == nil || !rd.shadowShader.Valid() {
		return errs.New(errs.NotInitialized, op, "shadow pass shader unavailable")
	}

	rd.dev.BindFramebuffer(gpu.Framebuffer, light.ShadowFramebuffer())
	w, h := light.ShadowMapSize()
	rd.viewports[PassShadow] = Viewport{Size: [2]int32{w, h}}
	rd.dev.Viewport(rd.viewports[PassShadow].rect())
	if clear {
		rd.dev.Clear(gpu.DepthBufferBit)
	}

	rd.dev.UseProgram(rd.shadowShader.Handle())
	u := rd.shadowShader.Uniforms()
	u.SetInt("ActiveLightID", int32(al.UBOIndex))
	u.SetInt("ActiveLightType", int32(light.Type()))

	rd.dev.Enable(gpu.DepthTest)
	rd.dev.Enable(gpu.CullFaceMode)
	rd.dev.CullFace(gpu.Front)
	return nil
}

var gbufferSamplers = [...]struct {
	component gbuffer.Component
	sampler   shader.Sampler
}{
	{gbuffer.Position, shader.TexPosition},
	{gbuffer.Normal, shader.TexNormal},
	{gbuffer.Albedo, shader.TexAlbedo},
	{gbuffer.Depth, shader.TexDepth},
}

func (rd *RenderDevice) activateLightingPass(clear bool) {
	if rd.gbuffer != nil {
		rd.gbuffer.Unbind()
	} else {
		rd.dev.BindFramebuffer(gpu.Framebuffer, 0)
	}
	rd.dev.Viewport(rd.viewports[PassLighting].rect())

	p := rd.deferredShader
	if !rd.cfg.ExecuteLightingPass || rd.gbuffer == nil || p == nil || !p.Valid() {
		return
	}
	if clear {
		rd.dev.Clear(gpu.ColorBufferBit)
	}
	rd.dev.Disable(gpu.DepthTest)
	rd.dev.UseProgram(p.Handle())
	rd.bindBlocks(p)
	for _, s := range gbufferSamplers {
		if unit, ok := p.TextureUnit(s.sampler); ok {
			_ = rd.gbuffer.BindTexture(s.component, unit)
		}
	}
	rd.bindShadowMaps(p)
	rd.quad.Render()
	rd.dev.Enable(gpu.DepthTest)
}

func (rd *RenderDevice) activateForwardPass(clear bool) {
	vp := rd.viewports[PassForward]
	if rd.gbuffer != nil {
		size := rd.gbufferSize()
		rd.gbuffer.BlitDepthBuffer(0, gpu.Rect{W: size[0], H: size[1]}, vp.rect())
	}
	rd.dev.BindFramebuffer(gpu.Framebuffer, 0)
	rd.dev.Viewport(vp.rect())
	rd.dev.Enable(gpu.DepthTest)
	rd.dev.Enable(gpu.CullFaceMode)
	rd.dev.CullFace(gpu.Back)

	if !clear {
		return
	}
	// Depth came from the GBuffer blit and color from the lighting pass.
	mask := gpu.ColorBufferBit | gpu.DepthBufferBit
	if rd.gbuffer != nil {
		mask &^= gpu.DepthBufferBit
	}
	if rd.cfg.ExecuteLightingPass {
		mask &^= gpu.ColorBufferBit
	}
	if mask != 0 {
		rd.dev.Clear(mask)
	}
}

// ActivateShader makes p current and binds the engine's uniform buffers,
// shadow maps and the active material's textures to it.
func (rd *RenderDevice) ActivateShader(p *shader.Program) error {
	const op = "RenderDevice.ActivateShader"
	if !rd.initialized {
		return errs.New(errs.NotInitialized, op, "render device not initialized")
	}
	if p == nil {
		return errs.New(errs.NullPointer, op, "nil program")
	}
	if p == rd.activeShader {
		return nil
	}
	if !p.Valid() {
		if p.Err() != nil {
			return errs.Wrap(errs.General, op, p.Err())
		}
		return errs.New(errs.General, op, "program not linked")
	}

	rd.dev.UseProgram(p.Handle())
	rd.bindBlocks(p)
	rd.bindShadowMaps(p)
	rd.activeShader = p
	if rd.activeMaterial != nil {
		rd.bindMaterialTextures(rd.activeMaterial)
	}
	return nil
}

func (rd *RenderDevice) blockBuffer(b shader.Block) uint32 {
	switch b {
	case shader.BlockCamera:
		return rd.cameraUBO.Handle()
	case shader.BlockModel:
		return rd.modelUBO.Handle()
	case shader.BlockMaterial:
		return rd.materialUBO.Handle()
	case shader.BlockDirectionalLights:
		return rd.lightUBOs[DirectionalLight].Handle()
	case shader.BlockPointLights:
		return rd.lightUBOs[PointLight].Handle()
	case shader.BlockSpotLights:
		return rd.lightUBOs[SpotLight].Handle()
	}
	return 0
}

var engineBlocks = [...]shader.Block{
	shader.BlockCamera,
	shader.BlockModel,
	shader.BlockMaterial,
	shader.BlockDirectionalLights,
	shader.BlockPointLights,
	shader.BlockSpotLights,
}

func (rd *RenderDevice) bindBlocks(p *shader.Program) {
	for _, b := range engineBlocks {
		binding, ok := p.UBOBinding(b)
		if !ok {
			continue
		}
		// Zero capacity light blocks have no buffer.
		if h := rd.blockBuffer(b); h != 0 {
			rd.dev.BindBufferBase(binding, h)
		}
	}
}

func (rd *RenderDevice) bindShadowMaps(p *shader.Program) {
	for slot := 0; slot < maxShadowSamplers; slot++ {
		al := rd.slots.at(slot)
		if al == nil {
			continue
		}
		sampler, ok := al.DefaultTexture()
		if !ok {
			continue
		}
		if unit, ok := p.TextureUnit(sampler); ok {
			rd.dev.ActiveTexture(unit)
			rd.dev.BindTexture(al.Light.ShadowMap())
		}
	}
}

// ActivateMaterial uploads m into the MaterialData block. A nil material
// clears the active one.
func (rd *RenderDevice) ActivateMaterial(m *Material) error {
	if !rd.initialized {
		return errs.New(errs.NotInitialized, "RenderDevice.ActivateMaterial", "render device not initialized")
	}
	if m == rd.activeMaterial {
		return nil
	}
	rd.activeMaterial = m
	if m == nil {
		return nil
	}
	rd.materialUBO.Set(m)
	if rd.activeShader != nil {
		rd.bindMaterialTextures(m)
	}
	return nil
}

func (rd *RenderDevice) bindMaterialTextures(m *Material) {
	maps := [...]struct {
		sampler shader.Sampler
		texture uint32
	}{
		{shader.TexAlbedo, m.AlbedoMap},
		{shader.TexNormal, m.NormalMap},
		{shader.TexDepth, m.DepthMap},
	}
	for _, tm := range maps {
		if tm.texture == 0 {
			continue
		}
		if unit, ok := rd.activeShader.TextureUnit(tm.sampler); ok {
			rd.dev.ActiveTexture(unit)
			rd.dev.BindTexture(tm.texture)
		}
	}
}

// ActivateCamera follows c: its matrices are pushed now and on every change.
func (rd *RenderDevice) ActivateCamera(c *Camera) error {
	const op = "RenderDevice.ActivateCamera"
	if !rd.initialized {
		return errs.New(errs.NotInitialized, op, "render device not initialized")
	}
	if c == nil {
		return errs.New(errs.NullPointer, op, "nil camera")
	}
	if c == rd.activeCamera {
		return nil
	}
	rd.detachCamera()

	rd.activeCamera = c
	rd.cameraSub = c.Subscribe(rd.onCameraChange)
	rd.cameraUBO.SetView(c.ViewMatrix())
	rd.cameraUBO.SetProjection(c.ProjectionMatrix())
	rd.cameraUBO.SetPosition(c.Position())
	return nil
}

func (rd *RenderDevice) detachCamera() {
	if rd.activeCamera != nil {
		rd.activeCamera.Unsubscribe(rd.cameraSub)
		rd.activeCamera = nil
		rd.cameraSub = 0
	}
}

func (rd *RenderDevice) onCameraChange(msg CameraMsg) {
	c := msg.Camera
	switch msg.Code {
	case CameraPositionChanged:
		rd.cameraUBO.SetPosition(c.Position())
		rd.cameraUBO.SetView(c.ViewMatrix())
	case CameraOrientationChanged:
		rd.cameraUBO.SetView(c.ViewMatrix())
	case CameraProjectionChanged:
		rd.cameraUBO.SetProjection(c.ProjectionMatrix())
	}
}

// RequestRendering uploads the model matrix T*R*S and lets the actor draw.
func (rd *RenderDevice) RequestRendering(a Actor, rotation mgl32.Quat, translation, scale mgl32.Vec3) error {
	const op = "RenderDevice.RequestRendering"
	if !rd.initialized {
		return errs.New(errs.NotInitialized, op, "render device not initialized")
	}
	if a == nil {
		return errs.New(errs.NullPointer, op, "nil actor")
	}
	rd.modelUBO.SetModel(ModelMatrix(rotation, translation, scale))
	a.Render(rd, rotation, translation, scale)
	return nil
}

// ModelMatrix composes translation * rotation * scale.
func ModelMatrix(rotation mgl32.Quat, translation, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(translation.X(), translation.Y(), translation.Z())
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(rotation.Normalize().Mat4()).Mul4(s)
}

// AddLight registers l and writes it into its type's uniform buffer.
// Indices are handed out in insertion order and never reused; lights past
// the configured capacity are tracked but their buffer writes are dropped.
func (rd *RenderDevice) AddLight(l *Light) error {
	const op = "RenderDevice.AddLight"
	if !rd.initialized {
		return errs.New(errs.NotInitialized, op, "render device not initialized")
	}
	if l == nil {
		return errs.New(errs.NullPointer, op, "nil light")
	}
	t := l.Type()
	if t < 0 || t >= lightTypeCount {
		return errs.Newf(errs.IndexOutOfBounds, op, "invalid light type %d", int(t))
	}
	if _, ok := rd.registry[l]; ok {
		return nil
	}

	al := &ActiveLight{Light: l, ShadowSlot: -1, UBOIndex: len(rd.lights[t]), LightSpace: mgl32.Ident4()}
	if al.UBOIndex >= rd.lightUBOs[t].Capacity() {
		logger.Log.Warn("Light exceeds configured capacity",
			zap.Stringer("type", t),
			zap.Int("index", al.UBOIndex),
			zap.Int("capacity", rd.lightUBOs[t].Capacity()))
	}
	if l.CastsShadows() {
		al.ShadowSlot = rd.slots.acquire(al)
		al.LightSpace = l.LightSpaceMatrix()
	}
	rd.lightUBOs[t].SetLight(al.UBOIndex, l, al.ShadowSlot, al.LightSpace)

	rd.lights[t] = append(rd.lights[t], al)
	rd.registry[l] = al
	rd.lightSubs[l] = l.Subscribe(func(msg LightMsg) { rd.onLightChange(al, msg) })

	logger.Log.Debug("Light added",
		zap.Stringer("type", t),
		zap.Int("uboIndex", al.UBOIndex),
		zap.Int("shadowSlot", al.ShadowSlot))
	return nil
}

// onLightChange rewrites only the fields msg reports.
func (rd *RenderDevice) onLightChange(al *ActiveLight, msg LightMsg) {
	l := al.Light
	ubo := rd.lightUBOs[l.Type()]
	i := al.UBOIndex

	switch msg.Code {
	case LightPositionChanged:
		ubo.SetPosition(i, l.Position())
	case LightDirectionChanged:
		ubo.SetDirection(i, l.Direction())
	case LightColorChanged:
		ubo.SetColor(i, l.Color())
	case LightIntensityChanged:
		ubo.SetIntensity(i, l.Intensity())
	case LightAttenuationChanged:
		ubo.SetAttenuation(i, l.Attenuation())
	case LightCutOffChanged:
		inner, outer := l.CutOff()
		ubo.SetCutOff(i, inner, outer)
	case LightShadowChanged:
		rd.updateShadowSlot(al)
		return
	}

	switch msg.Code {
	case LightPositionChanged, LightDirectionChanged:
		if l.CastsShadows() {
			al.LightSpace = l.LightSpaceMatrix()
			ubo.SetLightSpace(i, al.LightSpace)
		}
	}
}

func (rd *RenderDevice) updateShadowSlot(al *ActiveLight) {
	l := al.Light
	ubo := rd.lightUBOs[l.Type()]

	switch {
	case l.CastsShadows() && al.ShadowSlot < 0:
		al.ShadowSlot = rd.slots.acquire(al)
		ubo.SetShadowSlot(al.UBOIndex, al.ShadowSlot)
	case !l.CastsShadows() && al.ShadowSlot >= 0:
		rd.slots.release(al.ShadowSlot)
		al.ShadowSlot = -1
		ubo.SetShadowSlot(al.UBOIndex, -1)
	}
	al.LightSpace = l.LightSpaceMatrix()
	ubo.SetLightSpace(al.UBOIndex, al.LightSpace)
}

// RemoveLight is not supported: UBO indices are never compacted.
func (rd *RenderDevice) RemoveLight(l *Light) error {
	return errs.New(errs.General, "RenderDevice.RemoveLight", "removing lights is not supported")
}

func (rd *RenderDevice) ActiveLightsCount(t LightType) (int, error) {
	if t < 0 || t >= lightTypeCount {
		return 0, errs.Newf(errs.IndexOutOfBounds, "RenderDevice.ActiveLightsCount", "invalid light type %d", int(t))
	}
	return len(rd.lights[t]), nil
}

// ActiveLight returns the registry entry of l.
func (rd *RenderDevice) ActiveLight(l *Light) (*ActiveLight, bool) {
	al, ok := rd.registry[l]
	return al, ok
}

// LightBuffer exposes the uniform buffer of light type t.
func (rd *RenderDevice) LightBuffer(t LightType) *LightsUBO {
	if t < 0 || t >= lightTypeCount {
		return nil
	}
	return rd.lightUBOs[t]
}

func (rd *RenderDevice) Viewport(p Pass) (Viewport, error) {
	if !p.valid() {
		return Viewport{}, errs.Newf(errs.IndexOutOfBounds, "RenderDevice.Viewport", "invalid pass %d", int(p))
	}
	return rd.viewports[p], nil
}

func (rd *RenderDevice) SetViewport(p Pass, vp Viewport) error {
	if !p.valid() {
		return errs.Newf(errs.IndexOutOfBounds, "RenderDevice.SetViewport", "invalid pass %d", int(p))
	}
	rd.viewports[p] = vp
	return nil
}

// Resize follows a window framebuffer size change. Viewports return to
// their defaults; the GBuffer is reallocated when it matches the window.
func (rd *RenderDevice) Resize(width, height int32) error {
	if !rd.initialized {
		return errs.New(errs.NotInitialized, "RenderDevice.Resize", "render device not initialized")
	}
	if rd.gbuffer != nil && rd.cfg.MatchGBufferAndWindow {
		if err := rd.gbuffer.Init(width, height); err != nil {
			// Init already released the attachments.
			rd.gbuffer = nil
			return errs.Wrap(errs.General, "RenderDevice.Resize", err)
		}
	}
	rd.resetViewports()
	if rd.cfg.AttachedWindow == nil && rd.cfg.ForwardBufferWidth == 0 {
		for p := range rd.viewports {
			if Pass(p) != PassGeometry {
				rd.viewports[p].Size = [2]int32{width, height}
			}
		}
	}
	return nil
}

// Close releases every GPU object the device owns and detaches from
// lights and the camera. Programs stay with the shader manager.
func (rd *RenderDevice) Close() {
	if !rd.initialized {
		return
	}
	rd.detachCamera()
	for l, sub := range rd.lightSubs {
		l.Unsubscribe(sub)
	}
	rd.lightSubs = make(map[*Light]event.Subscription)
	rd.registry = make(map[*Light]*ActiveLight)
	rd.lights = [lightTypeCount][]*ActiveLight{}
	rd.slots.reset()

	if rd.gbuffer != nil {
		rd.gbuffer.Clear()
		rd.gbuffer = nil
	}
	if rd.quad != nil {
		rd.quad.Release()
		rd.quad = nil
	}
	rd.releaseBuffers()
	rd.deferredShader, rd.shadowShader = nil, nil
	rd.activeShader, rd.activeMaterial = nil, nil
	rd.activePass = passNone
	rd.initialized = false
}

func (rd *RenderDevice) releaseBuffers() {
	rd.cameraUBO.release()
	rd.modelUBO.release()
	rd.materialUBO.release()
	for _, u := range rd.lightUBOs {
		u.release()
	}
}

func (rd *RenderDevice) ActivePass() Pass                        { return rd.activePass }
func (rd *RenderDevice) ActiveShader() *shader.Program           { return rd.activeShader }
func (rd *RenderDevice) ActiveMaterial() *Material               { return rd.activeMaterial }
func (rd *RenderDevice) ActiveCamera() *Camera                   { return rd.activeCamera }
func (rd *RenderDevice) GBuffer() *gbuffer.GBuffer               { return rd.gbuffer }
func (rd *RenderDevice) ShadowPassShader() *shader.Program       { return rd.shadowShader }
func (rd *RenderDevice) DeferredLightingShader() *shader.Program { return rd.deferredShader }
func (rd *RenderDevice) ShaderManager() *shader.Manager          { return rd.shaders }
func (rd *RenderDevice) Config() Config                          { return rd.cfg }
func (rd *RenderDevice) Device() gpu.Device                      { return rd.dev }
func (rd *RenderDevice) CameraBuffer() *CameraUBO                { return rd.cameraUBO }
func (rd *RenderDevice) ModelBuffer() *ModelUBO                  { return rd.modelUBO }
func (rd *RenderDevice) MaterialBuffer() *MaterialUBO            { return rd.materialUBO }

// Lights returns the registered lights of type t in index order.
func (rd *RenderDevice) Lights(t LightType) []*ActiveLight {
	if t < 0 || t >= lightTypeCount {
		return nil
	}
	return rd.lights[t]
}
