package renderer

import (
	"math"

	"Forge3D/internal/errs"
	"Forge3D/internal/event"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type LightType int

const (
	DirectionalLight LightType = iota
	PointLight
	SpotLight
	lightTypeCount
)

var lightBlockNames = [lightTypeCount]string{
	"DirectionalLightsData",
	"PointLightsData",
	"SpotLightsData",
}

func (t LightType) String() string {
	switch t {
	case DirectionalLight:
		return "directional"
	case PointLight:
		return "point"
	case SpotLight:
		return "spot"
	}
	return "invalid"
}

// LightMsgCode names the property a LightMsg reports.
type LightMsgCode int

const (
	LightPositionChanged LightMsgCode = iota
	LightDirectionChanged
	LightColorChanged
	LightIntensityChanged
	LightAttenuationChanged
	LightCutOffChanged
	LightShadowChanged
)

type LightMsg struct {
	Code  LightMsgCode
	Light *Light
}

// shadowMap is the depth target a shadow casting light renders into.
type shadowMap struct {
	framebuffer uint32
	depth       uint32
	width       int32
	height      int32
	projection  mgl32.Mat4
}

// Light is a scene light. Setters notify subscribers so registered
// lights keep their uniform buffer entries in sync.
type Light struct {
	kind        LightType
	position    mgl32.Vec3
	direction   mgl32.Vec3
	color       mgl32.Vec3
	intensity   float32
	attenuation mgl32.Vec3
	innerCutOff float32
	outerCutOff float32

	shadow  *shadowMap
	changes event.Hub[LightMsg]
}

func NewLight(kind LightType) *Light {
	return &Light{
		kind:        kind,
		direction:   mgl32.Vec3{0, -1, 0},
		color:       mgl32.Vec3{1, 1, 1},
		intensity:   1,
		attenuation: mgl32.Vec3{1, 0.09, 0.032},
		innerCutOff: float32(math.Cos(float64(mgl32.DegToRad(12.5)))),
		outerCutOff: float32(math.Cos(float64(mgl32.DegToRad(17.5)))),
	}
}

func (l *Light) Type() LightType                { return l.kind }
func (l *Light) Position() mgl32.Vec3           { return l.position }
func (l *Light) Direction() mgl32.Vec3          { return l.direction }
func (l *Light) Color() mgl32.Vec3              { return l.color }
func (l *Light) Intensity() float32             { return l.intensity }
func (l *Light) Attenuation() mgl32.Vec3        { return l.attenuation }
func (l *Light) CutOff() (inner, outer float32) { return l.innerCutOff, l.outerCutOff }

func (l *Light) SetPosition(p mgl32.Vec3) {
	l.position = p
	l.notify(LightPositionChanged)
}

// SetDirection points the light along d. A zero (or non finite) vector
// has no direction and is ignored.
func (l *Light) SetDirection(d mgl32.Vec3) {
	n := d.Len()
	if !(n > 1e-6) || math.IsInf(float64(n), 0) {
		logger.Log.Warn("Ignoring degenerate light direction",
			zap.Stringer("type", l.kind),
			zap.Float32("x", d[0]), zap.Float32("y", d[1]), zap.Float32("z", d[2]))
		return
	}
	l.direction = d.Mul(1 / n)
	l.notify(LightDirectionChanged)
}

func (l *Light) SetColor(c mgl32.Vec3) {
	l.color = c
	l.notify(LightColorChanged)
}

func (l *Light) SetIntensity(v float32) {
	l.intensity = v
	l.notify(LightIntensityChanged)
}

// SetAttenuation sets the constant, linear and quadratic falloff terms.
func (l *Light) SetAttenuation(a mgl32.Vec3) {
	l.attenuation = a
	l.notify(LightAttenuationChanged)
}

// SetCutOff sets the spot cone angles in degrees.
func (l *Light) SetCutOff(innerDeg, outerDeg float32) {
	l.innerCutOff = float32(math.Cos(float64(mgl32.DegToRad(innerDeg))))
	l.outerCutOff = float32(math.Cos(float64(mgl32.DegToRad(outerDeg))))
	l.notify(LightCutOffChanged)
}

func (l *Light) notify(code LightMsgCode) {
	l.changes.Broadcast(LightMsg{Code: code, Light: l})
}

func (l *Light) Subscribe(fn func(LightMsg)) event.Subscription { return l.changes.Subscribe(fn) }
func (l *Light) Unsubscribe(id event.Subscription)              { l.changes.Unsubscribe(id) }

// InitShadowCasting allocates a depth-only framebuffer of the given size
// and turns shadow casting on.
func (l *Light) InitShadowCasting(dev gpu.Device, width, height int32, projection mgl32.Mat4) error {
	if width <= 0 || height <= 0 {
		return errs.Newf(errs.General, "Light.InitShadowCasting", "invalid shadow map size %dx%d", width, height)
	}
	l.releaseShadowMap(dev)

	sm := &shadowMap{width: width, height: height, projection: projection}
	sm.depth = dev.CreateTexture2D(width, height, gpu.DepthComponent24, gpu.DepthComponent, gpu.Float, nil)
	sm.framebuffer = dev.CreateFramebuffer()
	dev.BindFramebuffer(gpu.Framebuffer, sm.framebuffer)
	dev.FramebufferTexture2D(gpu.Framebuffer, gpu.DepthAttachment, sm.depth)
	dev.DrawBuffers(gpu.None)
	dev.ReadBuffer(gpu.None)
	status := dev.CheckFramebufferStatus(gpu.Framebuffer)
	dev.BindFramebuffer(gpu.Framebuffer, 0)
	if status != gpu.FramebufferComplete {
		dev.DeleteFramebuffer(sm.framebuffer)
		dev.DeleteTexture(sm.depth)
		return errs.Newf(errs.General, "Light.InitShadowCasting", "shadow framebuffer incomplete (status %#x)", uint32(status))
	}

	l.shadow = sm
	logger.Log.Debug("Shadow map created",
		zap.Stringer("light", l.kind),
		zap.Int32("width", width),
		zap.Int32("height", height))
	l.notify(LightShadowChanged)
	return nil
}

// ReleaseShadowCasting frees the shadow map and turns shadow casting off.
func (l *Light) ReleaseShadowCasting(dev gpu.Device) {
	if l.shadow == nil {
		return
	}
	l.releaseShadowMap(dev)
	l.notify(LightShadowChanged)
}

func (l *Light) releaseShadowMap(dev gpu.Device) {
	if l.shadow == nil {
		return
	}
	dev.DeleteFramebuffer(l.shadow.framebuffer)
	dev.DeleteTexture(l.shadow.depth)
	l.shadow = nil
}

func (l *Light) CastsShadows() bool { return l.shadow != nil }

func (l *Light) ShadowFramebuffer() uint32 {
	if l.shadow == nil {
		return 0
	}
	return l.shadow.framebuffer
}

// ShadowMap returns the depth texture, or 0.
func (l *Light) ShadowMap() uint32 {
	if l.shadow == nil {
		return 0
	}
	return l.shadow.depth
}

func (l *Light) ShadowMapSize() (int32, int32) {
	if l.shadow == nil {
		return 0, 0
	}
	return l.shadow.width, l.shadow.height
}

// ViewMatrix looks from the light position along its direction.
func (l *Light) ViewMatrix() mgl32.Mat4 {
	up := mgl32.Vec3{0, 1, 0}
	if d := l.direction.Normalize(); math.Abs(float64(d.Dot(up))) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	return mgl32.LookAtV(l.position, l.position.Add(l.direction), up)
}

// LightSpaceMatrix is projection * view, or identity without a shadow map.
func (l *Light) LightSpaceMatrix() mgl32.Mat4 {
	if l.shadow == nil {
		return mgl32.Ident4()
	}
	return l.shadow.projection.Mul4(l.ViewMatrix())
}
