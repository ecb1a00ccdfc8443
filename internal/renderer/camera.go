package renderer

import (
	"math"

	"Forge3D/internal/event"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraMsgCode names what changed on a camera.
type CameraMsgCode int

const (
	CameraPositionChanged CameraMsgCode = iota
	CameraOrientationChanged
	CameraProjectionChanged
)

type CameraMsg struct {
	Code   CameraMsgCode
	Camera *Camera
}

// KeyReader is the part of a window the camera polls for movement keys.
type KeyReader interface {
	GetKey(key glfw.Key) glfw.Action
}

type Camera struct {
	// HOT DATA - read whenever the camera block is synced
	position   mgl32.Vec3
	front      mgl32.Vec3
	up         mgl32.Vec3
	right      mgl32.Vec3
	projection mgl32.Mat4
	pitch      float32
	yaw        float32

	// COLD DATA - configuration and input handling
	WorldUp     mgl32.Vec3
	Speed       float32
	Sensitivity float32
	fov         float32
	near        float32
	far         float32
	aspect      float32
	InvertMouse bool

	Name    string
	changes event.Hub[CameraMsg]
}

func NewDefaultCamera(height int32, width int32) *Camera {
	c := &Camera{
		position:    mgl32.Vec3{0, 2, 10},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		pitch:       0,
		yaw:         -90,
		Speed:       10,
		Sensitivity: 0.1,
		fov:         45,
		near:        0.1,
		far:         1000,
		aspect:      float32(width) / float32(height),
	}
	c.updateCameraVectors()
	c.updateProjection()
	return c
}

func (c *Camera) Subscribe(fn func(CameraMsg)) event.Subscription { return c.changes.Subscribe(fn) }
func (c *Camera) Unsubscribe(id event.Subscription)               { c.changes.Unsubscribe(id) }

func (c *Camera) notify(code CameraMsgCode) {
	c.changes.Broadcast(CameraMsg{Code: code, Camera: c})
}

func (c *Camera) updateProjection() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
}

func (c *Camera) Position() mgl32.Vec3 { return c.position }
func (c *Camera) Front() mgl32.Vec3    { return c.front }
func (c *Camera) Fov() float32         { return c.fov }
func (c *Camera) Near() float32        { return c.near }
func (c *Camera) Far() float32         { return c.far }

func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p
	c.notify(CameraPositionChanged)
}

// SetPerspective replaces every projection parameter at once.
func (c *Camera) SetPerspective(fovDeg, aspect, near, far float32) {
	c.fov, c.aspect, c.near, c.far = fovDeg, aspect, near, far
	c.updateProjection()
	c.notify(CameraProjectionChanged)
}

func (c *Camera) SetAspectRatio(aspect float32) {
	c.aspect = aspect
	c.updateProjection()
	c.notify(CameraProjectionChanged)
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.position.Add(c.front), c.up)
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 { return c.projection }

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.projection.Mul4(c.ViewMatrix())
}

// ProcessKeyboard moves the camera with WASD, faster while shift is held.
func (c *Camera) ProcessKeyboard(keys KeyReader, deltaTime float32) {
	velocity := c.Speed * deltaTime
	if keys.GetKey(glfw.KeyLeftShift) == glfw.Press || keys.GetKey(glfw.KeyRightShift) == glfw.Press {
		velocity *= 2.5
	}

	pos := c.position
	if keys.GetKey(glfw.KeyW) == glfw.Press {
		pos = pos.Add(c.front.Mul(velocity))
	}
	if keys.GetKey(glfw.KeyS) == glfw.Press {
		pos = pos.Sub(c.front.Mul(velocity))
	}
	if keys.GetKey(glfw.KeyA) == glfw.Press {
		pos = pos.Sub(c.right.Mul(velocity))
	}
	if keys.GetKey(glfw.KeyD) == glfw.Press {
		pos = pos.Add(c.right.Mul(velocity))
	}
	if pos != c.position {
		c.SetPosition(pos)
	}
}

func (c *Camera) ProcessMouseMovement(xoffset, yoffset float32, constrainPitch bool) {
	xoffset *= c.Sensitivity
	yoffset *= c.Sensitivity

	c.yaw += xoffset
	if c.InvertMouse {
		c.pitch -= yoffset
	} else {
		c.pitch += yoffset
	}
	if constrainPitch {
		c.pitch = mgl32.Clamp(c.pitch, -89.0, 89.0)
	}
	c.updateCameraVectors()
	c.notify(CameraOrientationChanged)
}

// LookAt turns the camera towards target.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	c.pitch = mgl32.RadToDeg(float32(math.Asin(float64(dir.Y()))))
	c.yaw = mgl32.RadToDeg(float32(math.Atan2(float64(dir.Z()), float64(dir.X()))))
	c.updateCameraVectors()
	c.notify(CameraOrientationChanged)
}

func (c *Camera) updateCameraVectors() {
	yawRad := float64(mgl32.DegToRad(c.yaw))
	pitchRad := float64(mgl32.DegToRad(c.pitch))

	front := mgl32.Vec3{
		float32(math.Cos(yawRad) * math.Cos(pitchRad)),
		float32(math.Sin(pitchRad)),
		float32(math.Sin(yawRad) * math.Cos(pitchRad)),
	}
	c.front = front.Normalize()
	c.right = c.front.Cross(c.WorldUp).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
}

type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

type Frustum struct {
	Planes [6]Plane
}

// CalculateFrustum extracts the normalized clip planes of the view
// projection: left, right, bottom, top, near, far.
func (c *Camera) CalculateFrustum() Frustum {
	var f Frustum
	vp := c.ViewProjection()
	row := func(i int) mgl32.Vec4 { return vp.Row(i) }

	w := row(3)
	for i := 0; i < 3; i++ {
		r := row(i)
		f.Planes[2*i] = planeFrom(w.Add(r))
		f.Planes[2*i+1] = planeFrom(w.Sub(r))
	}
	return f
}

func planeFrom(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	return Plane{Normal: n.Mul(1 / l), Distance: v.W() / l}
}

func (p *Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}
