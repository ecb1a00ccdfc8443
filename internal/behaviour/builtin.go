package behaviour

import (
	"math"

	"Forge3D/internal/renderer"

	perlin "github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	Register("flicker", func() Behaviour { return NewLightFlicker(1) })
	Register("spin", func() Behaviour { return &Spin{DegreesPerSecond: 45} })
	Register("orbit", func() Behaviour { return &Orbit{Radius: 6, Height: 3, Speed: 0.5} })
}

// LightFlicker varies the intensity of every point light around the value
// it had when first seen, following 1D Perlin noise.
type LightFlicker struct {
	Amount float64 // fraction of the base intensity
	Speed  float64

	noise   *perlin.Perlin
	base    map[*renderer.Light]float32
	elapsed float64
}

func NewLightFlicker(seed int64) *LightFlicker {
	return &LightFlicker{
		Amount: 0.3,
		Speed:  2,
		noise:  perlin.NewPerlin(2, 2, 3, seed),
		base:   make(map[*renderer.Light]float32),
	}
}

func (f *LightFlicker) Start(scene Scene) { f.capture(scene) }

func (f *LightFlicker) capture(scene Scene) {
	for _, l := range scene.Lights() {
		if _, ok := f.base[l]; !ok && l.Type() == renderer.PointLight {
			f.base[l] = l.Intensity()
		}
	}
}

func (f *LightFlicker) Update(scene Scene, deltaTime float64) {
	f.capture(scene)
	f.elapsed += deltaTime
	for i, l := range scene.Lights() {
		base, ok := f.base[l]
		if !ok {
			continue
		}
		n := f.noise.Noise1D(f.elapsed*f.Speed + float64(i)*7.31)
		intensity := float32(float64(base) * (1 + f.Amount*n))
		if intensity < 0 {
			intensity = 0
		}
		l.SetIntensity(intensity)
	}
}

func (f *LightFlicker) UpdateFixed(Scene) {}

// Spin turns meshes around the Y axis. An empty Mesh spins all of them.
type Spin struct {
	Mesh             string
	DegreesPerSecond float32
}

func (s *Spin) Start(Scene) {}

func (s *Spin) Update(scene Scene, deltaTime float64) {
	angle := s.DegreesPerSecond * float32(deltaTime)
	for _, m := range scene.Meshes() {
		if s.Mesh == "" || m.Name == s.Mesh {
			m.Rotate(0, angle, 0)
		}
	}
}

func (s *Spin) UpdateFixed(Scene) {}

// Orbit spreads the point lights evenly on a circle around the Y axis and
// turns the circle at Speed radians per second.
type Orbit struct {
	Radius float32
	Height float32
	Speed  float64

	angle float64
}

func (o *Orbit) Start(scene Scene) { o.place(scene) }

func (o *Orbit) Update(scene Scene, deltaTime float64) {
	o.angle += o.Speed * deltaTime
	o.place(scene)
}

func (o *Orbit) UpdateFixed(Scene) {}

func (o *Orbit) place(scene Scene) {
	var points []*renderer.Light
	for _, l := range scene.Lights() {
		if l.Type() == renderer.PointLight {
			points = append(points, l)
		}
	}
	for i, l := range points {
		phase := o.angle + 2*math.Pi*float64(i)/float64(len(points))
		l.SetPosition(mgl32.Vec3{
			o.Radius * float32(math.Cos(phase)),
			o.Height,
			o.Radius * float32(math.Sin(phase)),
		})
	}
}
