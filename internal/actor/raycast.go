package actor

import (
	"math"

	"Forge3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half line in world space. Direction is expected to be normalized.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Direction.Mul(t)) }

// RayIntersectSphere returns the distance to the nearest hit in front of
// the ray origin.
func RayIntersectSphere(ray Ray, center mgl32.Vec3, radius float32) (bool, float32) {
	oc := ray.Origin.Sub(center)
	a := ray.Direction.Dot(ray.Direction)
	b := 2 * oc.Dot(ray.Direction)
	c := oc.Dot(oc) - radius*radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 || a == 0 {
		return false, 0
	}
	sqrtDisc := float32(math.Sqrt(float64(discriminant)))
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)

	switch {
	case t1 > 0:
		return true, t1
	case t2 > 0:
		// origin inside the sphere
		return true, t2
	}
	return false, 0
}

// RayIntersectTriangle is the Möller-Trumbore test. Both windings hit.
func RayIntersectTriangle(ray Ray, v0, v1, v2 mgl32.Vec3) (bool, float32) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return false, 0
	}

	f := 1 / a
	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return false, 0
	}
	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return false, 0
	}

	if t := f * edge2.Dot(q); t > epsilon {
		return true, t
	}
	return false, 0
}

// ScreenToRay builds the world space ray through a window pixel, with the
// origin at the top left corner.
func ScreenToRay(camera *renderer.Camera, screenX, screenY float32, width, height int) Ray {
	ndcX := 2*screenX/float32(width) - 1
	ndcY := 1 - 2*screenY/float32(height)

	inv := camera.ViewProjection().Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	nearPoint := near.Vec3().Mul(1 / near.W())
	farPoint := far.Vec3().Mul(1 / far.W())

	return Ray{
		Origin:    camera.Position(),
		Direction: farPoint.Sub(nearPoint).Normalize(),
	}
}

// Intersect tests the bounding sphere first and then every triangle of
// the transformed geometry.
func (m *StaticMesh) Intersect(ray Ray) (bool, float32) {
	center, radius := m.BoundingSphere()
	if hit, _ := RayIntersectSphere(ray, center, radius); !hit {
		return false, 0
	}

	model := m.ModelMatrix()
	world := func(p mgl32.Vec3) mgl32.Vec3 { return model.Mul4x1(p.Vec4(1)).Vec3() }

	hit, nearest := false, float32(math.MaxFloat32)
	m.geometry.Triangles(func(a, b, c mgl32.Vec3) bool {
		if ok, t := RayIntersectTriangle(ray, world(a), world(b), world(c)); ok && t < nearest {
			hit, nearest = true, t
		}
		return true
	})
	if !hit {
		return false, 0
	}
	return true, nearest
}

// Pick returns the mesh with the nearest hit, or nil.
func Pick(meshes []*StaticMesh, ray Ray) (*StaticMesh, float32) {
	var picked *StaticMesh
	nearest := float32(math.MaxFloat32)
	for _, m := range meshes {
		if ok, t := m.Intersect(ray); ok && t < nearest {
			picked, nearest = m, t
		}
	}
	if picked == nil {
		return nil, 0
	}
	return picked, nearest
}
