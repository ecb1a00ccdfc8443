package actor

import (
	"testing"

	"Forge3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRayIntersectSphere(t *testing.T) {
	ray := Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}}

	hit, dist := RayIntersectSphere(ray, mgl32.Vec3{}, 1)
	if !hit || mgl32.Abs(dist-9) > 1e-4 {
		t.Errorf("hit=%v dist=%v, want hit at 9", hit, dist)
	}

	if hit, _ := RayIntersectSphere(ray, mgl32.Vec3{5, 0, 0}, 1); hit {
		t.Error("sphere off to the side should be missed")
	}

	behind := Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, 1}}
	if hit, _ := RayIntersectSphere(behind, mgl32.Vec3{}, 1); hit {
		t.Error("sphere behind the origin should be missed")
	}

	inside := Ray{Origin: mgl32.Vec3{}, Direction: mgl32.Vec3{1, 0, 0}}
	if hit, dist := RayIntersectSphere(inside, mgl32.Vec3{}, 2); !hit || mgl32.Abs(dist-2) > 1e-4 {
		t.Errorf("ray from inside should exit at 2, got hit=%v dist=%v", hit, dist)
	}
}

func TestRayIntersectTriangle(t *testing.T) {
	v0, v1, v2 := mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{1, -1, 0}, mgl32.Vec3{0, 1, 0}

	hit, dist := RayIntersectTriangle(Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, v0, v1, v2)
	if !hit || mgl32.Abs(dist-5) > 1e-4 {
		t.Errorf("hit=%v dist=%v, want hit at 5", hit, dist)
	}

	if hit, _ := RayIntersectTriangle(Ray{Origin: mgl32.Vec3{3, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, v0, v1, v2); hit {
		t.Error("ray outside the triangle should miss")
	}
	if hit, _ := RayIntersectTriangle(Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{1, 0, 0}}, v0, v1, v2); hit {
		t.Error("parallel ray should miss")
	}
}

func TestScreenToRayThroughCentre(t *testing.T) {
	cam := renderer.NewDefaultCamera(600, 800)

	ray := ScreenToRay(cam, 400, 300, 800, 600)

	if ray.Origin != cam.Position() {
		t.Errorf("Origin = %v, want camera position", ray.Origin)
	}
	if !vec3Near(ray.Direction, cam.Front(), 1e-4) {
		t.Errorf("Direction = %v, want camera front %v", ray.Direction, cam.Front())
	}
}

func TestScreenToRayCorners(t *testing.T) {
	cam := renderer.NewDefaultCamera(600, 800)

	topLeft := ScreenToRay(cam, 0, 0, 800, 600)

	if topLeft.Direction.X() >= 0 || topLeft.Direction.Y() <= 0 {
		t.Errorf("top left ray should point up and left, got %v", topLeft.Direction)
	}
}

func TestPickNearestMesh(t *testing.T) {
	near := NewStaticMesh("near", CubeGeometry(1))
	near.SetPosition(0, 0, 2)
	far := NewStaticMesh("far", CubeGeometry(1))
	far.SetPosition(0, 0, -2)
	aside := NewStaticMesh("aside", CubeGeometry(1))
	aside.SetPosition(5, 0, 0)

	ray := Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}}
	picked, dist := Pick([]*StaticMesh{far, aside, near}, ray)

	if picked != near {
		t.Fatalf("picked %v, want near", picked)
	}
	if mgl32.Abs(dist-7.5) > 1e-4 {
		t.Errorf("dist = %v, want 7.5", dist)
	}

	miss := Ray{Origin: mgl32.Vec3{0, 10, 10}, Direction: mgl32.Vec3{0, 0, -1}}
	if picked, _ := Pick([]*StaticMesh{near, far}, miss); picked != nil {
		t.Errorf("picked %v, want nothing", picked.Name)
	}
}

func TestIntersectFollowsTransform(t *testing.T) {
	m := NewStaticMesh("cube", CubeGeometry(1))
	m.SetScale(4, 4, 4)
	m.Rotate(0, 45, 0)

	ray := Ray{Origin: mgl32.Vec3{0.1, 0.5, 10}, Direction: mgl32.Vec3{0, 0, -1}}
	hit, dist := m.Intersect(ray)

	// Turned 45 degrees the front faces satisfy |x| + z = sqrt(8).
	if want := 10 - (float32(2.8284271) - 0.1); !hit || mgl32.Abs(dist-want) > 1e-3 {
		t.Errorf("hit=%v dist=%v, want %v", hit, dist, want)
	}
}
