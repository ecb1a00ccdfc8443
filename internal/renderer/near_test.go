package renderer

import "github.com/go-gl/mathgl/mgl32"

func vec3Near(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func mat4Near(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if mgl32.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
