package renderer

import "Forge3D/internal/gpu"

// Pass is a stage of the frame. A frame runs PassShadow once per shadow
// casting light, then PassGeometry, PassLighting and PassForward.
type Pass int

const (
	PassShadow Pass = iota
	PassGeometry
	PassLighting
	PassForward
	PassLOD
	passCount

	passNone Pass = -1
)

func (p Pass) String() string {
	switch p {
	case PassShadow:
		return "shadow"
	case PassGeometry:
		return "geometry"
	case PassLighting:
		return "lighting"
	case PassForward:
		return "forward"
	case PassLOD:
		return "lod"
	case passNone:
		return "none"
	}
	return "invalid"
}

func (p Pass) valid() bool { return p >= 0 && p < passCount }

// Viewport is a pass's target rectangle in pixels.
type Viewport struct {
	Position [2]int32
	Size     [2]int32
}

func (v Viewport) rect() gpu.Rect {
	return gpu.Rect{X: v.Position[0], Y: v.Position[1], W: v.Size[0], H: v.Size[1]}
}
