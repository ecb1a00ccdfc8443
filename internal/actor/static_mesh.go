package actor

import (
	"Forge3D/internal/errs"
	"Forge3D/internal/gpu"
	"Forge3D/internal/logger"
	"Forge3D/internal/renderer"
	"Forge3D/internal/shader"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// StaticMesh draws a Geometry with one material in the shadow and
// geometry passes. It renders nothing in the other passes.
type StaticMesh struct {
	Name         string
	Position     mgl32.Vec3
	Rotation     mgl32.Quat
	Scale        mgl32.Vec3
	Material     *renderer.Material
	CastsShadows bool

	geometry *Geometry
	center   mgl32.Vec3
	radius   float32

	dev      gpu.Device
	vao, vbo uint32
	count    int32
	program  *shader.Program

	textures *renderer.TextureManager
	owned    []uint32 // texture references to give back on Release
}

func NewStaticMesh(name string, g *Geometry) *StaticMesh {
	m := &StaticMesh{
		Name:         name,
		Rotation:     mgl32.QuatIdent(),
		Scale:        mgl32.Vec3{1, 1, 1},
		Material:     renderer.NewMaterial(name),
		CastsShadows: true,
		geometry:     g,
	}
	m.center, m.radius = g.BoundingSphere()
	return m
}

func (m *StaticMesh) Geometry() *Geometry      { return m.geometry }
func (m *StaticMesh) Program() *shader.Program { return m.program }
func (m *StaticMesh) Initialized() bool        { return m.vao != 0 }

// Init uploads the vertices and builds the geometry pass program. A mesh
// whose Init failed stays in the scene and draws nothing.
func (m *StaticMesh) Init(rd *renderer.RenderDevice, textures *renderer.TextureManager) error {
	if rd == nil {
		return errs.New(errs.NullPointer, "StaticMesh.Init", "nil render device")
	}
	if m.vao != 0 {
		return nil
	}
	if err := m.buildProgram(rd); err != nil {
		logger.Log.Error("Mesh has no usable geometry shader",
			zap.String("mesh", m.Name), zap.Error(err))
		return err
	}

	m.textures = textures
	if textures != nil && m.Material != nil && m.Material.AlbedoMap == 0 {
		m.Material.AlbedoMap = textures.White()
		m.owned = append(m.owned, m.Material.AlbedoMap)
	}

	vertices := m.geometry.Expand()
	m.dev = rd.Device()
	m.vao, m.vbo = m.dev.CreateVertexArray(vertices, VertexFloats, vertexAttribs...)
	m.count = int32(len(vertices) / VertexFloats)

	logger.Log.Debug("Mesh initialized",
		zap.String("mesh", m.Name),
		zap.Int32("vertices", m.count),
		zap.Uint32("vao", m.vao))
	return nil
}

func (m *StaticMesh) buildProgram(rd *renderer.RenderDevice) error {
	mgr := rd.ShaderManager()
	if mgr == nil {
		return errs.New(errs.NotInitialized, "StaticMesh.Init", "render device has no shader manager")
	}
	cfg := rd.Config()
	vs, err := mgr.CreateShaderCode(shader.BasicGeometryPassVert, cfg.GLSLVersion, 0, cfg.PrecisionTag)
	if err != nil {
		return err
	}
	fs, err := mgr.CreateShaderCode(shader.BasicGeometryPassFrag, cfg.GLSLVersion, 0, cfg.PrecisionTag)
	if err != nil {
		return err
	}
	m.program, err = mgr.BuildShader([]*shader.Code{vs}, []*shader.Code{fs})
	return err
}

// LoadAlbedo replaces the material's albedo map with a texture from the
// manager's asset tree.
func (m *StaticMesh) LoadAlbedo(textures *renderer.TextureManager, path string) error {
	if textures == nil {
		return errs.New(errs.NullPointer, "StaticMesh.LoadAlbedo", "nil texture manager")
	}
	id, err := textures.LoadTexture(path)
	if err != nil {
		return err
	}
	if m.Material == nil {
		m.Material = renderer.NewMaterial(m.Name)
	}
	m.Material.AlbedoMap = id
	m.textures = textures
	m.owned = append(m.owned, id)
	return nil
}

// Render implements renderer.Actor.
func (m *StaticMesh) Render(rd *renderer.RenderDevice, rotation mgl32.Quat, translation, scale mgl32.Vec3) {
	if m.vao == 0 {
		return
	}

	var p *shader.Program
	switch rd.ActivePass() {
	case renderer.PassShadow:
		if !m.CastsShadows {
			return
		}
		p = rd.ShadowPassShader()
	case renderer.PassGeometry:
		p = m.program
	default:
		return
	}

	if err := rd.ActivateShader(p); err != nil {
		logger.Log.Warn("Skipping mesh draw",
			zap.String("mesh", m.Name),
			zap.Stringer("pass", rd.ActivePass()),
			zap.Error(err))
		return
	}
	if rd.ActivePass() == renderer.PassGeometry {
		if err := rd.ActivateMaterial(m.Material); err != nil {
			logger.Log.Warn("Material activation failed", zap.String("mesh", m.Name), zap.Error(err))
			return
		}
	}
	m.dev.DrawArrays(m.vao, gpu.Triangles, 0, m.count)
}

// Draw submits the mesh with its own transform.
func (m *StaticMesh) Draw(rd *renderer.RenderDevice) error {
	return rd.RequestRendering(m, m.Rotation, m.Position, m.Scale)
}

func (m *StaticMesh) SetPosition(x, y, z float32) {
	m.Position = mgl32.Vec3{x, y, z}
}

func (m *StaticMesh) SetScale(x, y, z float32) {
	m.Scale = mgl32.Vec3{x, y, z}
}

// Rotate applies X, then Y, then Z rotations in degrees on top of the
// current rotation.
func (m *StaticMesh) Rotate(angleX, angleY, angleZ float32) {
	if m.Rotation == (mgl32.Quat{}) {
		m.Rotation = mgl32.QuatIdent()
	}
	rotationX := mgl32.QuatRotate(mgl32.DegToRad(angleX), mgl32.Vec3{1, 0, 0})
	rotationY := mgl32.QuatRotate(mgl32.DegToRad(angleY), mgl32.Vec3{0, 1, 0})
	rotationZ := mgl32.QuatRotate(mgl32.DegToRad(angleZ), mgl32.Vec3{0, 0, 1})
	m.Rotation = m.Rotation.Mul(rotationX).Mul(rotationY).Mul(rotationZ)
}

func (m *StaticMesh) ModelMatrix() mgl32.Mat4 {
	return renderer.ModelMatrix(m.Rotation, m.Position, m.Scale)
}

// BoundingSphere is the world space sphere enclosing the mesh.
func (m *StaticMesh) BoundingSphere() (mgl32.Vec3, float32) {
	center := m.ModelMatrix().Mul4x1(m.center.Vec4(1)).Vec3()
	s := mgl32.Abs(m.Scale[0])
	if v := mgl32.Abs(m.Scale[1]); v > s {
		s = v
	}
	if v := mgl32.Abs(m.Scale[2]); v > s {
		s = v
	}
	return center, m.radius * s
}

// Release frees the vertex array and gives back texture references taken
// by Init and LoadAlbedo.
func (m *StaticMesh) Release() {
	if m.vao != 0 {
		m.dev.DeleteVertexArray(m.vao, m.vbo)
		m.vao, m.vbo, m.count = 0, 0, 0
	}
	if m.textures != nil {
		for _, id := range m.owned {
			m.textures.ReleaseTexture(id)
		}
	}
	m.owned = nil
}
