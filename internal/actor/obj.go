package actor

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"Forge3D/internal/errs"
	"Forge3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type faceVertex struct {
	vertex, texCoord, normal int32
}

// LoadOBJFile reads a Wavefront OBJ file from fsys.
func LoadOBJFile(fsys fs.FS, name string, recalculateNormals bool) (*Geometry, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errs.Wrap(errs.General, "actor.LoadOBJFile", err)
	}
	defer f.Close()

	g, err := LoadOBJ(f, recalculateNormals)
	if err != nil {
		return nil, err
	}
	g.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	return g, nil
}

// LoadOBJ parses positions, texture coordinates, normals and faces.
// Polygons are triangulated as a fan. Materials and groups are ignored.
// Normals are rebuilt from the faces when asked to, or when the file has
// none.
func LoadOBJ(r io.Reader, recalculateNormals bool) (*Geometry, error) {
	var (
		positions []mgl32.Vec3
		texCoords []mgl32.Vec2
		normals   []mgl32.Vec3
		faces     []faceVertex
	)

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		switch parts[0] {
		case "v", "vn":
			v, err := parseFloats(parts[1:], 3)
			if err != nil {
				return nil, objError(line, err)
			}
			if parts[0] == "v" {
				positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
			} else {
				normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			v, err := parseFloats(parts[1:], 2)
			if err != nil {
				return nil, objError(line, err)
			}
			texCoords = append(texCoords, mgl32.Vec2{v[0], v[1]})
		case "f":
			face, err := parseFace(parts[1:], len(positions), len(texCoords), len(normals))
			if err != nil {
				return nil, objError(line, err)
			}
			faces = append(faces, face...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.General, "actor.LoadOBJ", err)
	}
	if len(faces) == 0 {
		return nil, errs.New(errs.General, "actor.LoadOBJ", "no faces")
	}

	g := &Geometry{Indices: make([]int32, 0, len(faces))}
	unique := make(map[faceVertex]int32)
	missingNormals := false
	for _, fv := range faces {
		if idx, ok := unique[fv]; ok {
			g.Indices = append(g.Indices, idx)
			continue
		}
		var uv mgl32.Vec2
		if fv.texCoord >= 0 {
			uv = texCoords[fv.texCoord]
		}
		var n mgl32.Vec3
		if fv.normal >= 0 {
			n = normals[fv.normal]
		} else {
			missingNormals = true
		}
		p := positions[fv.vertex]

		idx := int32(g.VertexCount())
		g.Vertices = append(g.Vertices, p[0], p[1], p[2], uv[0], uv[1], n[0], n[1], n[2])
		g.Indices = append(g.Indices, idx)
		unique[fv] = idx
	}

	if recalculateNormals || missingNormals {
		RecalculateNormals(g)
	}
	logger.Log.Debug("OBJ geometry loaded",
		zap.Int("vertices", g.VertexCount()),
		zap.Int("triangles", len(g.Indices)/3))
	return g, nil
}

func objError(line int, err error) error {
	return errs.Wrap(errs.General, "actor.LoadOBJ", fmt.Errorf("line %d: %w", line, err))
}

func parseFloats(parts []string, n int) ([]float32, error) {
	if len(parts) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]float32, n)
	for i := range out {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		out[i] = float32(val)
	}
	return out, nil
}

// resolveIndex turns a 1-based or negative relative OBJ index into a
// 0-based one.
func resolveIndex(s string, count int) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	idx := int(v) - 1
	if v < 0 {
		idx = count + int(v)
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %q out of range", s)
	}
	return int32(idx), nil
}

func parseFace(parts []string, vertices, texCoords, normals int) ([]faceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs 3 vertices, got %d", len(parts))
	}
	face := make([]faceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")
		fv := faceVertex{texCoord: -1, normal: -1}

		var err error
		if fv.vertex, err = resolveIndex(vals[0], vertices); err != nil {
			return nil, err
		}
		if len(vals) > 1 && vals[1] != "" {
			if fv.texCoord, err = resolveIndex(vals[1], texCoords); err != nil {
				return nil, err
			}
		}
		if len(vals) > 2 && vals[2] != "" {
			if fv.normal, err = resolveIndex(vals[2], normals); err != nil {
				return nil, err
			}
		}
		face = append(face, fv)
	}

	if len(face) == 3 {
		return face, nil
	}
	if len(face) > 4 {
		logger.Log.Debug("Fan triangulating polygon", zap.Int("vertexCount", len(face)))
	}
	triangulated := make([]faceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		triangulated = append(triangulated, face[0], face[i], face[i+1])
	}
	return triangulated, nil
}

// RecalculateNormals replaces every vertex normal with the normalized sum
// of the normals of the triangles sharing it.
func RecalculateNormals(g *Geometry) {
	n := g.VertexCount()
	acc := make([]mgl32.Vec3, n)
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		if a < 0 || int(a) >= n || b < 0 || int(b) >= n || c < 0 || int(c) >= n {
			logger.Log.Warn("Skipping triangle with out of range index",
				zap.Int32("a", a), zap.Int32("b", b), zap.Int32("c", c))
			continue
		}
		v0, v1, v2 := g.Position(int(a)), g.Position(int(b)), g.Position(int(c))
		normal := v1.Sub(v0).Cross(v2.Sub(v0))
		if normal.LenSqr() == 0 {
			continue
		}
		normal = normal.Normalize()
		acc[a] = acc[a].Add(normal)
		acc[b] = acc[b].Add(normal)
		acc[c] = acc[c].Add(normal)
	}

	for i, normal := range acc {
		if normal.LenSqr() > 0 {
			normal = normal.Normalize()
		}
		copy(g.Vertices[i*VertexFloats+5:], normal[:])
	}
}
