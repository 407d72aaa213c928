package scene

import (
	"errors"
	"fmt"

	"vct-renderer/core"
	"vct-renderer/math"
)

var ErrInvalidMesh = errors.New("invalid mesh")

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max math.Vec3
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Mesh holds immutable CPU-side triangle data in object space. Constructors
// copy their inputs and accessors hand out copies, so a Mesh can be shared by
// concurrent passes without locking.
type Mesh struct {
	name     string
	vertices []core.Vertex
	indices  []uint32
	bounds   AABB
}

// CreateMeshFromData builds a Mesh from interleaved vertices and triangle indices.
func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w %q: index count %d is not a multiple of 3", ErrInvalidMesh, name, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w %q: index %d out of range (%d vertices)", ErrInvalidMesh, name, idx, len(vertices))
		}
	}
	m := &Mesh{
		name:     name,
		vertices: append([]core.Vertex(nil), vertices...),
		indices:  append([]uint32(nil), indices...),
	}
	if len(vertices) > 0 {
		m.bounds = computeLocalAABB(m.vertices)
	}
	return m, nil
}

// NewMesh builds a Mesh from separate attribute streams. Normals and UVs are
// optional; missing normals are generated from the triangles, missing UVs are zero.
func NewMesh(name string, positions, normals []math.Vec3, uvs []math.Vec2, indices []uint32) (*Mesh, error) {
	if len(normals) != 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("%w %q: %d normals for %d positions", ErrInvalidMesh, name, len(normals), len(positions))
	}
	if len(uvs) != 0 && len(uvs) != len(positions) {
		return nil, fmt.Errorf("%w %q: %d uvs for %d positions", ErrInvalidMesh, name, len(uvs), len(positions))
	}
	vertices := make([]core.Vertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = p
		if len(normals) > 0 {
			vertices[i].Normal = normals[i]
		}
		if len(uvs) > 0 {
			vertices[i].UV = uvs[i]
		}
	}
	m, err := CreateMeshFromData(name, vertices, indices)
	if err != nil {
		return nil, err
	}
	if len(normals) == 0 {
		generateNormals(m.vertices, m.indices)
	}
	return m, nil
}

func mustMesh(m *Mesh, err error) *Mesh {
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mesh) Name() string { return m.name }

func (m *Mesh) VertexCount() int { return len(m.vertices) }

func (m *Mesh) TriangleCount() int { return len(m.indices) / 3 }

func (m *Mesh) Bounds() AABB { return m.bounds }

func (m *Mesh) Vertices() []core.Vertex {
	return append([]core.Vertex(nil), m.vertices...)
}

func (m *Mesh) Indices() []uint32 {
	return append([]uint32(nil), m.indices...)
}

// Triangle returns the i-th triangle in object space.
func (m *Mesh) Triangle(i int) Triangle {
	return Triangle{V: [3]core.Vertex{
		m.vertices[m.indices[3*i]],
		m.vertices[m.indices[3*i+1]],
		m.vertices[m.indices[3*i+2]],
	}}
}

// Triangle is three vertices with interpolatable attributes.
type Triangle struct {
	V [3]core.Vertex
}

// FaceNormal returns the unnormalized geometric normal, |n| = 2 * area.
func (t Triangle) FaceNormal() math.Vec3 {
	p := t.V
	return p[1].Position.Sub(p[0].Position).Cross(p[2].Position.Sub(p[0].Position))
}

// Degenerate reports whether the triangle has no area.
func (t Triangle) Degenerate() bool {
	return t.FaceNormal().LengthSqr() == 0
}

// Transform maps the triangle by a model matrix and its normal matrix.
func (t Triangle) Transform(model, normal math.Mat4) Triangle {
	out := t
	for i := range out.V {
		out.V[i].Position = model.MulPoint(t.V[i].Position)
		out.V[i].Normal = normal.MulDir(t.V[i].Normal).Normalize()
	}
	return out
}

func computeLocalAABB(vertices []core.Vertex) AABB {
	b := AABB{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		b = b.Extend(v.Position)
	}
	return b
}

// generateNormals computes area-weighted vertex normals in place.
func generateNormals(vertices []core.Vertex, indices []uint32) {
	accum := make([]math.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		n := Triangle{V: [3]core.Vertex{vertices[i0], vertices[i1], vertices[i2]}}.FaceNormal()
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range vertices {
		vertices[i].Normal = accum[i].Normalize()
	}
}
