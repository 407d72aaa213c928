package scene

import (
	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/google/uuid"
)

// Object is one renderable instance: it owns a mesh, references a shared
// material and places both in the world.
type Object struct {
	ID        uuid.UUID
	Name      string
	Mesh      *Mesh
	Material  *Material
	Transform core.Transform
}

func NewObject(name string, mesh *Mesh, material *Material) *Object {
	if material == nil {
		material = DefaultMaterial()
	}
	return &Object{
		ID:        uuid.New(),
		Name:      name,
		Mesh:      mesh,
		Material:  material,
		Transform: core.NewTransform(),
	}
}

func (o *Object) WorldMatrix() math.Mat4 {
	return o.Transform.GetMatrix()
}

// WorldBounds returns the world-space AABB of the mesh.
func (o *Object) WorldBounds() AABB {
	if o.Mesh == nil || o.Mesh.VertexCount() == 0 {
		return AABB{Min: o.Transform.Position, Max: o.Transform.Position}
	}
	return TransformAABB(o.Mesh.Bounds(), o.WorldMatrix())
}

// Opaque reports whether the object can be drawn before blended geometry.
func (o *Object) Opaque() bool {
	return o.Material == nil || (o.Material.Opaque && o.Material.Opacity >= 1)
}

// WorldTriangles returns every triangle of the mesh in world space, in index order.
func (o *Object) WorldTriangles() []Triangle {
	if o.Mesh == nil {
		return nil
	}
	model := o.WorldMatrix()
	normal := model.NormalMatrix()
	tris := make([]Triangle, o.Mesh.TriangleCount())
	for i := range tris {
		tris[i] = o.Mesh.Triangle(i).Transform(model, normal)
	}
	return tris
}
