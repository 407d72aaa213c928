package scene

import "vct-renderer/math"

// Plane represents a half-space: ax + by + cz + d = 0
// Normal (a, b, c) points into the "inside" of the frustum.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view volume.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumFromVP extracts the six planes from a row-vector view-projection
// matrix (Gribb/Hartmann). clip.x = p·column0, so the planes are built from
// the matrix columns.
func FrustumFromVP(vp math.Mat4) Frustum {
	col := func(j int) math.Vec4 {
		return math.Vec4{X: vp[0][j], Y: vp[1][j], Z: vp[2][j], W: vp[3][j]}
	}
	c0, c1, c2, c3 := col(0), col(1), col(2), col(3)

	var f Frustum
	f.Planes[0] = normalizePlane(c3.Add(c0))
	f.Planes[1] = normalizePlane(c3.Sub(c0))
	f.Planes[2] = normalizePlane(c3.Add(c1))
	f.Planes[3] = normalizePlane(c3.Sub(c1))
	f.Planes[4] = normalizePlane(c3.Add(c2))
	f.Planes[5] = normalizePlane(c3.Sub(c2))
	return f
}

func normalizePlane(v math.Vec4) Plane {
	n := v.ToVec3()
	l := n.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Div(l), D: v.W / l}
}

// IntersectsFrustum returns false if the AABB is completely outside the frustum.
// For each plane the corner most aligned with the plane normal is tested.
func (b AABB) IntersectsFrustum(f *Frustum) bool {
	for _, p := range f.Planes {
		px := b.Max.X
		if p.Normal.X < 0 {
			px = b.Min.X
		}
		py := b.Max.Y
		if p.Normal.Y < 0 {
			py = b.Min.Y
		}
		pz := b.Max.Z
		if p.Normal.Z < 0 {
			pz = b.Min.Z
		}
		if p.DistanceTo(math.Vec3{X: px, Y: py, Z: pz}) < 0 {
			return false
		}
	}
	return true
}

// TransformAABB bounds the eight transformed corners of local.
func TransformAABB(local AABB, m math.Mat4) AABB {
	mn, mx := local.Min, local.Max
	corners := [8]math.Vec3{
		{X: mn.X, Y: mn.Y, Z: mn.Z},
		{X: mx.X, Y: mn.Y, Z: mn.Z},
		{X: mn.X, Y: mx.Y, Z: mn.Z},
		{X: mx.X, Y: mx.Y, Z: mn.Z},
		{X: mn.X, Y: mn.Y, Z: mx.Z},
		{X: mx.X, Y: mn.Y, Z: mx.Z},
		{X: mn.X, Y: mx.Y, Z: mx.Z},
		{X: mx.X, Y: mx.Y, Z: mx.Z},
	}
	first := m.MulPoint(corners[0])
	out := AABB{Min: first, Max: first}
	for _, c := range corners[1:] {
		out = out.Extend(m.MulPoint(c))
	}
	return out
}
