package scene

import (
	"vct-renderer/core"
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

// Primitive builders. Every primitive winds its triangles counter-clockwise
// when seen from the side its normals point to.

// CreateQuad generates a unit quad in the XY plane facing +Z.
func CreateQuad() *Mesh {
	n := math.Vec3Front
	vertices := []core.Vertex{
		{Position: math.NewVec3(-0.5, -0.5, 0), Normal: n, UV: math.NewVec2(0, 0)},
		{Position: math.NewVec3(0.5, -0.5, 0), Normal: n, UV: math.NewVec2(1, 0)},
		{Position: math.NewVec3(0.5, 0.5, 0), Normal: n, UV: math.NewVec2(1, 1)},
		{Position: math.NewVec3(-0.5, 0.5, 0), Normal: n, UV: math.NewVec2(0, 1)},
	}
	return mustMesh(CreateMeshFromData("Quad", vertices, []uint32{0, 1, 2, 2, 3, 0}))
}

// CreatePlane generates a flat plane in XZ facing +Y.
func CreatePlane(width, depth float32, subdivisions int) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}

	var vertices []core.Vertex
	var indices []uint32

	halfW := width / 2.0
	halfD := depth / 2.0

	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			vertices = append(vertices, core.Vertex{
				Position: math.Vec3{X: -halfW + u*width, Y: 0, Z: -halfD + v*depth},
				Normal:   math.Vec3Up,
				UV:       math.Vec2{X: u, Y: v},
			})
		}
	}

	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			topLeft := uint32(z*(subdivisions+1) + x)
			topRight := topLeft + 1
			bottomLeft := topLeft + uint32(subdivisions+1)
			bottomRight := bottomLeft + 1

			indices = append(indices, topLeft, bottomLeft, topRight)
			indices = append(indices, topRight, bottomLeft, bottomRight)
		}
	}

	return mustMesh(CreateMeshFromData("Plane", vertices, indices))
}

// CreateCube generates an axis-aligned cube with per-face normals.
func CreateCube(size float32) *Mesh {
	s := size / 2
	faces := []struct{ n, u, v math.Vec3 }{
		{math.Vec3Right, math.Vec3Up, math.Vec3Front},
		{math.Vec3Left, math.Vec3Front, math.Vec3Up},
		{math.Vec3Up, math.Vec3Front, math.Vec3Right},
		{math.Vec3Down, math.Vec3Right, math.Vec3Front},
		{math.Vec3Front, math.Vec3Right, math.Vec3Up},
		{math.Vec3Back, math.Vec3Up, math.Vec3Right},
	}
	corners := [4]math.Vec2{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}

	vertices := make([]core.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.n.Add(f.u.Mul(c.X)).Add(f.v.Mul(c.Y)).Mul(s)
			vertices = append(vertices, core.Vertex{
				Position: p,
				Normal:   f.n,
				UV:       math.Vec2{X: (c.X + 1) / 2, Y: (c.Y + 1) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return mustMesh(CreateMeshFromData("Cube", vertices, indices))
}

// CreateSphere generates a UV-sphere mesh.
func CreateSphere(radius float32, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var vertices []core.Vertex
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sincos(phi)
		if ring == 0 || ring == rings {
			sinPhi = 0
		}

		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			sinTheta, cosTheta := math32.Sincos(theta)

			normal := math.Vec3{X: sinPhi * cosTheta, Y: cosPhi, Z: sinPhi * sinTheta}
			vertices = append(vertices, core.Vertex{
				Position: normal.Mul(radius),
				Normal:   normal,
				UV:       math.Vec2{X: float32(seg) / float32(segments), Y: 1 - float32(ring)/float32(rings)},
			})
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)

			// the quads touching a pole collapse to one triangle
			if ring > 0 {
				indices = append(indices, current, current+1, next)
			}
			if ring < rings-1 {
				indices = append(indices, current+1, next+1, next)
			}
		}
	}

	return mustMesh(CreateMeshFromData("Sphere", vertices, indices))
}
