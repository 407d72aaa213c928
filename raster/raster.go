// Package raster is the software triangle rasterizer shared by the shadow,
// voxelization and camera passes. It follows GL conventions: clip-space input,
// pixel-centre sampling, a top-left fill rule and window depth in [0, 1].
package raster

import (
	"vct-renderer/math"
	"vct-renderer/scene"

	"github.com/chewxy/math32"
)

type CullMode int

const (
	CullNone CullMode = iota
	CullBack          // drop clockwise triangles
)

// Vertex is a clip-space position plus the varyings carried to fragments.
type Vertex struct {
	Clip   math.Vec4
	World  math.Vec3
	Normal math.Vec3
	UV     math.Vec2
}

func (v Vertex) lerp(o Vertex, t float32) Vertex {
	return Vertex{
		Clip:   v.Clip.Lerp(o.Clip, t),
		World:  v.World.Lerp(o.World, t),
		Normal: v.Normal.Lerp(o.Normal, t),
		UV:     v.UV.Lerp(o.UV, t),
	}
}

// Project transforms a world-space triangle by a view-projection matrix.
func Project(tri scene.Triangle, viewProj math.Mat4) [3]Vertex {
	var out [3]Vertex
	for i, v := range tri.V {
		out[i] = Vertex{
			Clip:   v.Position.ToVec4(1).MulMat(viewProj),
			World:  v.Position,
			Normal: v.Normal,
			UV:     v.UV,
		}
	}
	return out
}

// Fragment is one covered pixel sample. Y counts rows from the bottom.
type Fragment struct {
	X, Y        int
	Depth       float32
	World       math.Vec3
	Normal      math.Vec3 // interpolated, not renormalized
	UV          math.Vec2
	FrontFacing bool
}

// Rasterizer draws into a Width x Height grid. Rows outside [MinY, MaxY) are
// skipped so callers can split one target into bands between workers.
type Rasterizer struct {
	Width, Height int
	Cull          CullMode
	// ClipDepth discards geometry outside the near and far planes.
	ClipDepth bool
}

// Band restricts rasterization to rows [y0, y1).
type Band struct {
	Y0, Y1 int
}

// Full returns the band covering every row.
func (r Rasterizer) Full() Band {
	return Band{0, r.Height}
}

// Bands splits the target rows into n contiguous bands.
func (r Rasterizer) Bands(n int) []Band {
	if n < 1 {
		n = 1
	}
	if n > r.Height {
		n = r.Height
	}
	bands := make([]Band, 0, n)
	size := (r.Height + n - 1) / n
	for y := 0; y < r.Height; y += size {
		bands = append(bands, Band{y, min(y+size, r.Height)})
	}
	return bands
}

// screenVertex is a vertex after the perspective divide and viewport mapping.
type screenVertex struct {
	x, y, z float32
	invW    float32
	v       Vertex
}

// DrawTriangle clips, sets up and scans one triangle, calling emit for each
// covered pixel in row-major order. It returns false when the triangle was
// clipped away, culled, off the target or had no area.
func (r Rasterizer) DrawTriangle(tri [3]Vertex, band Band, emit func(*Fragment)) bool {
	poly := tri[:]
	if r.ClipDepth {
		poly = clipDepth(poly)
		if len(poly) < 3 {
			return false
		}
	} else if tri[0].Clip.W <= 0 || tri[1].Clip.W <= 0 || tri[2].Clip.W <= 0 {
		return false
	}

	screen := make([]screenVertex, len(poly))
	for i, v := range poly {
		screen[i] = r.toScreen(v)
	}

	drew := false
	for i := 1; i+1 < len(screen); i++ {
		if r.scan(screen[0], screen[i], screen[i+1], band, emit) {
			drew = true
		}
	}
	return drew
}

func (r Rasterizer) toScreen(v Vertex) screenVertex {
	invW := 1 / v.Clip.W
	nx, ny, nz := v.Clip.X*invW, v.Clip.Y*invW, v.Clip.Z*invW
	return screenVertex{
		x:    (nx*0.5 + 0.5) * float32(r.Width),
		y:    (ny*0.5 + 0.5) * float32(r.Height),
		z:    nz*0.5 + 0.5,
		invW: invW,
		v:    v,
	}
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether the edge a->b of a counter-clockwise triangle owns
// samples lying exactly on it.
func topLeft(a, b screenVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return dy < 0 || (dy == 0 && dx < 0)
}

func (r Rasterizer) scan(a, b, c screenVertex, band Band, emit func(*Fragment)) bool {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return false
	}
	front := area > 0
	if !front {
		if r.Cull == CullBack {
			return false
		}
		b, c = c, b
		area = -area
	}

	if max(a.x, b.x, c.x) < 0 || min(a.x, b.x, c.x) >= float32(r.Width) ||
		max(a.y, b.y, c.y) < float32(band.Y0) || min(a.y, b.y, c.y) >= float32(band.Y1) {
		return false
	}
	minX := floorClamp(min(a.x, b.x, c.x), 0, r.Width-1)
	maxX := floorClamp(max(a.x, b.x, c.x), 0, r.Width-1)
	minY := floorClamp(min(a.y, b.y, c.y), max(band.Y0, 0), r.Height-1)
	maxY := floorClamp(max(a.y, b.y, c.y), 0, min(band.Y1, r.Height)-1)
	if minX > maxX || minY > maxY {
		return false
	}

	tlA, tlB, tlC := topLeft(b, c), topLeft(c, a), topLeft(a, b)
	invArea := 1 / area
	var frag Fragment
	frag.FrontFacing = front

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b, c, px, py)
			w1 := edge(c, a, px, py)
			w2 := edge(a, b, px, py)
			if !covers(w0, tlA) || !covers(w1, tlB) || !covers(w2, tlC) {
				continue
			}
			l0, l1, l2 := w0*invArea, w1*invArea, w2*invArea

			// perspective-correct weights
			p0, p1, p2 := l0*a.invW, l1*b.invW, l2*c.invW
			inv := 1 / (p0 + p1 + p2)
			p0, p1, p2 = p0*inv, p1*inv, p2*inv

			frag.X, frag.Y = x, y
			frag.Depth = l0*a.z + l1*b.z + l2*c.z
			frag.World = a.v.World.Mul(p0).Add(b.v.World.Mul(p1)).Add(c.v.World.Mul(p2))
			frag.Normal = a.v.Normal.Mul(p0).Add(b.v.Normal.Mul(p1)).Add(c.v.Normal.Mul(p2))
			frag.UV = a.v.UV.Mul(p0).Add(b.v.UV.Mul(p1)).Add(c.v.UV.Mul(p2))
			emit(&frag)
		}
	}
	return true
}

func floorClamp(f float32, lo, hi int) int {
	if f <= float32(lo) {
		return lo
	}
	if f >= float32(hi) {
		return hi
	}
	return int(math32.Floor(f))
}

func covers(w float32, owner bool) bool {
	return w > 0 || (w == 0 && owner)
}

// clipDepth clips a convex polygon against -w <= z <= w (Sutherland-Hodgman).
func clipDepth(poly []Vertex) []Vertex {
	poly = clipPlane(poly, func(v Vertex) float32 { return v.Clip.Z + v.Clip.W })
	if len(poly) < 3 {
		return nil
	}
	return clipPlane(poly, func(v Vertex) float32 { return v.Clip.W - v.Clip.Z })
}

func clipPlane(poly []Vertex, dist func(Vertex) float32) []Vertex {
	out := make([]Vertex, 0, len(poly)+2)
	for i := range poly {
		cur, next := poly[i], poly[(i+1)%len(poly)]
		dc, dn := dist(cur), dist(next)
		if dc >= 0 {
			out = append(out, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			out = append(out, cur.lerp(next, dc/(dc-dn)))
		}
	}
	return out
}
