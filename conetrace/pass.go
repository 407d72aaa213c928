package conetrace

import (
	"image"
	"image/color"

	"vct-renderer/internal/parallel"
	"vct-renderer/math"
	"vct-renderer/raster"
	"vct-renderer/scene"
)

// View is everything one frame is rendered from.
type View struct {
	Camera  *scene.Camera
	Light   scene.DirectionalLight
	Objects []*scene.Object
	Width   int
	Height  int
}

// Stats describes the last rendered frame.
type Stats struct {
	Objects   int // objects inside the view frustum
	Triangles int
	Covered   int // pixels with geometry
}

type sample struct {
	depth  float32
	pos    math.Vec3
	normal math.Vec3
	face   math.Vec3
	uv     math.Vec2
	mat    *scene.Material
}

// Pass renders the camera view: a G-buffer raster followed by per-pixel cone
// traced shading.
type Pass struct {
	tracer   *Tracer
	occluder Occluder
	pool     *parallel.Pool
	gbuf     []sample
	stats    Stats
}

// NewPass shades with tracer and direct shadows from occ, which may be nil.
// A nil pool renders serially.
func NewPass(tracer *Tracer, occ Occluder, pool *parallel.Pool) *Pass {
	return &Pass{tracer: tracer, occluder: occ, pool: pool}
}

func (p *Pass) Stats() Stats { return p.stats }

type drawItem struct {
	tri  [3]raster.Vertex
	face math.Vec3 // unit world-space face normal
	mat  *scene.Material
}

// Render draws the view with the given toggle snapshot. Uncovered pixels are
// black and every pixel is opaque.
func (p *Pass) Render(v View, tg Toggles) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, v.Width, v.Height))
	if v.Width <= 0 || v.Height <= 0 || v.Camera == nil {
		return img
	}
	items := p.collect(v)
	p.rasterize(v, items)

	covered := 0
	counts := make([]int, v.Height)
	p.rows(v.Height, func(y int) {
		row := img.Pix[(v.Height-1-y)*img.Stride:]
		n := 0
		for x := 0; x < v.Width; x++ {
			px := row[x*4 : x*4+4]
			px[0], px[1], px[2], px[3] = Background.R, Background.G, Background.B, Background.A
			s := &p.gbuf[y*v.Width+x]
			if s.mat == nil {
				continue
			}
			n++
			if !tg.Diffuse && !tg.IndirectDiffuse && !tg.IndirectSpecular {
				continue
			}
			c := p.tracer.Shade(p.surface(v, s), v.Light, p.occluder, tg).RGBA8()
			px[0], px[1], px[2] = c[0], c[1], c[2]
		}
		counts[y] = n
	})
	for _, n := range counts {
		covered += n
	}
	p.stats.Covered = covered
	return img
}

// collect projects the triangles of every object that intersects the view
// frustum.
func (p *Pass) collect(v View) []drawItem {
	cam := *v.Camera
	cam.UpdateAspectRatio(float32(v.Width), float32(v.Height))
	vp := cam.GetViewProjectionMatrix()
	frustum := scene.FrustumFromVP(vp)

	var items []drawItem
	visible := 0
	for _, obj := range v.Objects {
		if obj.Mesh == nil || !obj.WorldBounds().IntersectsFrustum(&frustum) {
			continue
		}
		visible++
		mat := obj.Material
		if mat == nil {
			mat = scene.DefaultMaterial()
		}
		for _, tri := range obj.WorldTriangles() {
			items = append(items, drawItem{raster.Project(tri, vp), tri.FaceNormal().Normalize(), mat})
		}
	}
	p.stats = Stats{Objects: visible, Triangles: len(items)}
	return items
}

// rasterize fills the G-buffer with the nearest front-facing surface per
// pixel. Bands own disjoint rows so they need no locking.
func (p *Pass) rasterize(v View, items []drawItem) {
	n := v.Width * v.Height
	if cap(p.gbuf) < n {
		p.gbuf = make([]sample, n)
	}
	p.gbuf = p.gbuf[:n]

	r := raster.Rasterizer{Width: v.Width, Height: v.Height, Cull: raster.CullBack, ClipDepth: true}
	workers := 1
	if p.pool != nil {
		workers = p.pool.Workers() * 2
	}
	bands := r.Bands(workers)
	p.each(len(bands), func(i int) {
		band := bands[i]
		rows := p.gbuf[band.Y0*v.Width : band.Y1*v.Width]
		for j := range rows {
			rows[j] = sample{depth: 1}
		}
		for _, it := range items {
			mat, face := it.mat, it.face
			r.DrawTriangle(it.tri, band, func(f *raster.Fragment) {
				s := &p.gbuf[f.Y*v.Width+f.X]
				if f.Depth >= s.depth || mat.Discard(f.UV) {
					return
				}
				*s = sample{depth: f.Depth, pos: f.World, normal: f.Normal, face: face, uv: f.UV, mat: mat}
			})
		}
	})
}

func (p *Pass) surface(v View, s *sample) Surface {
	n := s.normal.Normalize()
	if n.LengthSqr() == 0 {
		n = s.face
	}
	return Surface{
		Position:  s.pos,
		Normal:    n,
		View:      v.Camera.Position.Sub(s.pos).Normalize(),
		Albedo:    s.mat.Albedo(s.uv),
		Specular:  s.mat.SpecularColor(s.uv),
		Roughness: s.mat.Roughness,
	}
}

func (p *Pass) each(n int, fn func(i int)) {
	if p.pool == nil {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	p.pool.For(n, fn)
}

func (p *Pass) rows(h int, fn func(y int)) {
	if p.pool == nil {
		for y := 0; y < h; y++ {
			fn(y)
		}
		return
	}
	p.pool.Chunks(h, func(lo, hi int) {
		for y := lo; y < hi; y++ {
			fn(y)
		}
	})
}

// Background is the color of pixels no geometry covers.
var Background = color.RGBA{0, 0, 0, 255}
