// Package shadow renders scene depth from a directional light into a square
// depth target and answers filtered "is this point lit" queries against it.
package shadow

import (
	"errors"
	"fmt"
	"sync/atomic"

	"vct-renderer/internal/parallel"
	"vct-renderer/math"
	"vct-renderer/raster"
	"vct-renderer/scene"

	"github.com/chewxy/math32"
)

// MaxResolution bounds the depth target edge.
const MaxResolution = 16384

var ErrIncomplete = errors.New("shadow target incomplete")

// Pass owns the light-space depth target. Depth is window depth in [0, 1]
// stored bottom row first; texels nothing covers hold 1.
type Pass struct {
	res      int
	depth    []float32
	viewProj math.Mat4
	pool     *parallel.Pool
}

// New allocates a resolution² depth target. A nil pool renders serially.
func New(resolution int, pool *parallel.Pool) (*Pass, error) {
	if resolution < 1 || resolution > MaxResolution {
		return nil, fmt.Errorf("shadow map %dx%d: %w", resolution, resolution, ErrIncomplete)
	}
	p := &Pass{
		res:      resolution,
		depth:    make([]float32, resolution*resolution),
		viewProj: math.Mat4Identity(),
		pool:     pool,
	}
	for i := range p.depth {
		p.depth[i] = 1
	}
	return p, nil
}

func (p *Pass) Resolution() int { return p.res }

// ViewProjection is the light matrix used by the last Render.
func (p *Pass) ViewProjection() math.Mat4 { return p.viewProj }

// Depth returns the stored depth at texel (x, y), or 1 outside the map.
func (p *Pass) Depth(x, y int) float32 {
	if x < 0 || y < 0 || x >= p.res || y >= p.res || p.depth == nil {
		return 1
	}
	return p.depth[y*p.res+x]
}

// Release drops the depth target; every point reads as lit afterwards.
func (p *Pass) Release() {
	p.depth = nil
}

type caster struct {
	tri [3]raster.Vertex
	mat *scene.Material
}

// Render clears the target and rasterizes every object's depth from the
// light. Both faces are drawn and cut-out texels are skipped. It returns the
// number of triangles that produced coverage.
func (p *Pass) Render(light scene.DirectionalLight, objects []*scene.Object) int {
	if p.depth == nil {
		return 0
	}
	p.viewProj = light.GetViewProjectionMatrix()

	var casters []caster
	for _, obj := range objects {
		for _, tri := range obj.WorldTriangles() {
			casters = append(casters, caster{raster.Project(tri, p.viewProj), obj.Material})
		}
	}

	r := raster.Rasterizer{Width: p.res, Height: p.res, Cull: raster.CullNone, ClipDepth: true}
	bands := r.Bands(p.bandCount())
	hits := make([]atomic.Bool, len(casters))

	p.each(len(bands), func(i int) {
		band := bands[i]
		row := p.depth[band.Y0*p.res : band.Y1*p.res]
		for j := range row {
			row[j] = 1
		}
		for ci, c := range casters {
			mat := c.mat
			alphaTested := mat != nil && (mat.DiffuseTexture != nil || mat.OpacityTexture != nil)
			r.DrawTriangle(c.tri, band, func(f *raster.Fragment) {
				if alphaTested && mat.Discard(f.UV) {
					return
				}
				idx := f.Y*p.res + f.X
				if f.Depth <= p.depth[idx] {
					p.depth[idx] = f.Depth
				}
				hits[ci].Store(true)
			})
		}
	})

	drawn := 0
	for i := range hits {
		if hits[i].Load() {
			drawn++
		}
	}
	return drawn
}

func (p *Pass) bandCount() int {
	if p.pool == nil {
		return 1
	}
	return p.pool.Workers() * 2
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

// Visibility returns how lit world point pos is, in [0, 1]. Four texels
// around the projected point are depth-compared (less-equal against the
// biased depth) and the results filtered bilinearly, so values change
// smoothly across shadow edges. Points outside the light frustum are lit.
func (p *Pass) Visibility(pos math.Vec3, bias float32) float32 {
	if p.depth == nil {
		return 1
	}
	ndc := p.viewProj.MulVec3(pos)
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z > 1 {
		return 1
	}
	ref := ndc.Z*0.5 + 0.5 - bias

	s := float32(p.res)
	tx := (ndc.X*0.5+0.5)*s - 0.5
	ty := (ndc.Y*0.5+0.5)*s - 0.5
	fx, fy := math32.Floor(tx), math32.Floor(ty)
	x0, y0 := int(fx), int(fy)
	wx, wy := tx-fx, ty-fy

	lit := func(x, y int) float32 {
		if ref <= p.Depth(x, y) {
			return 1
		}
		return 0
	}
	lower := math.Lerp(lit(x0, y0), lit(x0+1, y0), wx)
	upper := math.Lerp(lit(x0, y0+1), lit(x0+1, y0+1), wx)
	return math.Lerp(lower, upper, wy)
}
