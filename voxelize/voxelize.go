// Package voxelize injects directly lit scene geometry into a volume texture.
// Every triangle is rasterized once at the volume resolution through the
// axis projection that gives it the largest footprint, and each fragment
// blends its shadowed radiance into the voxel that contains it.
package voxelize

import (
	"fmt"
	"sync/atomic"

	"vct-renderer/core"
	"vct-renderer/internal/parallel"
	"vct-renderer/math"
	"vct-renderer/raster"
	"vct-renderer/scene"
	"vct-renderer/volume"

	"github.com/chewxy/math32"
)

// Occluder answers filtered light visibility queries; *shadow.Pass is one.
type Occluder interface {
	Visibility(pos math.Vec3, bias float32) float32
}

// Stats describes one voxelization run.
type Stats struct {
	Triangles  int // triangles submitted
	Degenerate int // zero-area triangles skipped
	Fragments  int // fragments that landed inside the volume
	Cells      int // level-0 cells written
}

// Pass writes into a volume that covers a cube of edge worldSize centred at
// the origin.
type Pass struct {
	vol       *volume.Texture
	occluder  Occluder
	proj      TriaxialProjection
	worldSize float32
	voxelSize float32
	bias      float32
	pool      *parallel.Pool
}

// New binds a pass to its target volume. occluder may be nil, in which case
// every point is fully lit. A nil pool runs serially.
func New(vol *volume.Texture, occluder Occluder, worldSize, bias float32, pool *parallel.Pool) *Pass {
	return &Pass{
		vol:       vol,
		occluder:  occluder,
		proj:      NewTriaxialProjection(worldSize),
		worldSize: worldSize,
		voxelSize: worldSize / float32(vol.Size()),
		bias:      bias,
		pool:      pool,
	}
}

func (p *Pass) Projection() TriaxialProjection { return p.proj }
func (p *Pass) VoxelSize() float32              { return p.voxelSize }

type job struct {
	tri scene.Triangle
	mat *scene.Material
}

// Run clears level 0, voxelizes every object and rebuilds the mip chain.
// Triangles outside the cube write nothing; degenerate ones are counted and
// skipped. Identical inputs always produce an identical volume.
func (p *Pass) Run(light scene.DirectionalLight, objects []*scene.Object) (Stats, error) {
	var jobs []job
	for _, obj := range objects {
		mat := obj.Material
		if mat == nil {
			mat = scene.DefaultMaterial()
		}
		for _, tri := range obj.WorldTriangles() {
			jobs = append(jobs, job{tri, mat})
		}
	}

	p.vol.Clear()
	w, err := p.vol.BeginWrite()
	if err != nil {
		return Stats{}, fmt.Errorf("voxelize: %w", err)
	}

	var degenerate, fragments atomic.Int64
	radiance := light.Radiance()
	toLight := light.ToLight()
	n := p.vol.Size()
	r := raster.Rasterizer{Width: n, Height: n, Cull: raster.CullNone}

	p.chunks(len(jobs), func(lo, hi int) {
		var deg, frags int64
		for _, j := range jobs[lo:hi] {
			face := j.tri.FaceNormal()
			if face.LengthSqr() == 0 {
				deg++
				continue
			}
			face = face.Normalize()
			vp := p.proj.For(DominantAxis(face))
			r.DrawTriangle(raster.Project(j.tri, vp), r.Full(), func(f *raster.Fragment) {
				x, y, z, ok := p.cell(f.World)
				if !ok || j.mat.Discard(f.UV) {
					return
				}
				normal := f.Normal.Normalize()
				if normal.LengthSqr() == 0 {
					normal = face
				}
				w.Blend(x, y, z, p.shade(j.mat, f, normal, toLight, radiance))
				frags++
			})
		}
		degenerate.Add(deg)
		fragments.Add(frags)
	})

	cells := w.End()
	p.vol.GenerateMips()

	return Stats{
		Triangles:  len(jobs),
		Degenerate: int(degenerate.Load()),
		Fragments:  int(fragments.Load()),
		Cells:      cells,
	}, nil
}

// shade returns the directly lit radiance of a fragment as an opaque texel.
func (p *Pass) shade(mat *scene.Material, f *raster.Fragment, n, toLight math.Vec3, radiance core.Color) volume.Texel {
	vis := float32(1)
	if p.occluder != nil {
		vis = p.occluder.Visibility(f.World, p.bias)
	}
	lambert := math32.Max(n.Dot(toLight), 0)
	c := mat.Albedo(f.UV).Mul(radiance).Scale(vis * lambert)
	c.A = 1
	return c.RGBA8()
}

// cell maps a world position to its level-0 voxel.
func (p *Pass) cell(pos math.Vec3) (int, int, int, bool) {
	h := p.worldSize / 2
	n := p.vol.Size()
	x := int(math32.Floor((pos.X + h) / p.voxelSize))
	y := int(math32.Floor((pos.Y + h) / p.voxelSize))
	z := int(math32.Floor((pos.Z + h) / p.voxelSize))
	if x < 0 || y < 0 || z < 0 || x >= n || y >= n || z >= n {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

func (p *Pass) chunks(n int, fn func(lo, hi int)) {
	if p.pool == nil {
		fn(0, n)
		return
	}
	p.pool.Chunks(n, fn)
}
