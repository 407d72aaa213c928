// Package volume stores the voxel radiance grid: a cubic RGBA8 texture with a
// full mip chain, kept sparse as 8x8x8 bricks that are allocated on first
// write.
package volume

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"vct-renderer/internal/parallel"
	"vct-renderer/math"

	"github.com/chewxy/math32"
)

// MaxSize is the largest supported edge length.
const MaxSize = 1024

const (
	brickShift  = 3
	brickDim    = 1 << brickShift
	brickMask   = brickDim - 1
	brickTexels = brickDim * brickDim * brickDim
)

var (
	ErrAllocation      = errors.New("volume allocation failed")
	ErrWriteInProgress = errors.New("volume write pass already open")
)

// Texel is one RGBA8 cell: rgb radiance and coverage in alpha.
type Texel [4]uint8

func (t Texel) IsZero() bool {
	return t == Texel{}
}

type brick [brickTexels]Texel

type level struct {
	size    int
	perAxis int // bricks per axis
	bricks  []*brick
}

func newLevel(size int) *level {
	n := (size + brickMask) >> brickShift
	return &level{size: size, perAxis: n, bricks: make([]*brick, n*n*n)}
}

func (l *level) slot(x, y, z int) (int, int) {
	b := ((z>>brickShift)*l.perAxis+(y>>brickShift))*l.perAxis + (x >> brickShift)
	t := ((z&brickMask)*brickDim+(y&brickMask))*brickDim + (x & brickMask)
	return b, t
}

func (l *level) get(x, y, z int) Texel {
	if x < 0 || y < 0 || z < 0 || x >= l.size || y >= l.size || z >= l.size {
		return Texel{}
	}
	b, t := l.slot(x, y, z)
	if br := l.bricks[b]; br != nil {
		return br[t]
	}
	return Texel{}
}

// brickOrigin returns the texel coordinate of the first texel in brick b.
func (l *level) brickOrigin(b int) (int, int, int) {
	x := b % l.perAxis
	y := (b / l.perAxis) % l.perAxis
	z := b / (l.perAxis * l.perAxis)
	return x << brickShift, y << brickShift, z << brickShift
}

// Texture is a size³ RGBA8 volume with log2(size)+1 mip levels. Level 0 is
// written only through a Writer; every other level is derived by
// GenerateMips.
type Texture struct {
	size    int
	levels  []*level
	pool    *parallel.Pool
	writing atomic.Bool
}

type Option func(*Texture)

// WithPool spreads resolve and mip generation over p.
func WithPool(p *parallel.Pool) Option {
	return func(t *Texture) { t.pool = p }
}

// New allocates a zero-filled volume of the given edge length.
func New(size int, opts ...Option) (*Texture, error) {
	if size < 1 || size > MaxSize || !math.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("volume size %d: %w", size, ErrAllocation)
	}
	t := &Texture{size: size}
	for s := size; s >= 1; s /= 2 {
		t.levels = append(t.levels, newLevel(s))
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

func (t *Texture) Size() int   { return t.size }
func (t *Texture) Levels() int { return len(t.levels) }

// LevelSize returns the edge length of a mip level.
func (t *Texture) LevelSize(lvl int) int {
	if lvl < 0 || lvl >= len(t.levels) {
		return 0
	}
	return t.levels[lvl].size
}

// Texel reads one cell; coordinates outside the level read as zero.
func (t *Texture) Texel(lvl, x, y, z int) Texel {
	if lvl < 0 || lvl >= len(t.levels) {
		return Texel{}
	}
	return t.levels[lvl].get(x, y, z)
}

// Clear zeroes every level.
func (t *Texture) Clear() {
	for _, l := range t.levels {
		clear(l.bricks)
	}
}

// Release drops all storage. The texture reads as empty afterwards.
func (t *Texture) Release() {
	for _, l := range t.levels {
		l.bricks = nil
		l.perAxis = 0
		l.size = 0
	}
	t.levels = nil
}

// Occupied counts texels with any non-zero channel in a level.
func (t *Texture) Occupied(lvl int) int {
	if lvl < 0 || lvl >= len(t.levels) {
		return 0
	}
	n := 0
	for _, br := range t.levels[lvl].bricks {
		if br == nil {
			continue
		}
		for _, tx := range br {
			if !tx.IsZero() {
				n++
			}
		}
	}
	return n
}

// Bricks reports how many bricks are allocated in a level.
func (t *Texture) Bricks(lvl int) int {
	if lvl < 0 || lvl >= len(t.levels) {
		return 0
	}
	n := 0
	for _, br := range t.levels[lvl].bricks {
		if br != nil {
			n++
		}
	}
	return n
}

// Equal reports whether both volumes hold the same texels on every level.
func (t *Texture) Equal(o *Texture) bool {
	if t.size != o.size || len(t.levels) != len(o.levels) {
		return false
	}
	var zero brick
	for i, l := range t.levels {
		ol := o.levels[i]
		for b := range l.bricks {
			x, y := l.bricks[b], ol.bricks[b]
			if x == nil {
				x = &zero
			}
			if y == nil {
				y = &zero
			}
			if *x != *y {
				return false
			}
		}
	}
	return true
}

// Checksum hashes every level. Empty bricks hash the same whether or not they
// are allocated.
func (t *Texture) Checksum() uint64 {
	h := fnv.New64a()
	var buf [brickTexels * 4]byte
	for li, l := range t.levels {
		for b, br := range l.bricks {
			if br == nil || isEmpty(br) {
				continue
			}
			h.Write([]byte{byte(li), byte(b), byte(b >> 8), byte(b >> 16), byte(b >> 24)})
			for i, tx := range br {
				copy(buf[i*4:], tx[:])
			}
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

func isEmpty(br *brick) bool {
	for _, tx := range br {
		if !tx.IsZero() {
			return false
		}
	}
	return true
}

func (t *Texture) chunks(n int, fn func(lo, hi int)) {
	if t.pool == nil {
		fn(0, n)
		return
	}
	t.pool.Chunks(n, fn)
}

// GenerateMips rebuilds levels 1..L-1 from level 0. Each parent texel is
// the rounded average of its eight children, so calling it again without an
// intervening write leaves the volume unchanged.
func (t *Texture) GenerateMips() {
	for k := 1; k < len(t.levels); k++ {
		child, parent := t.levels[k-1], t.levels[k]
		clear(parent.bricks)
		t.chunks(len(parent.bricks), func(lo, hi int) {
			for b := lo; b < hi; b++ {
				parent.bricks[b] = downsample(child, parent, b)
			}
		})
	}
}

// downsample builds parent brick b, or returns nil if it would be empty.
func downsample(child, parent *level, b int) *brick {
	ox, oy, oz := parent.brickOrigin(b)
	if !anyChildBrick(child, ox*2, oy*2, oz*2) {
		return nil
	}
	var out brick
	empty := true
	lim := min(brickDim, parent.size)
	for z := 0; z < lim; z++ {
		for y := 0; y < lim; y++ {
			for x := 0; x < lim; x++ {
				cx, cy, cz := (ox+x)*2, (oy+y)*2, (oz+z)*2
				var sum [4]uint32
				for i := 0; i < 8; i++ {
					tx := child.get(cx+i&1, cy+(i>>1)&1, cz+(i>>2)&1)
					sum[0] += uint32(tx[0])
					sum[1] += uint32(tx[1])
					sum[2] += uint32(tx[2])
					sum[3] += uint32(tx[3])
				}
				if sum == [4]uint32{} {
					continue
				}
				_, ti := parent.slot(ox+x, oy+y, oz+z)
				out[ti] = Texel{
					uint8((sum[0] + 4) / 8),
					uint8((sum[1] + 4) / 8),
					uint8((sum[2] + 4) / 8),
					uint8((sum[3] + 4) / 8),
				}
				if !out[ti].IsZero() {
					empty = false
				}
			}
		}
	}
	if empty {
		return nil
	}
	return &out
}

// anyChildBrick reports whether any child brick under the 16³ child region
// starting at (x, y, z) is allocated.
func anyChildBrick(child *level, x, y, z int) bool {
	for dz := 0; dz < 2; dz++ {
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				cx, cy, cz := x+dx*brickDim, y+dy*brickDim, z+dz*brickDim
				if cx >= child.size || cy >= child.size || cz >= child.size {
					continue
				}
				b, _ := child.slot(cx, cy, cz)
				if child.bricks[b] != nil {
					return true
				}
			}
		}
	}
	return false
}

// SampleLod filters the volume at normalized coordinate uvw: trilinear inside
// a level and linear between the two nearest levels. Texel centres sit at
// (i+0.5)/size and everything outside the volume reads as zero. The result
// is normalized to [0, 1].
func (t *Texture) SampleLod(uvw math.Vec3, lod float32) [4]float32 {
	if len(t.levels) == 0 {
		return [4]float32{}
	}
	lod = math.Clamp(lod, 0, float32(len(t.levels)-1))
	l0 := int(lod)
	f := lod - float32(l0)
	a := t.levels[l0].sample(uvw)
	if f > 0 && l0+1 < len(t.levels) {
		b := t.levels[l0+1].sample(uvw)
		for i := range a {
			a[i] += (b[i] - a[i]) * f
		}
	}
	return a
}

func (l *level) sample(uvw math.Vec3) [4]float32 {
	s := float32(l.size)
	tx, ty, tz := uvw.X*s-0.5, uvw.Y*s-0.5, uvw.Z*s-0.5
	if tx < -1 || ty < -1 || tz < -1 || tx >= s || ty >= s || tz >= s {
		return [4]float32{}
	}
	fx, fy, fz := math32.Floor(tx), math32.Floor(ty), math32.Floor(tz)
	x0, y0, z0 := int(fx), int(fy), int(fz)
	wx, wy, wz := tx-fx, ty-fy, tz-fz

	var out [4]float32
	for i := 0; i < 8; i++ {
		dx, dy, dz := i&1, (i>>1)&1, (i>>2)&1
		w := pick(dx, wx) * pick(dy, wy) * pick(dz, wz)
		if w == 0 {
			continue
		}
		tex := l.get(x0+dx, y0+dy, z0+dz)
		if tex.IsZero() {
			continue
		}
		for c := range out {
			out[c] += w * float32(tex[c])
		}
	}
	for c := range out {
		out[c] /= 255
	}
	return out
}

func pick(d int, w float32) float32 {
	if d == 0 {
		return 1 - w
	}
	return w
}
