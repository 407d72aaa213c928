package volume

import (
	"fmt"
	"sync/atomic"
)

// accBrick holds running sums for one brick of level 0. Integer addition is
// commutative, so the resolved average does not depend on write order.
type accBrick struct {
	sum   [brickTexels][4]atomic.Uint32
	count [brickTexels]atomic.Uint32
}

// Writer is an open scattered-write pass on level 0. Blend is safe for
// concurrent use; End must be called once after every Blend returned.
type Writer struct {
	tex  *Texture
	acc  []atomic.Pointer[accBrick]
	done bool
}

// BeginWrite opens a blended write pass. Only one pass may be open at a time.
func (t *Texture) BeginWrite() (*Writer, error) {
	if len(t.levels) == 0 {
		return nil, fmt.Errorf("begin write: %w", ErrAllocation)
	}
	if !t.writing.CompareAndSwap(false, true) {
		return nil, ErrWriteInProgress
	}
	return &Writer{
		tex: t,
		acc: make([]atomic.Pointer[accBrick], len(t.levels[0].bricks)),
	}, nil
}

// Blend adds one contribution to cell (x, y, z). Coordinates outside the
// volume are ignored.
func (w *Writer) Blend(x, y, z int, v Texel) {
	l0 := w.tex.levels[0]
	if x < 0 || y < 0 || z < 0 || x >= l0.size || y >= l0.size || z >= l0.size {
		return
	}
	b, t := l0.slot(x, y, z)
	acc := w.acc[b].Load()
	if acc == nil {
		fresh := new(accBrick)
		if w.acc[b].CompareAndSwap(nil, fresh) {
			acc = fresh
		} else {
			acc = w.acc[b].Load()
		}
	}
	s := &acc.sum[t]
	s[0].Add(uint32(v[0]))
	s[1].Add(uint32(v[1]))
	s[2].Add(uint32(v[2]))
	s[3].Add(uint32(v[3]))
	acc.count[t].Add(1)
}

// End resolves every touched cell to the rounded mean of its contributions,
// replacing the previous level-0 value, and closes the pass. It returns the
// number of cells written. Mip levels are left stale until GenerateMips.
func (w *Writer) End() int {
	if w.done {
		return 0
	}
	w.done = true
	defer w.tex.writing.Store(false)

	l0 := w.tex.levels[0]
	var cells atomic.Int64
	w.tex.chunks(len(w.acc), func(lo, hi int) {
		n := 0
		for b := lo; b < hi; b++ {
			acc := w.acc[b].Load()
			if acc == nil {
				continue
			}
			dst := l0.bricks[b]
			if dst == nil {
				dst = new(brick)
				l0.bricks[b] = dst
			}
			for t := range acc.count {
				c := acc.count[t].Load()
				if c == 0 {
					continue
				}
				s := &acc.sum[t]
				dst[t] = Texel{
					resolve(s[0].Load(), c),
					resolve(s[1].Load(), c),
					resolve(s[2].Load(), c),
					resolve(s[3].Load(), c),
				}
				n++
			}
		}
		cells.Add(int64(n))
	})
	w.acc = nil
	return int(cells.Load())
}

func resolve(sum, count uint32) uint8 {
	return uint8((sum + count/2) / count)
}
