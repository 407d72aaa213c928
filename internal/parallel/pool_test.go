package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	p := NewPool(4)
	defer p.Release()

	hits := make([]int32, 1000)
	p.For(len(hits), func(i int) {
		atomic.AddInt32(&hits[i], 1)
	})
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestChunksCoverRange(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		p := NewPool(workers)
		var total atomic.Int64
		covered := make([]int32, 37)
		p.Chunks(len(covered), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&covered[i], 1)
			}
			total.Add(int64(hi - lo))
		})
		p.Release()
		assert.Equal(t, int64(37), total.Load())
		for i, c := range covered {
			assert.Equal(t, int32(1), c, "workers=%d index %d", workers, i)
		}
	}
}

func TestEmptyWork(t *testing.T) {
	p := NewPool(0)
	defer p.Release()
	assert.Positive(t, p.Workers())
	p.For(0, func(int) { t.Fatal("unexpected call") })
	p.Chunks(0, func(int, int) { t.Fatal("unexpected call") })
}
