package volume

import (
	"math/rand"
	"sync"
	"testing"

	"vct-renderer/internal/parallel"
	"vct-renderer/math"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, -8, 3, 12, MaxSize * 2} {
		_, err := New(size)
		assert.ErrorIs(t, err, ErrAllocation, "size %d", size)
	}

	v, err := New(16)
	require.NoError(t, err)
	assert.Equal(t, 5, v.Levels())
	assert.Equal(t, 16, v.LevelSize(0))
	assert.Equal(t, 1, v.LevelSize(4))
	assert.Equal(t, 0, v.LevelSize(5))
	assert.Equal(t, 0, v.Occupied(0))
}

func TestWriterAveragesContributions(t *testing.T) {
	v, err := New(16)
	require.NoError(t, err)

	w, err := v.BeginWrite()
	require.NoError(t, err)
	w.Blend(3, 4, 5, Texel{255, 0, 0, 255})
	w.Blend(3, 4, 5, Texel{0, 0, 255, 255})
	w.Blend(3, 4, 5, Texel{0, 0, 0, 255})
	w.Blend(9, 9, 9, Texel{10, 20, 30, 255})
	w.Blend(-1, 0, 0, Texel{255, 255, 255, 255})
	w.Blend(0, 16, 0, Texel{255, 255, 255, 255})
	assert.Equal(t, 2, w.End())

	assert.Equal(t, Texel{85, 0, 85, 255}, v.Texel(0, 3, 4, 5))
	assert.Equal(t, Texel{10, 20, 30, 255}, v.Texel(0, 9, 9, 9))
	assert.Equal(t, 2, v.Occupied(0))
	assert.Equal(t, Texel{}, v.Texel(0, 0, 0, 0))
}

func TestWriterRoundsToNearest(t *testing.T) {
	v, _ := New(8)
	w, _ := v.BeginWrite()
	w.Blend(0, 0, 0, Texel{1, 2, 0, 255})
	w.Blend(0, 0, 0, Texel{2, 2, 0, 255})
	w.End()
	// (1+2)/2 = 1.5 rounds up
	assert.Equal(t, Texel{2, 2, 0, 255}, v.Texel(0, 0, 0, 0))
}

func TestSingleWritePass(t *testing.T) {
	v, _ := New(8)
	w, err := v.BeginWrite()
	require.NoError(t, err)
	_, err = v.BeginWrite()
	assert.ErrorIs(t, err, ErrWriteInProgress)
	w.End()
	assert.Zero(t, w.End(), "second End is a no-op")

	w2, err := v.BeginWrite()
	require.NoError(t, err)
	w2.End()
}

func TestWriteReplacesTouchedCellsOnly(t *testing.T) {
	v, _ := New(8)
	w, _ := v.BeginWrite()
	w.Blend(1, 1, 1, Texel{100, 100, 100, 255})
	w.Blend(2, 2, 2, Texel{50, 50, 50, 255})
	w.End()

	w, _ = v.BeginWrite()
	w.Blend(1, 1, 1, Texel{0, 200, 0, 255})
	w.End()
	assert.Equal(t, Texel{0, 200, 0, 255}, v.Texel(0, 1, 1, 1))
	assert.Equal(t, Texel{50, 50, 50, 255}, v.Texel(0, 2, 2, 2))

	v.Clear()
	assert.Zero(t, v.Occupied(0))
}

func TestConcurrentBlendIsOrderIndependent(t *testing.T) {
	type write struct {
		x, y, z int
		t       Texel
	}
	rng := rand.New(rand.NewSource(7))
	writes := make([]write, 20000)
	for i := range writes {
		writes[i] = write{
			rng.Intn(32), rng.Intn(32), rng.Intn(4),
			Texel{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255},
		}
	}

	serial, _ := New(32)
	w, _ := serial.BeginWrite()
	for _, wr := range writes {
		w.Blend(wr.x, wr.y, wr.z, wr.t)
	}
	w.End()

	pool := parallel.NewPool(4)
	defer pool.Release()
	concurrent, _ := New(32, WithPool(pool))
	w, _ = concurrent.BeginWrite()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			// reverse order per goroutine
			for i := len(writes) - 1 - g; i >= 0; i -= 8 {
				wr := writes[i]
				w.Blend(wr.x, wr.y, wr.z, wr.t)
			}
		}(g)
	}
	wg.Wait()
	w.End()

	assert.True(t, serial.Equal(concurrent))
	assert.Equal(t, serial.Checksum(), concurrent.Checksum())
}

func fillRandom(t *testing.T, v *Texture, seed int64, n int) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	w, err := v.BeginWrite()
	require.NoError(t, err)
	size := v.Size()
	for i := 0; i < n; i++ {
		w.Blend(rng.Intn(size), rng.Intn(size), rng.Intn(size),
			Texel{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
	}
	w.End()
}

func TestMipIsAverageOfChildren(t *testing.T) {
	pool := parallel.NewPool(3)
	defer pool.Release()
	v, _ := New(32, WithPool(pool))
	fillRandom(t, v, 1, 3000)
	v.GenerateMips()

	for k := 0; k+1 < v.Levels(); k++ {
		ps := v.LevelSize(k + 1)
		for z := 0; z < ps; z++ {
			for y := 0; y < ps; y++ {
				for x := 0; x < ps; x++ {
					var sum [4]int
					for i := 0; i < 8; i++ {
						c := v.Texel(k, 2*x+i&1, 2*y+(i>>1)&1, 2*z+(i>>2)&1)
						for ch := range sum {
							sum[ch] += int(c[ch])
						}
					}
					got := v.Texel(k+1, x, y, z)
					for ch := range sum {
						require.Equal(t, uint8((sum[ch]+4)/8), got[ch], "level %d (%d,%d,%d) ch %d", k+1, x, y, z, ch)
					}
				}
			}
		}
	}
	assert.NotZero(t, v.Occupied(v.Levels()-1))
}

func TestGenerateMipsIsIdempotent(t *testing.T) {
	v, _ := New(16)
	fillRandom(t, v, 2, 500)
	v.GenerateMips()
	first := v.Checksum()

	snapshot, _ := New(16)
	fillRandom(t, snapshot, 2, 500)
	snapshot.GenerateMips()
	require.True(t, v.Equal(snapshot))

	v.GenerateMips()
	assert.Equal(t, first, v.Checksum())
	assert.True(t, v.Equal(snapshot))
}

func TestMipsFollowClear(t *testing.T) {
	v, _ := New(16)
	fillRandom(t, v, 3, 200)
	v.GenerateMips()
	require.NotZero(t, v.Occupied(2))

	w, _ := v.BeginWrite()
	w.End()
	v.Clear()
	v.GenerateMips()
	for k := 0; k < v.Levels(); k++ {
		assert.Zero(t, v.Occupied(k), "level %d", k)
	}
}

func TestSampleLod(t *testing.T) {
	v, _ := New(8)
	w, _ := v.BeginWrite()
	for z := 0; z < 8; z++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				w.Blend(x, y, z, Texel{255, 0, 0, 255})
			}
		}
	}
	w.End()
	v.GenerateMips()

	centre := v.SampleLod(math.Splat3(0.5), 0)
	assert.InDelta(t, 1, centre[0], 1e-5)
	assert.InDelta(t, 1, centre[3], 1e-5)

	// at the outer face half the filter footprint is outside the volume
	edge := v.SampleLod(math.NewVec3(0, 0.5, 0.5), 0)
	assert.InDelta(t, 0.5, edge[3], 1e-5)

	outside := v.SampleLod(math.NewVec3(-0.5, 0.5, 0.5), 0)
	assert.Equal(t, [4]float32{}, outside)

	coarse := v.SampleLod(math.Splat3(0.5), 100)
	assert.InDelta(t, 1, coarse[3], 1e-5, "lod clamps to the last level")
}

func TestSampleLodBlendsLevels(t *testing.T) {
	v, _ := New(2)
	w, _ := v.BeginWrite()
	w.Blend(0, 0, 0, Texel{0, 0, 0, 255})
	w.End()
	v.GenerateMips()

	// texel centre of (0,0,0) at level 0
	uvw := math.Splat3(0.25)
	l0 := v.SampleLod(uvw, 0)
	assert.InDelta(t, 1, l0[3], 1e-5)
	// level 1 is a single texel holding round(255/8) = 32, weighted 0.75 per
	// axis against the zero border
	l1 := v.SampleLod(uvw, 1)
	assert.InDelta(t, 32.0/255.0*0.75*0.75*0.75, l1[3], 1e-5)

	half := v.SampleLod(uvw, 0.5)
	assert.InDelta(t, (l0[3]+l1[3])/2, half[3], 1e-5)
}

func TestRelease(t *testing.T) {
	v, _ := New(8)
	fillRandom(t, v, 4, 10)
	v.Release()
	assert.Zero(t, v.Levels())
	assert.Equal(t, Texel{}, v.Texel(0, 0, 0, 0))
	assert.Equal(t, [4]float32{}, v.SampleLod(math.Splat3(0.5), 0))
	_, err := v.BeginWrite()
	assert.ErrorIs(t, err, ErrAllocation)
}
