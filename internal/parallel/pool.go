// Package parallel runs pass work on a shared bounded worker pool. Every call
// blocks until all of its tasks finish, which gives each render pass a full
// barrier before the next one reads its output.
package parallel

import (
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
)

type Pool struct {
	pool    pond.Pool
	workers int
}

// NewPool starts a pool with the given concurrency; zero or less means one
// worker per CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{pool: pond.NewPool(workers), workers: workers}
}

func (p *Pool) Workers() int { return p.workers }

// For calls fn(i) for i in [0, n) and waits for every call. Tasks must not
// call back into the same pool.
func (p *Pool) For(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.pool.Submit(func() {
			defer wg.Done()
			fn(i)
		})
	}
	wg.Wait()
}

// Chunks splits [0, n) into contiguous ranges, at most a few per worker, and
// calls fn(lo, hi) for each.
func (p *Pool) Chunks(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	parts := p.workers * 4
	if parts > n {
		parts = n
	}
	size := (n + parts - 1) / parts
	p.For(parts, func(i int) {
		lo := i * size
		hi := lo + size
		if hi > n {
			hi = n
		}
		if lo < hi {
			fn(lo, hi)
		}
	})
}

// Release stops the pool after queued tasks drain.
func (p *Pool) Release() {
	p.pool.StopAndWait()
}
