package latexcompile

import (
	"context"
	"runtime"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one compilation can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent toolchain processes; a TeX run is memory
	// and I/O heavy.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the toolchain's own helper processes.
	cpuDivisor = 2
)

// Pool bounds how many compilations run at once through a shared Compiler.
// It holds no per-compilation state: each call still gets its own workspace
// and process. Safe for concurrent use.
type Pool struct {
	compiler *Compiler
	slots    chan struct{}
}

// NewPool creates a pool allowing n concurrent compilations (minimum 1).
func NewPool(c *Compiler, n int) *Pool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &Pool{
		compiler: c,
		slots:    make(chan struct{}, n),
	}
}

// Compile waits for a free slot, then runs c.Compile. Returns ctx.Err() if
// the context ends while waiting.
func (p *Pool) Compile(ctx context.Context, req Request) (*Result, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.slots }()

	return p.compiler.Compile(ctx, req)
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InFlight returns the number of compilations currently holding a slot.
func (p *Pool) InFlight() int {
	return len(p.slots)
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is container-aware once automaxprocs has run.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
