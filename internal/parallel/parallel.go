// Package parallel runs independent work over copies of an autodiff graph.
//
// A Graph is not safe for concurrent use, so every worker gets its own
// clone. Work items are distributed with a bounded errgroup; the first
// error cancels the remaining items.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/femtograd/internal/autodiff"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

func (c Config) workers(n int) int {
	if !c.Enabled || c.NumWorkers < 1 {
		return 1
	}
	return min(c.NumWorkers, max(n, 1))
}

// For executes f(ctx, i) for i in [0, n) on at most cfg.NumWorkers
// goroutines. It returns the first error.
func For(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers(n))
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return f(ctx, i)
		})
	}
	return g.Wait()
}

// OverClones executes f for i in [0, n), handing each call a clone of
// graph that no other call uses at the same time. One clone is made per
// worker and reused across items; graph itself is never modified.
func OverClones(ctx context.Context, graph *autodiff.Graph, n int, f func(ctx context.Context, i int, clone *autodiff.Graph) error, cfg Config) error {
	workers := cfg.workers(n)
	pool := make(chan *autodiff.Graph, workers)
	for range workers {
		pool <- graph.Clone()
	}

	return For(ctx, n, func(ctx context.Context, i int) error {
		clone := <-pool
		defer func() { pool <- clone }()
		return f(ctx, i, clone)
	}, cfg)
}
