// Package fanout runs independent remote calls with bounded parallelism.
package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxConcurrent is the in-flight limit when none is configured.
const DefaultMaxConcurrent = 8

// Config configures a Pool.
type Config struct {
	MaxConcurrent int // Maximum calls in flight (default: 8)
}

// Pool bounds the number of concurrent calls with a semaphore. A single
// Pool may be shared by many Process calls; the bound applies per call.
type Pool struct {
	config Config
	logger *zap.Logger
}

// NewPool creates a fan-out pool.
func NewPool(config Config, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("fanout"),
	}
}

// MaxConcurrent returns the configured in-flight limit.
func (p *Pool) MaxConcurrent() int {
	return p.config.MaxConcurrent
}

// WorkItem is a unit of work.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult is the outcome of one WorkItem.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism and returns
// results in submission order. Every item gets a result even when siblings
// fail; items still waiting for a slot when ctx is done get ctx.Err().
func Process[T any](ctx context.Context, pool *Pool, items []WorkItem[T]) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i].ID = item.ID

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}

			// a slot may be won after cancellation
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}

			results[i].Result, results[i].Err = item.Execute(ctx)
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	pool.logger.Debug("Fan-out finished",
		zap.Int("items", len(items)),
		zap.Int("failed", failed),
		zap.Int("max_concurrent", pool.config.MaxConcurrent),
		zap.Duration("elapsed", time.Since(start)))

	return results
}
