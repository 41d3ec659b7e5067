package fetcher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/schema-auditor/internal/domain"
	"github.com/jonesrussell/north-cloud/schema-auditor/internal/logger"
)

// EntrySource hands out crawl work. Next returns false once no more work will arrive.
type EntrySource interface {
	Next(ctx context.Context) (domain.FrontierEntry, bool)
}

// EntryHandler processes one dequeued entry. It must not block on the source.
type EntryHandler func(ctx context.Context, workerID int, entry domain.FrontierEntry)

// Pool runs a fixed number of workers that drain an EntrySource.
type Pool struct {
	workers int
	log     logger.Logger
}

// NewPool creates a Pool with the given number of workers.
func NewPool(workers int, log logger.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pool{workers: workers, log: log}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run starts the workers and blocks until every worker has seen the source
// report completion. Handlers run to completion even if ctx is cancelled;
// cancellation only prevents further dequeues.
func (p *Pool) Run(ctx context.Context, src EntrySource, handle EntryHandler) error {
	p.log.Debug("Starting worker pool", logger.Int("workers", p.workers))

	var g errgroup.Group
	for i := range p.workers {
		workerID := i
		g.Go(func() error {
			for {
				entry, ok := src.Next(ctx)
				if !ok {
					return nil
				}
				handle(ctx, workerID, entry)
			}
		})
	}

	err := g.Wait()
	p.log.Debug("Worker pool stopped")
	return err
}
