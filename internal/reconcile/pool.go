package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/naudhr/tup/internal/ir"
)

// Job bundles one command's sandbox report for pooled reconciliation.
type Job struct {
	CmdID   ir.Tupid
	Report  Report
	Options Options
}

// Outcome pairs a Job's result with any error Reconcile returned.
type Outcome struct {
	CmdID  ir.Tupid
	Result *Result
	Err    error
}

// Pool bounds how many commands' reconciliation may be in flight at once.
// Command execution itself runs on a worker pool outside this package's
// scope; Pool models only the reconciler side of spec.md 5's
// "workers run concurrently, mutations serialize through the writer":
// jobs race to acquire the semaphore, but each call into the writer is
// still taken under a single mutex, so the store only ever sees one
// mutation at a time, applied in the order jobs finished waiting for it.
type Pool struct {
	r   *Reconciler
	sem *semaphore.Weighted
	mu  sync.Mutex
}

// NewPool builds a Pool admitting up to maxWorkers jobs concurrently.
func NewPool(r *Reconciler, maxWorkers int64) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{r: r, sem: semaphore.NewWeighted(maxWorkers)}
}

// RunAll reconciles every job and returns their outcomes in the order the
// writer actually applied them.
func (p *Pool) RunAll(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(jobs))
	var outMu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := p.sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)

			p.mu.Lock()
			res, err := p.r.Reconcile(gCtx, j.CmdID, j.Report, j.Options)
			outMu.Lock()
			outcomes = append(outcomes, Outcome{CmdID: j.CmdID, Result: res, Err: err})
			outMu.Unlock()
			p.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
