package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
)

// runDispatch is the bounded-concurrency pump. slots is a counting
// semaphore of capacity Parallelism: acquiring is sending to it, releasing
// is receiving from it. It is released exactly once per slot acquired, on
// every branch (no job found, job dispatched, cancellation).
func (e *Engine) runDispatch(ctx context.Context) {
	defer e.wg.Done()

	slots := make(chan struct{}, e.cfg.Parallelism)
	var jobs sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			jobs.Wait()
			return
		case <-e.fatalCh:
			jobs.Wait()
			return
		case slots <- struct{}{}:
		}

		job, err := e.cfg.Store.AcquireJob(ctx)
		if err != nil {
			<-slots
			e.log.Error("acquire job failed", "error", err)
			e.fail(fmt.Errorf("engine: acquire job: %w", err))
			jobs.Wait()
			return
		}

		if job == nil {
			<-slots
			select {
			case <-ctx.Done():
				jobs.Wait()
				return
			case <-e.fatalCh:
				jobs.Wait()
				return
			case <-e.cfg.Clock.After(e.cfg.PollingFrequency):
			}
			continue
		}

		jobs.Add(1)
		go func(job *jobrun.Description) {
			defer jobs.Done()
			defer func() { <-slots }()
			e.runOne(ctx, job)
		}(job)
	}
}

// runOne executes a single leased job and releases it back to the store,
// logging (never panicking) on any store failure from ReleaseJob.
func (e *Engine) runOne(ctx context.Context, job *jobrun.Description) {
	result := execute(job, e.cfg.Registry, e.cfg.Resolver, e.cfg.Clock)

	e.log.Debug("job executed",
		"job_id", job.ID,
		"job_type", job.Type,
		"state", result.State.String(),
		"execution_time", result.ExecutionTime,
	)

	if err := e.cfg.Store.ReleaseJob(ctx, job.ID, result); err != nil {
		e.log.Error("release job failed", "job_id", job.ID, "job_type", job.Type, "error", err)
		e.fail(fmt.Errorf("engine: release job %s: %w", job.ID, err))
	}
}
