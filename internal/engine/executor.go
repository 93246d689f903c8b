package engine

import (
	"fmt"

	"github.com/fenwick-labs/jobengine/internal/clock"
	"github.com/fenwick-labs/jobengine/internal/jobrun"
)

// execute runs a single leased job description through the resolver and the
// job's Run, mapping every outcome (including a panic) to a jobrun.Result.
// There is no path out of this function that leaves the caller without a
// Result: that invariant is what lets the dispatch loop always call
// ReleaseJob exactly once per lease.
func execute(job *jobrun.Description, registry *jobrun.Registry, resolver jobrun.Resolver, clk clock.Clock) (result jobrun.Result) {
	start := clk.Now()
	defer func() {
		if r := recover(); r != nil {
			result = jobrun.ResultError(fmt.Sprintf("panic: %v", r), job.DueTime)
		}
		result.ExecutionTime = clk.Now().Sub(start)
	}()

	j, ok, err := registry.Build(job.Type, resolver, job.Input)
	if err != nil {
		return jobrun.ResultError(fmt.Sprintf("resolve job_type=%q: %v", job.Type, err), job.DueTime)
	}
	if !ok {
		return jobrun.ResultError(fmt.Sprintf("no handler registered for job_type=%q", job.Type), job.DueTime)
	}

	res, runErr := jobrun.Run(j, job.Input)
	if runErr != nil {
		return jobrun.ResultError(runErr.Error(), job.DueTime)
	}
	return res
}
