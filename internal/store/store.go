// Package store defines the persistent-queue contract the engine depends on
// (Store) and ships two implementations that satisfy it: an in-memory
// reference store with full dependency-graph accounting (used by the
// engine's own test suite and suitable for single-process deployments), and
// a GORM-backed SQL store under ./sqlstore for durability across restarts.
package store

import (
	"context"
	"time"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
)

// Store is the persistent queue the engine polls, leases against, and
// reports outcomes to. The engine never mutates persistent state directly;
// every mutation listed here is a call into this interface.
type Store interface {
	// AcquireJob returns the next leaf whose DueTime has passed and whose
	// dependencies are satisfied, atomically marking it leased. A nil
	// Description with a nil error means nothing is currently runnable.
	AcquireJob(ctx context.Context) (*jobrun.Description, error)

	// ReleaseJob applies result to the job identified by id: marks it
	// terminal or reschedules it, and re-evaluates any dependents blocked
	// on it (Sequence successors, Set membership countdowns).
	ReleaseJob(ctx context.Context, id string, result jobrun.Result) error

	// Heartbeat records that the named worker is alive with the given
	// parallelism and timing parameters, so the store can expire workers
	// that stop reporting.
	Heartbeat(ctx context.Context, machineName string, parallelism int, pollingFrequency, heartBeatFrequency time.Duration) error

	// QueueAsync registers a new graph (a Single job, or a Sequence/Set of
	// them) and returns the root node's id. This is the scheduler-facing
	// entry point; the engine's dispatch loop never calls it.
	QueueAsync(ctx context.Context, spec Spec) (string, error)
}

// Liveness is the last heartbeat a worker reported, exposed so operators and
// tests can assert on heartbeat freshness.
type Liveness struct {
	MachineName        string
	Parallelism        int
	PollingFrequency   time.Duration
	HeartBeatFrequency time.Duration
	LastSeen           time.Time
}
