// Package engine is the execution core: the dispatch loop, the heartbeat
// loop, the job executor, and the façade that starts/stops them as one
// lifecycle. It is deliberately store-, resolver- and clock-agnostic; see
// the store, jobrun, and clock packages for the collaborators it binds.
package engine

import (
	"fmt"
	"time"

	"github.com/fenwick-labs/jobengine/internal/clock"
	"github.com/fenwick-labs/jobengine/internal/jobrun"
	"github.com/fenwick-labs/jobengine/internal/logger"
	"github.com/fenwick-labs/jobengine/internal/store"
)

// Config is the engine's explicit configuration surface. There is no
// package-level singleton; every field here is a required or defaulted
// binding passed into New.
type Config struct {
	Store    store.Store
	Registry *jobrun.Registry
	Resolver jobrun.Resolver
	Clock    clock.Clock
	Log      *logger.Logger

	// MachineName identifies this worker process in heartbeat records.
	// Defaults to "worker" if empty.
	MachineName string

	// Parallelism is the slot-semaphore capacity: the maximum number of
	// jobs this engine executes concurrently. Must be >= 1.
	Parallelism int

	// PollingFrequency is how long the dispatch loop sleeps after finding
	// no runnable job before asking the store again. Must be > 0.
	PollingFrequency time.Duration

	// HeartBeatFrequency is how often the heartbeat loop reports this
	// worker's liveness to the store. Must be > 0.
	HeartBeatFrequency time.Duration
}

// validate checks the preconditions Start requires.
func (c Config) validate() error {
	if c.Store == nil {
		return fmt.Errorf("engine: config: Store is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("engine: config: Registry is required")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("engine: config: Parallelism must be >= 1, got %d", c.Parallelism)
	}
	if c.PollingFrequency <= 0 {
		return fmt.Errorf("engine: config: PollingFrequency must be > 0, got %s", c.PollingFrequency)
	}
	if c.HeartBeatFrequency <= 0 {
		return fmt.Errorf("engine: config: HeartBeatFrequency must be > 0, got %s", c.HeartBeatFrequency)
	}
	return nil
}

// withDefaults fills in optional fields with their defaults.
func (c Config) withDefaults() Config {
	if c.MachineName == "" {
		c.MachineName = "worker"
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Resolver == nil {
		c.Resolver = jobrun.MapResolver{}
	}
	if c.Log == nil {
		c.Log = logger.Noop()
	}
	return c
}
