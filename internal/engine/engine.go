package engine

import (
	"context"
	"sync"

	"github.com/fenwick-labs/jobengine/internal/logger"
)

// Engine is the façade: it starts and stops the heartbeat loop and the
// dispatch loop as a single lifecycle.
type Engine struct {
	cfg Config
	log *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once

	fatalCh   chan struct{}
	fatalOnce sync.Once
	mu        sync.Mutex
	fatalErr  error
}

// New validates cfg, applies defaults, and constructs an Engine. Start has
// not been called yet; no goroutines are running.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		log:     cfg.Log.With("component", "Engine"),
		fatalCh: make(chan struct{}),
	}, nil
}

// Start launches the heartbeat loop and the dispatch loop as two
// independent concurrent activities sharing ctx's cancellation. It returns
// immediately. Calling Start more than once is a no-op after the first call.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		e.cancel = cancel
		e.wg.Add(2)
		go e.runHeartbeat(runCtx)
		go e.runDispatch(runCtx)
		e.log.Info("engine started",
			"machine_name", e.cfg.MachineName,
			"parallelism", e.cfg.Parallelism,
			"polling_frequency", e.cfg.PollingFrequency,
			"heart_beat_frequency", e.cfg.HeartBeatFrequency,
		)
	})
}

// Stop signals cancellation and waits for both loops to drain: the dispatch
// loop finishes every in-flight job before returning. Idempotent — calling
// Stop twice is safe and the second call is a no-op.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		e.wg.Wait()
		e.log.Info("engine stopped", "machine_name", e.cfg.MachineName)
	})
}

// Err returns the fatal store error (if any) that caused the dispatch loop
// to terminate early. Safe to call at any time, before or after Stop;
// returns nil as long as no fatal store error has been recorded.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fatalErr
}

// fail records err as the engine's fatal error (first one wins) and signals
// the dispatch loop to stop acquiring new work.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	if e.fatalErr == nil {
		e.fatalErr = err
	}
	e.mu.Unlock()
	e.fatalOnce.Do(func() { close(e.fatalCh) })
}
