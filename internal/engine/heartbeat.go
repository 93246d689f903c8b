package engine

import "context"

// runHeartbeat is the liveness loop: once every HeartBeatFrequency it
// reports this worker to the store, swallowing transient store errors so a
// flaky store never kills the worker. It does not drain on cancellation; it
// simply exits on its next wake, leaving draining to the dispatch loop.
func (e *Engine) runHeartbeat(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.cfg.Clock.After(e.cfg.HeartBeatFrequency):
		}

		if err := e.cfg.Store.Heartbeat(ctx, e.cfg.MachineName, e.cfg.Parallelism, e.cfg.PollingFrequency, e.cfg.HeartBeatFrequency); err != nil {
			e.log.Warn("heartbeat failed", "machine_name", e.cfg.MachineName, "error", err)
			continue
		}
		e.log.Debug("heartbeat sent", "machine_name", e.cfg.MachineName)
	}
}
