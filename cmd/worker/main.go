// Command worker is a small CLI that wires an engine.Engine against the
// in-memory store and a demo job type. It exists to show how an application
// binds the core; real deployments will usually swap store.Memory for
// sqlstore.New(db) and register their own job types.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenwick-labs/jobengine/internal/clock"
	"github.com/fenwick-labs/jobengine/internal/config"
	"github.com/fenwick-labs/jobengine/internal/engine"
	"github.com/fenwick-labs/jobengine/internal/jobrun"
	"github.com/fenwick-labs/jobengine/internal/logger"
	"github.com/fenwick-labs/jobengine/internal/store"
)

type pingInput struct {
	Message string `json:"message"`
}

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	registry := jobrun.NewRegistry()
	if err := registry.Register("ping", func(_ jobrun.Resolver, _ []byte) (jobrun.Job, error) {
		return jobrun.Typed(json.Unmarshal, func(in pingInput) (jobrun.Result, error) {
			log.Info("ping job ran", "message", in.Message)
			return jobrun.ResultFinished(), nil
		}), nil
	}); err != nil {
		log.Fatal("register ping handler", "error", err)
	}

	st := store.NewMemory()

	eng, err := engine.New(engine.Config{
		Store:              st,
		Registry:           registry,
		Clock:              clock.Real{},
		Log:                log,
		MachineName:        config.GetEnv("MACHINE_NAME", "worker-1", log),
		Parallelism:        config.GetEnvAsInt("WORKER_CONCURRENCY", 4, log),
		PollingFrequency:   config.GetEnvAsDuration("POLLING_FREQUENCY_MS", 1*time.Second, log),
		HeartBeatFrequency: config.GetEnvAsDuration("HEARTBEAT_FREQUENCY_MS", 30*time.Second, log),
	})
	if err != nil {
		log.Fatal("failed to initialize engine", "error", err)
	}

	payload, _ := json.Marshal(pingInput{Message: "hello from cmd/worker"})
	if _, err := st.QueueAsync(context.Background(), store.Single("ping", payload, time.Now())); err != nil {
		log.Fatal("failed to queue seed job", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Start(ctx)
	<-ctx.Done()
	eng.Stop()

	if err := eng.Err(); err != nil {
		log.Error("engine stopped with a fatal error", "error", err)
		os.Exit(1)
	}
}
