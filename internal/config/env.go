// Package config provides the env-var convenience loader used only by the
// cmd/worker CLI. The core engine package never reads the environment
// itself — it takes an explicit engine.Config — so this is a façade, not a
// package-level singleton the core depends on.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fenwick-labs/jobengine/internal/logger"
)

// GetEnv reads a string env var, falling back to defaultVal if unset.
func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

// GetEnvAsInt reads an integer env var, falling back to defaultVal if unset
// or unparseable.
func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("environment variable could not be parsed as int, using default", "provided", valStr, "default", defaultVal)
		}
		return defaultVal
	}
	return i
}

// GetEnvAsDuration reads a millisecond integer env var as a time.Duration,
// falling back to defaultVal if unset or unparseable.
func GetEnvAsDuration(key string, defaultVal time.Duration, log *logger.Logger) time.Duration {
	ms := GetEnvAsInt(key, int(defaultVal.Milliseconds()), log)
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}
