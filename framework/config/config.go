// Package config loads the eventbus ambient configuration from the
// process environment using struct tags, the same caarlos0/env-based
// convention used throughout the rest of this module's dependency
// stack. Loading a .env file first is opt-in and left to callers (via
// LoadDotenv), since a library has no business reading files the way an
// application's main package does.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DelayedConfig mirrors eventbus.DelayedConfig but is loadable from the
// environment; callers translate it with ToEventbusDelayedConfig.
type DelayedConfig struct {
	Enabled          bool   `env:"EVENTBUS_DELAYED_ENABLED" envDefault:"false"`
	CoreWorkers      int    `env:"EVENTBUS_DELAYED_CORE_WORKERS" envDefault:"2"`
	ThreadNamePrefix string `env:"EVENTBUS_DELAYED_THREAD_NAME_PREFIX" envDefault:"eventbus-delayed-"`
}

// Config is the complete set of environment-tunable knobs for an
// application wiring up one or more buses.
type Config struct {
	Identifier             string `env:"EVENTBUS_IDENTIFIER" envDefault:"default"`
	AsyncEnabled           bool   `env:"EVENTBUS_ASYNC_ENABLED" envDefault:"false"`
	AsyncWorkers           int    `env:"EVENTBUS_ASYNC_WORKERS" envDefault:"10"`
	MaxSubscribersPerEvent int    `env:"EVENTBUS_MAX_SUBSCRIBERS_PER_EVENT" envDefault:"1000"`
	MetricsEnabled         bool   `env:"EVENTBUS_METRICS_ENABLED" envDefault:"false"`
	TracingEnabled         bool   `env:"EVENTBUS_TRACING_ENABLED" envDefault:"false"`
	Delayed                DelayedConfig
}

// Load parses Config from the current environment, applying envDefault
// tags for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load, panicking on error. Intended for process startup,
// not for use deep inside library code.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotenv loads key=value pairs from path into the process
// environment before Load or MustLoad is called, ignoring a missing
// file. It is a thin wrapper over godotenv intended for local
// development and demos; production deployments should set real
// environment variables instead.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
