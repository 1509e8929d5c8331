package pool

import (
	"runtime"

	"github.com/hashicorp/go-hclog"
)

// DefaultTaskQueueSize is the capacity of the task queue when none is given.
const DefaultTaskQueueSize = 32

// Config holds the settings used to build a Pool.
type Config struct {
	// Workers is the number of long-lived worker goroutines.
	Workers int

	// TaskQueueSize bounds the number of scheduled but not yet started tasks.
	// Schedule blocks while the queue is full.
	TaskQueueSize int

	// Logger receives worker lifecycle and task failure messages.
	Logger hclog.Logger

	// PanicHandler, if set, is called with the worker slot and the recovered
	// value whenever a task panics.
	PanicHandler func(slot int, v any)
}

// Option configures a Pool.
type Option func(*Config)

// WithWorkers sets the number of workers. n must be positive.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithTaskQueueSize sets the task queue capacity. n must be at least 1.
func WithTaskQueueSize(n int) Option {
	return func(c *Config) {
		c.TaskQueueSize = n
	}
}

// WithLogger sets the logger used by the pool.
func WithLogger(l hclog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithPanicHandler installs a hook that runs after a task panic is recovered.
func WithPanicHandler(h func(slot int, v any)) Option {
	return func(c *Config) {
		c.PanicHandler = h
	}
}

// DefaultConfig returns a Config sized to the host's parallelism.
func DefaultConfig() Config {
	return Config{
		Workers:       DefaultWorkers(),
		TaskQueueSize: DefaultTaskQueueSize,
		Logger:        hclog.NewNullLogger(),
	}
}

// DefaultWorkers returns the usable parallelism of the host, or 2 when it
// cannot be determined.
func DefaultWorkers() int {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 2
}

// Validate checks the configuration and returns an error if it is invalid.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errInvalidConfig("workers must be > 0")
	}
	if c.TaskQueueSize < 1 {
		return errInvalidConfig("task queue size must be >= 1")
	}
	return nil
}
