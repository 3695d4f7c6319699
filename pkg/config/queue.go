package config

import "time"

// QueueConfig controls the task queue and its worker pool.
type QueueConfig struct {
	// WorkerCount is the number of concurrent task workers.
	WorkerCount int `yaml:"worker_count"`

	// QueueSize bounds how many tasks may wait for a worker. Submissions
	// beyond the bound are rejected so callers get backpressure instead
	// of unbounded memory growth.
	QueueSize int `yaml:"queue_size"`

	// RunTimeout bounds a single task run end to end. Runs that exceed
	// it are recorded as timed out.
	RunTimeout Duration `yaml:"run_timeout"`

	// GracefulShutdownTimeout bounds how long shutdown waits for
	// in-flight runs to finish before abandoning them.
	GracefulShutdownTimeout Duration `yaml:"graceful_shutdown_timeout"`
}

// DefaultQueueConfig returns the queue settings used when migsy.yaml
// omits the section.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:             2,
		QueueSize:               32,
		RunTimeout:              Duration(10 * time.Minute),
		GracefulShutdownTimeout: Duration(30 * time.Second),
	}
}
