package config

import "time"

// HistoryConfig controls run-history persistence.
type HistoryConfig struct {
	// Driver selects the database backend: sqlite or postgres.
	Driver HistoryDriver `yaml:"driver"`

	// DSN is the database connection string. For sqlite this is a file
	// path or file: URI; for postgres a postgres:// URL. Secrets can be
	// injected with {{.VAR}} environment expansion.
	DSN string `yaml:"dsn"`

	// Retention controls automatic deletion of old finished runs.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls the background sweep that deletes finished
// runs past their maximum age. Runs still queued or executing are never
// deleted regardless of age.
type RetentionConfig struct {
	// MaxAge is how long finished runs are kept. An explicit zero
	// disables the sweep; a pointer keeps that distinguishable from an
	// omitted field, which keeps the default.
	MaxAge *Duration `yaml:"max_age"`

	// SweepInterval is how often expired runs are deleted.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// MaxAgeOrZero returns the configured retention age, or zero when the
// field was never set.
func (c RetentionConfig) MaxAgeOrZero() Duration {
	if c.MaxAge == nil {
		return 0
	}
	return *c.MaxAge
}

// DefaultHistoryConfig returns the history settings used when
// migsy.yaml omits the section.
func DefaultHistoryConfig() HistoryConfig {
	maxAge := Duration(30 * 24 * time.Hour)
	return HistoryConfig{
		Driver: HistoryDriverSQLite,
		DSN:    "file:migsy-history.db",
		Retention: RetentionConfig{
			MaxAge:        &maxAge,
			SweepInterval: Duration(time.Hour),
		},
	}
}
