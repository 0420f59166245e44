package scheduler

import "time"

// Config controls the janitor schedule.
type Config struct {
	// CacheSweepSpec is a robfig/cron spec with an optional seconds field.
	CacheSweepSpec string
	JobTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		CacheSweepSpec: "@every 1m",
		JobTimeout:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.CacheSweepSpec == "" {
		c.CacheSweepSpec = defaults.CacheSweepSpec
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
