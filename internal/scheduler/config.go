package scheduler

import (
	"time"

	"github.com/smallbiznis/bonos/internal/config"
)

// Config controls the voucher expiry sweep. A zero TTL disables it.
type Config struct {
	TTL      time.Duration
	Interval time.Duration
	LockTTL  time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		LockTTL:  5 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{TTL: cfg.Expiry.TTL, Interval: cfg.Expiry.Interval}.withDefaults()
}

func (c Config) Enabled() bool {
	return c.TTL > 0
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}
