package config

import "time"

// LockConfig controls the per-vendor mutation lock. Timeout is how long a
// request waits for the lock before failing with a retryable error; TTL
// bounds how long a crashed holder can keep it.
type LockConfig struct {
	Timeout time.Duration
	TTL     time.Duration
	Prefix  string
}

// LoadLockConfig reads LOCK_TIMEOUT, LOCK_TTL and LOCK_PREFIX.
func LoadLockConfig() LockConfig {
	cfg := LockConfig{
		Timeout: envDur("LOCK_TIMEOUT", 2*time.Second),
		TTL:     envDur("LOCK_TTL", 10*time.Second),
		Prefix:  envStr("LOCK_PREFIX", "lock"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.TTL < cfg.Timeout {
		cfg.TTL = 5 * cfg.Timeout
	}
	return cfg
}
