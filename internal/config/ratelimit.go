package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the API
// groups. A bucket holds Capacity tokens and regains RefillTokens every
// RefillInterval; idle buckets expire after TTL.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	// KeyStrategy picks the bucket key parts; anything unrecognised means
	// "ip_user_route".
	KeyStrategy string
	Prefix      string
	Debug       bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands that override capacity and the
// refill cadence.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		cfg.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		cfg.RefillTokens, cfg.RefillInterval = 1, every
	}
	return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// A bucket must outlive a few refills or it resets to full too early.
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}
