package config

import "time"

// RateLimitConfig sizes the Redis token bucket in front of /v1. A bucket
// holds Capacity tokens and gains RefillTokens every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	// TTL is how long an idle bucket is kept in Redis.
	TTL time.Duration
	// KeyStrategy picks what a bucket is keyed on: ip, user, route, or a
	// pair such as ip_user. Anything else keys on all three.
	KeyStrategy string
	Prefix      string
	// Debug exposes the bucket key in a response header and logs refusals.
	Debug bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables. RATE_LIMIT_BURST
// overrides the capacity and RATE_LIMIT_REFILL_EVERY sets a refill of one
// token per period.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		c.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens, c.RefillInterval = 1, every
	}
	return c.normalize()
}

// normalize keeps the refill interval positive and lets a bucket live for
// at least five refills.
func (c RateLimitConfig) normalize() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}
