package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the login
// endpoint.  Remaining tokens double as the "remaining attempts" count shown
// after a rejected login.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadLoginRateLimitConfig reads LOGIN_RATE_LIMIT_* variables.  The defaults
// allow five attempts per client, refilling one every three minutes.
func LoadLoginRateLimitConfig() RateLimitConfig {
    return normalizeRateLimit(RateLimitConfig{
        Enabled:        envBool("LOGIN_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("LOGIN_RATE_LIMIT_CAPACITY", 5),
        RefillTokens:   envInt("LOGIN_RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("LOGIN_RATE_LIMIT_REFILL_INTERVAL", 3*time.Minute),
        TTL:            envDur("LOGIN_RATE_LIMIT_TTL", 30*time.Minute),
        KeyStrategy:    envStr("LOGIN_RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("LOGIN_RATE_LIMIT_PREFIX", "rl:login"),
        Debug:          envBool("LOGIN_RATE_LIMIT_DEBUG", false),
    })
}

// normalizeRateLimit clamps values the Lua bucket cannot work with and keeps
// idle buckets alive long enough to refill completely.
func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
    return c
}
