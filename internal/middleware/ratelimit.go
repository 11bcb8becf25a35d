package middleware

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/regportal/regbridge/internal/config"
)

// loginBucket spends one token from the bucket at KEYS[1] after crediting
// whole refill intervals since the last credit.
//
//	ARGV: now_ms, capacity, refill, interval_ms, ttl_s
//	returns: {granted (0|1), left, wait_ms}
var loginBucket = redis.NewScript(`
local now, cap, refill, every, ttl =
    tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local left = tonumber(redis.call('HGET', KEYS[1], 'n'))
local since = tonumber(redis.call('HGET', KEYS[1], 'ts'))
if not left or not since then
    left, since = cap, now
end

local steps = math.floor((now - since) / every)
if steps > 0 then
    left = math.min(cap, left + steps * refill)
    since = since + steps * every
end

local granted, wait = 0, 0
if left >= 1 then
    granted, left = 1, left - 1
else
    wait = every - (now - since)
    if wait < 0 then wait = 0 end
end

redis.call('HSET', KEYS[1], 'n', left, 'ts', since)
redis.call('EXPIRE', KEYS[1], ttl)
return {granted, left, wait}
`)

// bucketVerdict is the decoded script reply.
type bucketVerdict struct {
    granted bool
    left    int64
    wait    time.Duration
}

func parseVerdict(v any) (bucketVerdict, bool) {
    arr, ok := v.([]any)
    if !ok || len(arr) != 3 {
        return bucketVerdict{}, false
    }
    n := make([]int64, 3)
    for i, x := range arr {
        switch t := x.(type) {
        case int64:
            n[i] = t
        case string:
            p, err := strconv.ParseInt(t, 10, 64)
            if err != nil {
                return bucketVerdict{}, false
            }
            n[i] = p
        default:
            return bucketVerdict{}, false
        }
    }
    return bucketVerdict{granted: n[0] == 1, left: n[1], wait: time.Duration(n[2]) * time.Millisecond}, true
}

// NewTokenBucket limits login attempts per client with a Redis token bucket.
// Allowed requests carry the tokens left under CtxRemainingAttempts so a
// rejected login can report them.  When Redis misbehaves the request passes
// through unlimited.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("login-limit")

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            reply, err := loginBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL.Seconds()),
            ).Result()
            if err != nil {
                log.Warn("redis unavailable, not limiting", zap.Error(err))
                return next(c)
            }
            v, ok := parseVerdict(reply)
            if !ok {
                log.Warn("unexpected bucket reply", zap.Any("reply", reply))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.left, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }

            if !v.granted {
                retry := int((v.wait + time.Second - 1) / time.Second)
                h.Set("Retry-After", strconv.Itoa(retry))
                if cfg.Debug {
                    log.Info("login throttled", zap.String("key", key), zap.Duration("wait", v.wait))
                }
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":              "too_many_requests",
                    "message":            "too many login attempts, try again later",
                    "retry_after":        retry,
                    "remaining_attempts": 0,
                })
            }

            c.Set(CtxRemainingAttempts, v.left)
            return next(c)
        }
    }
}

// rateKey builds "<prefix>:ip:<ip>[:route:<METHOD path>]".  Login happens
// before authentication, so only client and route are available.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    var b strings.Builder
    b.WriteString(cfg.Prefix)
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        b.WriteString(":ip:" + ip)
    case "route":
        b.WriteString(":route:" + c.Request().Method + " " + c.Path())
    default: // ip_route
        b.WriteString(":ip:" + ip + ":route:" + c.Request().Method + " " + c.Path())
    }
    return b.String()
}
