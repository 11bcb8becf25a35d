package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/regportal/regbridge/internal/config"
)

// cachedResponse is what a schedule response is stored as in Redis.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// recorder passes the response through while keeping a copy of up to max
// bytes of body.
type recorder struct {
    http.ResponseWriter
    status   int
    body     bytes.Buffer
    max      int
    overflow bool
}

func (r *recorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
    if !r.overflow {
        if r.max > 0 && r.body.Len()+len(p) > r.max {
            r.overflow = true
            r.body.Reset()
        } else {
            r.body.Write(p)
        }
    }
    return r.ResponseWriter.Write(p)
}

// responseKey identifies a cached response.  Timetables are private, so
// only the explicit "route_query" strategy leaves the user out.
func responseKey(cfg config.CacheConfig, c echo.Context) string {
    q := c.Request().URL.Query().Encode() // sorted, so ?a=1&b=2 == ?b=2&a=1
    var id string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route_query":
        id = c.Path() + "?" + q
    case "user_route":
        id = UserID(c) + "|" + c.Path()
    default: // user_route_query
        id = UserID(c) + "|" + c.Path() + "?" + q
    }
    sum := sha256.Sum256([]byte(id))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

// NewResponseCache serves repeated schedule requests from Redis for cfg.TTL.
// Register it after JWTAuth so keys carry the user, and after the session
// check since a hit skips the handler.  Only complete 200 responses are
// stored; anything else is recomputed next time.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("response-cache")
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            key := responseKey(cfg, c)

            if hit, ok := lookup(c.Request().Context(), rdb, key); ok {
                h := c.Response().Header()
                for k, vs := range hit.Header {
                    if k != echo.HeaderContentLength {
                        h[k] = vs
                    }
                }
                h.Set("X-Cache", "HIT")
                return c.Blob(hit.Status, h.Get(echo.HeaderContentType), hit.Body)
            }

            rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil || rec.status != http.StatusOK || rec.overflow {
                return err
            }

            header := c.Response().Header().Clone()
            header.Del("X-Cache")
            raw, err := json.Marshal(cachedResponse{Status: rec.status, Header: header, Body: rec.body.Bytes()})
            if err != nil {
                return nil
            }
            // the request context may already be cancelled once the body is out
            if err := rdb.Set(context.WithoutCancel(c.Request().Context()), key, raw, ttl).Err(); err != nil {
                log.Warn("store failed", zap.Error(err))
            }
            return nil
        }
    }
}

func lookup(ctx context.Context, rdb *redis.Client, key string) (cachedResponse, bool) {
    raw, err := rdb.Get(ctx, key).Bytes()
    if err != nil {
        return cachedResponse{}, false
    }
    var cr cachedResponse
    if json.Unmarshal(raw, &cr) != nil || cr.Status == 0 {
        return cachedResponse{}, false
    }
    return cr, true
}
