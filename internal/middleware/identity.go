package middleware

import "github.com/labstack/echo/v4"

// Context key under which the login rate limiter leaves the number of
// attempts still available to the caller.
const CtxRemainingAttempts = "ratelimit_remaining"

// UserID returns the authenticated username, or "anon" when JWTAuth has not
// run for this request.
func UserID(c echo.Context) string {
    if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}

// SessionID returns the portal session id from the access token, or "".
func SessionID(c echo.Context) string {
    s, _ := c.Get(CtxSessionID).(string)
    return s
}

// RemainingAttempts reports what the rate limiter recorded for this request.
// ok is false when no limiter ran (disabled or Redis unavailable).
func RemainingAttempts(c echo.Context) (n int, ok bool) {
    v, ok := c.Get(CtxRemainingAttempts).(int64)
    return int(v), ok
}
