package handler // package handler contains the HTTP handlers of the portal

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health reports "ok" when every check passes and 503 otherwise.  With no
// checks it only tells load balancers the process is serving.
func Health(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := http.StatusOK
        results := make(map[string]string, len(checks))
        for name, check := range checks {
            if err := check(ctx); err != nil {
                results[name] = err.Error()
                status = http.StatusServiceUnavailable
                continue
            }
            results[name] = "ok"
        }
        state := "ok"
        if status != http.StatusOK {
            state = "degraded"
        }
        return c.JSON(status, echo.Map{"status": state, "checks": results})
    }
}
