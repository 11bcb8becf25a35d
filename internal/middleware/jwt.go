package middleware // middleware holds the echo middleware shared by portal routes

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/regportal/regbridge/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID    = "user_id"
    CtxSessionID = "session_id"
)

// JWTAuth validates a Bearer portal access token and stores its subject
// (the upstream username) and session id in the echo context.  It does not
// load the session; handlers do that so a revoked session is caught.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set(CtxUserID, claims.Subject)
            c.Set(CtxSessionID, claims.SessionID)
            return next(c)
        }
    }
}
