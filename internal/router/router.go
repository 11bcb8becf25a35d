package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/regportal/regbridge/internal/handler"
    "github.com/regportal/regbridge/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check) {
    e.GET("/healthz", handler.Health(checks))
}

// RegisterAuth registers the login/logout flow.  loginLimit guards the login
// endpoint only; its remaining budget is reported on rejected logins.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, loginLimit echo.MiddlewareFunc) {
    g := e.Group("/v1/auth")
    g.POST("/login", a.Login, loginLimit)
    g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))

    auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterSchedule registers the timetable endpoint.  The response cache runs
// after JWTAuth, so entries are keyed per user, and after the session check,
// so a logged out token gets 401 instead of a cached timetable.
func RegisterSchedule(e *echo.Echo, s *handler.ScheduleHandler, jwtSecret string, responseCache echo.MiddlewareFunc) {
    g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
    g.GET("/schedule", s.Get, handler.RequireSession(s.Sessions), responseCache)
}
