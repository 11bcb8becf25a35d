package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/regportal/regbridge/internal/middleware"
    "github.com/regportal/regbridge/internal/model"
    "github.com/regportal/regbridge/internal/repository"
)

// SessionStore is the part of repository.SessionRepo the handlers use.
type SessionStore interface {
    Create(ctx context.Context, s model.Session) error
    Get(ctx context.Context, id string) (model.Session, error)
    Revoke(ctx context.Context, id string) error
    RevokeAllForUser(ctx context.Context, username string) error
}

var _ SessionStore = (*repository.SessionRepo)(nil)

const dbTimeout = 5 * time.Second

// ctxSession holds the session resolved by RequireSession.
const ctxSession = "portal_session"

// RequireSession rejects revoked, expired or foreign sessions before the
// rest of the chain runs.  Register it ahead of the response cache so a
// cached body is never served to a closed session.
func RequireSession(store SessionStore) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            s, ok, err := loadSession(c, store)
            if !ok {
                return err
            }
            c.Set(ctxSession, s)
            return next(c)
        }
    }
}

// currentSession returns the session RequireSession resolved for this
// request, loading it from store when the route does not use the guard.
// When ok is false the response has already been written and err is the
// result of writing it.
func currentSession(c echo.Context, store SessionStore) (model.Session, bool, error) {
    if s, found := c.Get(ctxSession).(model.Session); found {
        return s, true, nil
    }
    return loadSession(c, store)
}

// loadSession loads the portal session named by the access token and
// checks it belongs to the token's subject.
func loadSession(c echo.Context, store SessionStore) (s model.Session, ok bool, err error) {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    s, err = store.Get(ctx, middleware.SessionID(c))
    switch {
    case errors.Is(err, repository.ErrSessionNotFound), err == nil && s.Username != middleware.UserID(c):
        return s, false, sessionExpired(c)
    case err != nil:
        return s, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
    }
    return s, true, nil
}

func sessionExpired(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session_expired", "message": "please log in again"})
}
