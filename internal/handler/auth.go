package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/regportal/regbridge/internal/config"
    "github.com/regportal/regbridge/internal/middleware"
    "github.com/regportal/regbridge/internal/model"
    "github.com/regportal/regbridge/internal/queue"
    "github.com/regportal/regbridge/internal/upstream"
    "github.com/regportal/regbridge/internal/utils"
)

// Authenticator runs one upstream login attempt.
type Authenticator interface {
    Login(ctx context.Context, creds upstream.Credentials) (upstream.LoginResult, error)
}

// LoginEventPublisher receives one event per login verdict.
type LoginEventPublisher interface {
    PublishLogin(ctx context.Context, ev queue.LoginEvent) error
}

// Outcome recorded for logins that never reached a verdict.
const outcomeUpstreamError = "upstream_error"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg      config.Config
    Upstream Authenticator
    Sessions SessionStore
    Events   LoginEventPublisher // optional
    Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, up Authenticator, s SessionStore, ev LoginEventPublisher, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Cfg: cfg, Upstream: up, Sessions: s, Events: ev, Log: log}
}

// ----- DTOs -----

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type loginResp struct {
    Access  tokenPart     `json:"access"`
    Profile model.Profile `json:"profile"`
    Image   string        `json:"image,omitempty"`
}

type rejectResp struct {
    Error             string `json:"error"`
    Reason            string `json:"reason"`
    Message           string `json:"message"`
    RemainingAttempts *int   `json:"remaining_attempts"`
}

// Login verifies credentials against the registration system and opens a
// portal session holding the upstream bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    ev := queue.LoginEvent{Username: req.Username, ClientIP: c.RealIP(), At: time.Now().UTC()}

    // two sequential round trips: service token, then login
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*h.upstreamTimeout())
    defer cancel()

    res, err := h.Upstream.Login(ctx, upstream.Credentials{
        Username: req.Username,
        Password: req.Password,
        ClientIP: c.RealIP(),
    })
    if err != nil {
        ev.Outcome, ev.Reason = outcomeUpstreamError, string(upstream.CategoryOf(err))
        h.publish(ev)
        return h.upstreamFailure(c, err)
    }

    ev.Outcome = string(res.Outcome)
    if res.Outcome != upstream.OutcomeSuccess || res.Session == nil {
        rej := res.Rejection
        if rej == nil {
            rej = &upstream.Rejection{Reason: upstream.ReasonInvalidCredentials, Message: "invalid username or password"}
        }
        ev.Reason = string(rej.Reason)
        h.publish(ev)

        out := rejectResp{Error: "auth_failed", Reason: string(rej.Reason), Message: rej.Message}
        if n, ok := middleware.RemainingAttempts(c); ok {
            out.RemainingAttempts = &n
        }
        return c.JSON(http.StatusUnauthorized, out)
    }
    h.publish(ev)

    now := time.Now().UTC()
    sess := model.Session{
        ID:          uuid.NewString(),
        Username:    req.Username,
        BearerToken: res.Session.BearerToken,
        Profile:     res.Session.Profile,
        ExpiresAt:   now.Add(h.sessionTTL()),
        CreatedAt:   now,
    }
    dbCtx, dbCancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer dbCancel()
    if err := h.Sessions.Create(dbCtx, sess); err != nil {
        h.Log.Error("create session failed", zap.String("username", req.Username), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
    }

    ttl := time.Duration(h.Cfg.AccessTTLMin) * time.Minute
    if ttl <= 0 || ttl > h.sessionTTL() {
        ttl = h.sessionTTL()
    }
    at, err := utils.NewAccessToken(h.Cfg.JWTSecret, sess.Username, sess.ID, ttl)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }

    return c.JSON(http.StatusOK, loginResp{
        Access:  tokenPart{Token: at.Token, Expires: at.Exp},
        Profile: sess.Profile.Public(),
        Image:   res.Session.Image,
    })
}

// Me returns the profile captured at login (protected).
func (h *AuthHandler) Me(c echo.Context) error {
    s, ok, err := currentSession(c, h.Sessions)
    if !ok {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "username":     s.Username,
        "display_name": s.Profile.DisplayName(),
        "profile":      s.Profile.Public(),
        "expires_at":   s.ExpiresAt,
    })
}

// Logout revokes the current portal session (protected), or every session of
// the user with ?all=true.  Revoking an already closed session still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    var err error
    if all, _ := strconv.ParseBool(c.QueryParam("all")); all {
        err = h.Sessions.RevokeAllForUser(ctx, middleware.UserID(c))
    } else {
        err = h.Sessions.Revoke(ctx, middleware.SessionID(c))
    }
    if err != nil {
        h.Log.Error("revoke session failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to logout"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) upstreamTimeout() time.Duration {
    if h.Cfg.UpstreamTimeout > 0 {
        return h.Cfg.UpstreamTimeout
    }
    return 5 * time.Second
}

func (h *AuthHandler) sessionTTL() time.Duration {
    if h.Cfg.SessionTTL > 0 {
        return h.Cfg.SessionTTL
    }
    return 12 * time.Hour
}

// publish sends ev without holding up the response.
func (h *AuthHandler) publish(ev queue.LoginEvent) {
    if h.Events == nil {
        return
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        if err := h.Events.PublishLogin(ctx, ev); err != nil {
            h.Log.Debug("login event dropped", zap.Error(err))
        }
    }()
}

// upstreamFailure maps an *upstream.Error to HTTP.  Config errors are ours
// (500); everything else is the registration system being unavailable (502).
func (h *AuthHandler) upstreamFailure(c echo.Context, err error) error {
    if upstream.CategoryOf(err) == upstream.CategoryConfig {
        h.Log.Error("login misconfigured", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{
            "error":   string(upstream.CategoryConfig),
            "message": "login is not configured",
        })
    }
    h.Log.Warn("login upstream failure", zap.Error(err))
    return c.JSON(http.StatusBadGateway, echo.Map{
        "error":   string(upstream.CategoryUnavailable),
        "message": "registration system unavailable, try again later",
    })
}
