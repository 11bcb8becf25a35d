package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/regportal/regbridge/internal/cache"
    "github.com/regportal/regbridge/internal/codec"
    "github.com/regportal/regbridge/internal/schedule"
    "github.com/regportal/regbridge/internal/upstream"
)

// TimetableSource is the part of upstream.Client the schedule endpoint uses.
type TimetableSource interface {
    FetchTimetable(ctx context.Context, bearer string, term schedule.Term) ([]codec.Row, error)
    FetchCurrentTerm(ctx context.Context, bearer string) (schedule.Term, error)
}

var _ TimetableSource = (*upstream.Client)(nil)

type ScheduleHandler struct {
    Upstream TimetableSource
    Sessions SessionStore
    Terms    cache.Store // keyed by student code
    TermTTL  time.Duration
    Timeout  time.Duration
    Log      *zap.Logger
}

func NewScheduleHandler(up TimetableSource, s SessionStore, terms cache.Store, termTTL, timeout time.Duration, log *zap.Logger) *ScheduleHandler {
    if log == nil {
        log = zap.NewNop()
    }
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    return &ScheduleHandler{Upstream: up, Sessions: s, Terms: terms, TermTTL: termTTL, Timeout: timeout, Log: log}
}

// Get returns the normalized timetable of the session owner.  acadyear and
// semester select a term explicitly; without them the current term is used.
func (h *ScheduleHandler) Get(c echo.Context) error {
    explicit, term, err := termFromQuery(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    s, ok, err := currentSession(c, h.Sessions)
    if !ok {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
    defer cancel()

    if !explicit {
        term, err = h.currentTerm(ctx, s.Username, s.BearerToken)
        if err != nil {
            return h.upstreamFailure(c, err)
        }
    }

    rows, err := h.Upstream.FetchTimetable(ctx, s.BearerToken, term)
    if err != nil {
        return h.upstreamFailure(c, err)
    }
    return c.JSON(http.StatusOK, schedule.NewResponse(schedule.Normalize(rows), term))
}

// currentTerm resolves the term through the injected cache.  Cache failures
// other than a miss are logged and bypassed.
func (h *ScheduleHandler) currentTerm(ctx context.Context, studentCode, bearer string) (schedule.Term, error) {
    key := "term:" + studentCode
    var term schedule.Term
    if h.Terms != nil {
        err := h.Terms.Get(ctx, key, &term)
        if err == nil && term.Valid() {
            return term, nil
        }
        if err != nil && !errors.Is(err, cache.ErrMiss) {
            h.Log.Warn("term cache read failed", zap.Error(err))
        }
    }

    term, err := h.Upstream.FetchCurrentTerm(ctx, bearer)
    if err != nil {
        return schedule.Term{}, err
    }
    if h.Terms != nil {
        if err := h.Terms.Set(ctx, key, term, h.TermTTL); err != nil {
            h.Log.Warn("term cache write failed", zap.Error(err))
        }
    }
    return term, nil
}

// upstreamFailure maps upstream errors to HTTP.  A 401 from the registration
// system means the stored bearer token has expired there.
func (h *ScheduleHandler) upstreamFailure(c echo.Context, err error) error {
    var ue *upstream.Error
    if errors.As(err, &ue) && ue.Status == http.StatusUnauthorized {
        return sessionExpired(c)
    }
    h.Log.Warn("schedule upstream failure", zap.Error(err))
    return c.JSON(http.StatusBadGateway, echo.Map{
        "error":   string(upstream.CategoryUnavailable),
        "message": "registration system unavailable, try again later",
    })
}

var errTermQuery = errors.New("acadyear and semester must both be positive integers")

// termFromQuery reads acadyear/semester.  Both or neither must be given.
func termFromQuery(c echo.Context) (explicit bool, term schedule.Term, err error) {
    y, s := c.QueryParam("acadyear"), c.QueryParam("semester")
    if y == "" && s == "" {
        return false, term, nil
    }
    year, err1 := strconv.Atoi(y)
    sem, err2 := strconv.Atoi(s)
    term = schedule.Term{Year: year, Semester: sem}
    if err1 != nil || err2 != nil || !term.Valid() {
        return false, schedule.Term{}, errTermQuery
    }
    return true, term, nil
}
