package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category is the stable, machine readable class of an upstream failure.
type Category string

const (
	// CategoryConfig means a required secret or setting is missing. The
	// operation must not continue with a default key.
	CategoryConfig Category = "config_error"
	// CategoryUnavailable covers network failures, timeouts, unexpected
	// statuses and undecodable bodies. Safe to retry later; never an
	// authentication verdict.
	CategoryUnavailable Category = "upstream_unavailable"
)

// Error is returned for every failed upstream operation. Authentication
// rejections are not errors; see LoginResult.
type Error struct {
	Category Category
	Op       string // e.g. "tokenservice", "login", "timetable"
	Status   int    // HTTP status when one was received
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

var _ error = (*Error)(nil)

func configError(op, msg string, err error) *Error {
	return &Error{Category: CategoryConfig, Op: op, Message: msg, Err: err}
}

func unavailable(op, msg string, err error) *Error {
	return &Error{Category: CategoryUnavailable, Op: op, Message: msg, Err: err}
}

func unexpectedStatus(op string, status int) *Error {
	return &Error{Category: CategoryUnavailable, Op: op, Status: status, Message: "unexpected status"}
}

// transportError classifies a failed round trip; deadlines and client
// timeouts get their own message but stay in the unavailable category.
func transportError(op string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return unavailable(op, "request timed out", err)
	}
	return unavailable(op, "request failed", err)
}

// CategoryOf returns the category of err, or "" when err is not an *Error.
func CategoryOf(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ""
}
