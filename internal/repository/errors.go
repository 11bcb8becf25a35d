// Package repository persists portal state in MySQL.  Sentinel errors let
// handlers distinguish "not found" from storage failures.
package repository

import "errors"

// ErrSessionNotFound is returned when a session does not exist, has expired
// or was revoked.  Handlers translate it into HTTP 401.
var ErrSessionNotFound = errors.New("session not found")
