// Package queue defines the login audit payload and its log-file consumer.
package queue

import "time"

// LoginQueue is the durable queue login verdicts are published to.
const LoginQueue = "portal.login"

// LoginEvent records one login verdict.  It never carries the password or
// any upstream token.
type LoginEvent struct {
    Username string    `json:"username"`
    Outcome  string    `json:"outcome"`
    Reason   string    `json:"reason,omitempty"`
    ClientIP string    `json:"client_ip"`
    At       time.Time `json:"at"`
}
