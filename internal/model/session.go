package model

import "time"

// Session represents a portal login as stored in the `portal_sessions`
// table. The upstream bearer token is opaque to the portal: it is kept
// server side and replayed on upstream calls, never handed to browsers.
//
// Fields:
//  ID          – random session identifier carried in the access JWT `sid` claim.
//  Username    – upstream login name (student code for students).
//  BearerToken – upstream user bearer token returned by the login endpoint.
//  Profile     – profile decoded from the upstream `tokenuser` JWT.
//  ExpiresAt   – when the portal stops honouring the session.
//  RevokedAt   – set on logout (nil while active).
//  CreatedAt   – creation timestamp.
type Session struct {
    ID          string     // portal_sessions.id
    Username    string     // portal_sessions.username
    BearerToken string     // portal_sessions.bearer_token
    Profile     Profile    // portal_sessions.profile (JSON)
    ExpiresAt   time.Time  // portal_sessions.expires_at
    RevokedAt   *time.Time // portal_sessions.revoked_at (nullable)
    CreatedAt   time.Time  // portal_sessions.created_at
}

// Active reports whether the session can still be used at now.
func (s Session) Active(now time.Time) bool {
    return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
