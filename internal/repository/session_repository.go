package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/regportal/regbridge/internal/model"
)

// SessionRepo persists portal sessions (table 'portal_sessions').
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.  The upstream bearer token is stored as
// received; it is opaque to the portal.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO portal_sessions (id, username, bearer_token, profile, expires_at) VALUES (?,?,?,?,?)",
		s.ID, s.Username, s.BearerToken, profile, s.ExpiresAt.UTC())
	return err
}

// Get returns an active session.  Missing, expired and revoked sessions all
// yield ErrSessionNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.Session, error) {
	var (
		s         model.Session
		profile   []byte
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, bearer_token, profile, expires_at, revoked_at, created_at FROM portal_sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.Username, &s.BearerToken, &profile, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	if !s.Active(time.Now().UTC()) {
		return model.Session{}, ErrSessionNotFound
	}
	if len(profile) > 0 {
		// A damaged profile column must not lock the user out.
		_ = json.Unmarshal(profile, &s.Profile)
	}
	return s, nil
}

// Revoke marks a session as revoked.  Revoking twice is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE portal_sessions SET revoked_at=UTC_TIMESTAMP() WHERE id=? AND revoked_at IS NULL",
		id)
	return err
}

// RevokeAllForUser revokes every active session of username.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, username string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE portal_sessions SET revoked_at=UTC_TIMESTAMP() WHERE username=? AND revoked_at IS NULL",
		username)
	return err
}
