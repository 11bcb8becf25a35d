package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the statements EnsureSchema applies in order.  Each one must
// be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS portal_sessions (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		username     VARCHAR(64)  NOT NULL,
		bearer_token TEXT         NOT NULL,
		profile      JSON         NULL,
		expires_at   DATETIME     NOT NULL,
		revoked_at   DATETIME     NULL,
		created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_portal_sessions_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables the portal needs when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
