package userstore

import (
	"database/sql"
	"fmt"
)

// The hub shares this table with the REST user service; CREATE IF NOT
// EXISTS keeps startup idempotent whichever process comes up first.
const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	avatar    TEXT NOT NULL DEFAULT '',
	status    TEXT NOT NULL DEFAULT 'offline',
	last_seen DATETIME
);

CREATE INDEX IF NOT EXISTS idx_users_status ON users(status);
`

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(usersSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}
