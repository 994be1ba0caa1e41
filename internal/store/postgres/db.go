package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dchat/internal/domain"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the dchat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              BIGSERIAL    PRIMARY KEY,
			username        VARCHAR(50)  UNIQUE NOT NULL,
			email           VARCHAR(100) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			is_verified     BOOLEAN      NOT NULL DEFAULT FALSE,
			profile_pic     TEXT,
			bio             VARCHAR(150),
			is_online       BOOLEAN      NOT NULL DEFAULT FALSE,
			last_seen       TIMESTAMPTZ,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id           BIGSERIAL   PRIMARY KEY,
			sender_id    BIGINT      NOT NULL REFERENCES users(id),
			receiver_id  BIGINT      NOT NULL REFERENCES users(id),
			content      TEXT        NOT NULL,
			is_delivered BOOLEAN     NOT NULL DEFAULT FALSE,
			delivered_at TIMESTAMPTZ,
			is_read      BOOLEAN     NOT NULL DEFAULT FALSE,
			read_at      TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS recent_contacts (
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			contact_id BIGINT      NOT NULL REFERENCES users(id),
			added_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, contact_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_online ON users(is_online)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages(receiver_id, is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_undelivered ON messages(receiver_id, is_delivered)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recent_contacts_user ON recent_contacts(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
