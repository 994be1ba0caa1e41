package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"dchat/internal/domain"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Writers from the HTTP and socket paths overlap, and the driver
	// returns SQLITE_BUSY immediately on a write-write conflict across
	// pooled connections. A single connection serializes them.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	return db, nil
}

// Migrate runs an idempotent set of CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			is_verified BOOLEAN DEFAULT FALSE,
			profile_pic TEXT DEFAULT NULL,
			bio VARCHAR(150) DEFAULT NULL,
			is_online BOOLEAN DEFAULT FALSE,
			last_seen DATETIME DEFAULT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL,
			receiver_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			is_delivered BOOLEAN DEFAULT 0,
			delivered_at DATETIME DEFAULT NULL,
			is_read BOOLEAN DEFAULT 0,
			read_at DATETIME DEFAULT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (sender_id) REFERENCES users(id),
			FOREIGN KEY (receiver_id) REFERENCES users(id)
		);`,
		// Set semantics for the recent-contacts index: the composite key
		// makes the append a no-op for an existing pair.
		`CREATE TABLE IF NOT EXISTS recent_contacts (
			user_id INTEGER NOT NULL,
			contact_id INTEGER NOT NULL,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, contact_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (contact_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_online ON users(is_online);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages(receiver_id, is_read);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_undelivered ON messages(receiver_id, is_delivered);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_recent_contacts_user ON recent_contacts(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
