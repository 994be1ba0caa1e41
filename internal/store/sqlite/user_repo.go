package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dchat/internal/domain"
)

const userColumns = `id, username, email, hashed_password, is_verified, profile_pic, bio, is_online, last_seen, created_at`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (username, email, hashed_password, is_verified, profile_pic, bio, is_online, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query, u.Username, u.Email, u.HashedPassword, u.IsVerified, u.ProfilePic, u.Bio)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepo) ListOthers(ctx context.Context, username string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username != ? ORDER BY username ASC`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = ?, hashed_password = ?, is_verified = ?, profile_pic = ?, bio = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, u.Email, u.HashedPassword, u.IsVerified, u.ProfilePic, u.Bio, u.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOnlineStatus(ctx context.Context, id int64, online bool, lastSeen time.Time) error {
	var err error
	if online {
		_, err = r.db.ExecContext(ctx, `UPDATE users SET is_online = 1 WHERE id = ?`, id)
	} else {
		_, err = r.db.ExecContext(ctx, `UPDATE users SET is_online = 0, last_seen = ? WHERE id = ?`, lastSeen, id)
	}
	if err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}

func (r *UserRepo) AddRecentContact(ctx context.Context, userID, contactID int64) error {
	query := `INSERT OR IGNORE INTO recent_contacts (user_id, contact_id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, contactID); err != nil {
		return fmt.Errorf("add recent contact: %w", err)
	}
	return nil
}

func (r *UserRepo) ListRecentContacts(ctx context.Context, userID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.hashed_password, u.is_verified, u.profile_pic, u.bio, u.is_online, u.last_seen, u.created_at
		FROM recent_contacts rc
		JOIN users u ON u.id = rc.contact_id
		WHERE rc.user_id = ?
		ORDER BY rc.added_at ASC, rc.contact_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recent contacts: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsVerified,
		&u.ProfilePic, &u.Bio, &u.IsOnline, &u.LastSeen, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsVerified,
			&u.ProfilePic, &u.Bio, &u.IsOnline, &u.LastSeen, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
