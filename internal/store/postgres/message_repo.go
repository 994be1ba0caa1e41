package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dchat/internal/domain"
)

const messageColumns = `id, sender_id, receiver_id, content, is_delivered, delivered_at, is_read, read_at, created_at`

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content, is_delivered, delivered_at, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)
		RETURNING id
	`, m.SenderID, m.ReceiverID, m.Content, m.Delivered, m.DeliveredAt, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id).Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Content,
		&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListConversation(ctx context.Context, userA, userB int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID int64, at time.Time) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages
		SET is_read = TRUE,
		    read_at = $1,
		    is_delivered = TRUE,
		    delivered_at = COALESCE(delivered_at, $1)
		WHERE sender_id = $2 AND receiver_id = $3 AND is_read = FALSE
		RETURNING id
	`, at, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan promoted id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, receiverID int64, at time.Time) ([]domain.DeliveredMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages
		SET is_delivered = TRUE, delivered_at = $1
		WHERE receiver_id = $2 AND is_delivered = FALSE
		RETURNING id, sender_id
	`, at, receiverID)
	if err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	defer rows.Close()

	var promoted []domain.DeliveredMessage
	for rows.Next() {
		var d domain.DeliveredMessage
		if err := rows.Scan(&d.MessageID, &d.SenderID); err != nil {
			return nil, fmt.Errorf("scan promoted message: %w", err)
		}
		promoted = append(promoted, d)
	}
	return promoted, rows.Err()
}

func (r *MessageRepo) UnreadCounts(ctx context.Context, receiverID int64) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND is_read = FALSE
		GROUP BY sender_id
	`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var senderID int64
		var n int
		if err := rows.Scan(&senderID, &n); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[senderID] = n
	}
	return counts, rows.Err()
}

func (r *MessageRepo) LastReadID(ctx context.Context, senderID, receiverID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM messages
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, senderID, receiverID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("last read message: %w", err)
	}
	return id, nil
}

func (r *MessageRepo) ListChatSummaries(ctx context.Context, userID int64) ([]*domain.ChatSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.contact_id, u.username, m.content, m.created_at
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS contact_id,
			       MAX(id) AS last_id
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			GROUP BY 1
		) c
		JOIN messages m ON m.id = c.last_id
		JOIN users u ON u.id = c.contact_id
		ORDER BY m.created_at DESC, m.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat summaries: %w", err)
	}
	defer rows.Close()

	var res []*domain.ChatSummary
	for rows.Next() {
		s := &domain.ChatSummary{}
		if err := rows.Scan(&s.ContactID, &s.Contact, &s.LastMessage, &s.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan chat summary: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Content,
			&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
