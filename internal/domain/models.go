package domain

import "time"

// User represents a registered identity. Username is immutable after
// creation; the record itself is never deleted.
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email"`
	HashedPassword string     `db:"hashed_password" json:"-"`
	IsVerified     bool       `db:"is_verified" json:"is_verified"`
	ProfilePic     *string    `db:"profile_pic" json:"profile_pic,omitempty"`
	Bio            *string    `db:"bio" json:"bio,omitempty"`
	IsOnline       bool       `db:"is_online" json:"is_online"`
	LastSeen       *time.Time `db:"last_seen" json:"last_seen"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Message is a single direct message. Delivered and Read are monotonic:
// once true they never revert, and Read implies Delivered.
type Message struct {
	ID          int64      `db:"id" json:"id"`
	SenderID    int64      `db:"sender_id" json:"sender_id"`
	ReceiverID  int64      `db:"receiver_id" json:"receiver_id"`
	Content     string     `db:"content" json:"content"`
	Delivered   bool       `db:"is_delivered" json:"is_delivered"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at"`
	Read        bool       `db:"is_read" json:"is_read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// DeliveredMessage identifies a message promoted to delivered by a
// reconnect backlog scan, together with its original sender.
type DeliveredMessage struct {
	MessageID int64
	SenderID  int64
}

// ChatSummary is one row of a user's query-derived chat list: the
// counterparty plus the most recent message exchanged with them.
type ChatSummary struct {
	ContactID     int64     `json:"contact_id"`
	Contact       string    `json:"contact"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}
