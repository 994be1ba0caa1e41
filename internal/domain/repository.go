package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListOthers(ctx context.Context, username string) ([]*User, error)
	Update(ctx context.Context, u *User) error
	// SetOnlineStatus writes the online flag; when going offline it also
	// stamps last_seen with the given time.
	SetOnlineStatus(ctx context.Context, id int64, online bool, lastSeen time.Time) error
	// AddRecentContact appends contactID to the user's recent-contacts set.
	// It is a no-op when the pair is already present.
	AddRecentContact(ctx context.Context, userID, contactID int64) error
	ListRecentContacts(ctx context.Context, userID int64) ([]*User, error)
}

// MessageRepository defines persistence operations for messages. All flag
// promotions are conditional on the flag being currently unset, so they are
// idempotent under concurrent duplicate calls and never regress a flag.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListConversation returns both directions of traffic between two users,
	// sorted by creation time ascending.
	ListConversation(ctx context.Context, userA, userB int64) ([]*Message, error)
	// MarkRead promotes all unread messages from senderID to receiverID and
	// returns the promoted ids. The promotion also sets delivered, keeping
	// an earlier delivered_at when one exists.
	MarkRead(ctx context.Context, senderID, receiverID int64, at time.Time) ([]int64, error)
	// MarkDelivered promotes all undelivered messages addressed to
	// receiverID and returns each promoted id with its sender.
	MarkDelivered(ctx context.Context, receiverID int64, at time.Time) ([]DeliveredMessage, error)
	// UnreadCounts groups the receiver's unread messages by sender.
	UnreadCounts(ctx context.Context, receiverID int64) (map[int64]int, error)
	// LastReadID returns the id of the newest read message from senderID to
	// receiverID, or 0 when there is none.
	LastReadID(ctx context.Context, senderID, receiverID int64) (int64, error)
	// ListChatSummaries returns, per counterparty of userID, the most recent
	// message exchanged, ordered most-recent-first.
	ListChatSummaries(ctx context.Context, userID int64) ([]*ChatSummary, error)
}
