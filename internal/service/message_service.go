package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"dchat/internal/domain"
)

const maxContentRunes = 5000

// MessageService owns the message lifecycle: the delivery pipeline for new
// messages, the reconnect backlog scan, the receipt tracker, the unread
// aggregator, and the recent-contacts index. All flag writes go through the
// repository's conditional promotions, never read-modify-write.
type MessageService struct {
	users    domain.UserRepository
	messages domain.MessageRepository
	notifier Notifier

	now func() time.Time
}

func NewMessageService(users domain.UserRepository, messages domain.MessageRepository, notifier Notifier) *MessageService {
	return &MessageService{
		users:    users,
		messages: messages,
		notifier: notifier,
		now:      time.Now,
	}
}

// UserRef is the resolved participant embedded in message responses.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// MessageResponse is the fully-resolved message shape pushed to clients and
// returned from the REST surface.
type MessageResponse struct {
	ID          int64      `json:"id"`
	Sender      UserRef    `json:"sender"`
	Receiver    UserRef    `json:"receiver"`
	Content     string     `json:"content"`
	IsDelivered bool       `json:"is_delivered"`
	DeliveredAt *time.Time `json:"delivered_at"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(m *domain.Message, sender, receiver *domain.User) *MessageResponse {
	return &MessageResponse{
		ID:          m.ID,
		Sender:      UserRef{ID: sender.ID, Username: sender.Username},
		Receiver:    UserRef{ID: receiver.ID, Username: receiver.Username},
		Content:     m.Content,
		IsDelivered: m.Delivered,
		DeliveredAt: m.DeliveredAt,
		IsRead:      m.Read,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
	}
}

// Send is the delivery pipeline. The initial delivered flag is decided by
// the receiver's presence at submission time; the persisted record is then
// fanned out to both participants' sessions. Fan-out failures never fail
// the send: the persisted row is authoritative.
func (s *MessageService) Send(ctx context.Context, senderUsername, receiverUsername, content string) (*MessageResponse, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrInvalidInput)
	}
	if len([]rune(content)) > maxContentRunes {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", domain.ErrInvalidInput, maxContentRunes)
	}

	sender, err := s.users.GetByUsername(ctx, senderUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve sender: %w", err)
	}
	receiver, err := s.users.GetByUsername(ctx, receiverUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve receiver: %w", err)
	}
	if sender.ID == receiver.ID {
		return nil, domain.ErrInvalidRecipient
	}

	now := s.now().UTC()
	msg := &domain.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Content:    content,
		CreatedAt:  now,
	}
	if s.notifier.IsOnline(receiver.ID) {
		msg.Delivered = true
		msg.DeliveredAt = &now
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	// Set-semantics append: a no-op when the pair already exists, so
	// concurrent first-contact sends from both sides cannot duplicate.
	if err := s.users.AddRecentContact(ctx, sender.ID, receiver.ID); err != nil {
		return nil, err
	}
	if err := s.users.AddRecentContact(ctx, receiver.ID, sender.ID); err != nil {
		return nil, err
	}

	resp := toResponse(msg, sender, receiver)

	s.notifier.SendToUsers([]int64{sender.ID, receiver.ID}, newMessageReceived(resp))
	s.notifier.SendToUsers([]int64{sender.ID}, newRecentContactUpdated(receiver.Username, content))
	s.notifier.SendToUsers([]int64{receiver.ID}, newRecentContactUpdated(sender.Username, content))
	if msg.Delivered {
		s.notifier.SendToUsers([]int64{sender.ID}, newMessageStatusChanged(msg.ID, "delivered", resp))
	}

	return resp, nil
}

// DeliverBacklog is the reconnect scan: every message still undelivered for
// the user is promoted and its sender notified. The conditional update
// makes the promotion exactly-once, so a sender never sees a duplicate
// confirmation for an already-delivered message.
func (s *MessageService) DeliverBacklog(ctx context.Context, userID int64) error {
	promoted, err := s.messages.MarkDelivered(ctx, userID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("deliver backlog: %w", err)
	}
	for _, d := range promoted {
		s.notifier.SendToUsers([]int64{d.SenderID}, newMessageStatusChanged(d.MessageID, "delivered", nil))
	}
	return nil
}

// MarkSeen is the receipt tracker: all unread messages from the
// counterparty to the viewer are promoted to read and the counterparty's
// sessions are told about each one. Safe to run concurrently for the same
// pair; the conditional clause in MarkRead is the guard.
func (s *MessageService) MarkSeen(ctx context.Context, viewerID, counterpartyID int64) ([]int64, error) {
	ids, err := s.messages.MarkRead(ctx, counterpartyID, viewerID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	for _, id := range ids {
		s.notifier.SendToUsers([]int64{counterpartyID}, newMessageStatusChanged(id, "read", nil))
	}
	return ids, nil
}

// UnreadCounts groups the user's unread messages by sender. Pure read over
// a point-in-time snapshot.
func (s *MessageService) UnreadCounts(ctx context.Context, username string) (map[int64]int, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.messages.UnreadCounts(ctx, user.ID)
}

// History returns both directions of traffic between two users, oldest
// first.
func (s *MessageService) History(ctx context.Context, username, otherUsername string) ([]*MessageResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	other, err := s.users.GetByUsername(ctx, otherUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve counterparty: %w", err)
	}

	msgs, err := s.messages.ListConversation(ctx, user.ID, other.ID)
	if err != nil {
		return nil, err
	}
	return lo.Map(msgs, func(m *domain.Message, _ int) *MessageResponse {
		if m.SenderID == user.ID {
			return toResponse(m, user, other)
		}
		return toResponse(m, other, user)
	}), nil
}

// ChatSummaries returns the user's counterparties with their latest message,
// ordered most-recent-message-time descending. This query-derived ordering
// is the canonical one for chat lists.
func (s *MessageService) ChatSummaries(ctx context.Context, username string) ([]*domain.ChatSummary, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.messages.ListChatSummaries(ctx, user.ID)
}

// RecentContacts returns the incrementally maintained contact set, used to
// seed a contact list. Membership matches ChatSummaries; ordering here is
// insertion order and carries no recency meaning.
func (s *MessageService) RecentContacts(ctx context.Context, username string) ([]string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	contacts, err := s.users.ListRecentContacts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	contacts = lo.Filter(contacts, func(c *domain.User, _ int) bool {
		return c.ID != user.ID
	})
	return lo.Map(contacts, func(c *domain.User, _ int) string {
		return c.Username
	}), nil
}

// LastReadID returns the newest read message from sender to receiver, or 0.
func (s *MessageService) LastReadID(ctx context.Context, senderID, receiverID int64) (int64, error) {
	return s.messages.LastReadID(ctx, senderID, receiverID)
}
