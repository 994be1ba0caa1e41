package service

import "time"

// Server→client event payloads pushed over the websocket channel.

type PresenceChangedEvent struct {
	Type     string     `json:"type"`
	UserID   int64      `json:"user_id"`
	Username string     `json:"username"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

func newPresenceChanged(userID int64, username string, online bool, lastSeen *time.Time) PresenceChangedEvent {
	return PresenceChangedEvent{
		Type:     "presence-changed",
		UserID:   userID,
		Username: username,
		IsOnline: online,
		LastSeen: lastSeen,
	}
}

type MessageReceivedEvent struct {
	Type    string           `json:"type"`
	Message *MessageResponse `json:"message"`
}

func newMessageReceived(m *MessageResponse) MessageReceivedEvent {
	return MessageReceivedEvent{Type: "message-received", Message: m}
}

// MessageStatusChangedEvent reports a flag promotion on a single message.
// Status is "delivered" or "read". Message is populated only when the full
// record was already resolved on the hot path.
type MessageStatusChangedEvent struct {
	Type      string           `json:"type"`
	MessageID int64            `json:"message_id"`
	Status    string           `json:"status"`
	Message   *MessageResponse `json:"message,omitempty"`
}

func newMessageStatusChanged(id int64, status string, m *MessageResponse) MessageStatusChangedEvent {
	return MessageStatusChangedEvent{Type: "message-status-changed", MessageID: id, Status: status, Message: m}
}

type RecentContactUpdatedEvent struct {
	Type        string `json:"type"`
	Contact     string `json:"contact"`
	LastMessage string `json:"last_message"`
}

func newRecentContactUpdated(contact, lastMessage string) RecentContactUpdatedEvent {
	return RecentContactUpdatedEvent{Type: "recent-contact-updated", Contact: contact, LastMessage: lastMessage}
}
