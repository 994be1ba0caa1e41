package service

// Notifier is the live-push side of the services: the session registry
// seen through the operations the write paths need. Pushes are best-effort;
// the persisted state stays authoritative.
type Notifier interface {
	IsOnline(userID int64) bool
	SendToUsers(userIDs []int64, payload any)
	BroadcastAll(payload any)
	CloseUser(userID int64)
}
