package service

import (
	"context"
	"fmt"
	"time"

	"dchat/internal/domain"
)

// PresenceService derives a user's online state from session-registry
// transitions and from the soft away/back signals, persists it, and
// broadcasts every change to all connected sessions. Presence is globally
// visible, not scoped to conversation participants.
type PresenceService struct {
	users    domain.UserRepository
	notifier Notifier

	now func() time.Time
}

func NewPresenceService(users domain.UserRepository, notifier Notifier) *PresenceService {
	return &PresenceService{
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// HandleConnect runs after a session is registered. Only the user's first
// session flips presence; additional devices/tabs are silent.
func (s *PresenceService) HandleConnect(ctx context.Context, user *domain.User, first bool) error {
	if !first {
		return nil
	}
	return s.setOnline(ctx, user)
}

// HandleDisconnect runs after a session is unregistered. Only the last
// session flips presence.
func (s *PresenceService) HandleDisconnect(ctx context.Context, user *domain.User, last bool) error {
	if !last {
		return nil
	}
	return s.setOffline(ctx, user, s.now().UTC())
}

// SetAway accepts a client's soft offline signal. The connection stays
// registered; no reconciliation against registry state is attempted, so an
// away client that silently drops stays away until its close event fires.
func (s *PresenceService) SetAway(ctx context.Context, user *domain.User, lastSeen time.Time) error {
	if lastSeen.IsZero() {
		lastSeen = s.now().UTC()
	}
	return s.setOffline(ctx, user, lastSeen)
}

// SetBack accepts a client's soft online signal.
func (s *PresenceService) SetBack(ctx context.Context, user *domain.User) error {
	return s.setOnline(ctx, user)
}

// Logout force-closes every session of the user. When sessions exist, the
// last close event drives the single offline transition; when none do, the
// flag is written directly so a REST logout from a disconnected client
// still lands.
func (s *PresenceService) Logout(ctx context.Context, user *domain.User) error {
	if s.notifier.IsOnline(user.ID) {
		s.notifier.CloseUser(user.ID)
		return nil
	}
	return s.setOffline(ctx, user, s.now().UTC())
}

func (s *PresenceService) setOnline(ctx context.Context, user *domain.User) error {
	if err := s.users.SetOnlineStatus(ctx, user.ID, true, time.Time{}); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	// The struct was loaded at auth time; its last_seen may predate a soft
	// away. An online user has no last_seen to report.
	s.notifier.BroadcastAll(newPresenceChanged(user.ID, user.Username, true, nil))
	return nil
}

func (s *PresenceService) setOffline(ctx context.Context, user *domain.User, lastSeen time.Time) error {
	if err := s.users.SetOnlineStatus(ctx, user.ID, false, lastSeen); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	s.notifier.BroadcastAll(newPresenceChanged(user.ID, user.Username, false, &lastSeen))
	return nil
}
