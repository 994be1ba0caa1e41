package service

import (
	"context"
	"time"

	"dchat/internal/domain"
)

// UserService provides the read-mostly user surface.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) ListOthers(ctx context.Context, username string) ([]*domain.User, error) {
	return s.users.ListOthers(ctx, username)
}

// OnlineStatus is the status lookup payload: the persisted presence flag
// plus the last time the user was seen going offline.
type OnlineStatus struct {
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

func (s *UserService) Status(ctx context.Context, username string) (*OnlineStatus, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &OnlineStatus{IsOnline: user.IsOnline, LastSeen: user.LastSeen}, nil
}

// UpdateProfile sets the mutable profile fields (bio, picture).
func (s *UserService) UpdateProfile(ctx context.Context, user *domain.User, bio, profilePic *string) error {
	if bio != nil {
		user.Bio = bio
	}
	if profilePic != nil {
		user.ProfilePic = profilePic
	}
	return s.users.Update(ctx, user)
}
