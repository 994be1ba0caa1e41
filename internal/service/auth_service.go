package service

import (
	"context"
	"errors"
	"fmt"

	"dchat/internal/domain"
	"dchat/internal/mail"
	"dchat/internal/security"
)

// AuthService handles registration, login, and the one-time-code flow.
// Presence is never touched here: online state belongs to the session
// registry and the presence manager.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
	otp    *security.OTPStore
	mailer *mail.Mailer
}

func NewAuthService(
	users domain.UserRepository,
	tokens *security.TokenService,
	hash *security.PasswordHasher,
	otp *security.OTPStore,
	mailer *mail.Mailer,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
		otp:    otp,
		mailer: mailer,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Bio      *string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       in.Username,
		Email:          in.Email,
		HashedPassword: hashed,
		IsVerified:     true,
		Bio:            in.Bio,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.CreateForUser(user.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// SendOTP issues a fresh one-time code for the address and mails it.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	code, err := s.otp.Issue(email)
	if err != nil {
		return err
	}
	return s.mailer.SendOTP(email, code)
}

// VerifyOTP consumes the code for the address.
func (s *AuthService) VerifyOTP(email, code string) bool {
	return s.otp.Verify(email, code)
}
