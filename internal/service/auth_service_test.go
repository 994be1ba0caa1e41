package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dchat/internal/domain"
	"dchat/internal/security"
	"dchat/internal/service"
)

func TestRegister(t *testing.T) {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	otp := security.NewOTPStore(10 * time.Minute)

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		mockRepo.On("GetByUsername", mock.Anything, "newuser").Return(nil, domain.ErrNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.Email == "new@example.com"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 1
		}).Return(nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "newuser",
			Email:    "new@example.com",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, int64(1), user.ID)
		assert.True(t, user.IsVerified)
		assert.NotEqual(t, "Password1!", user.HashedPassword)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		mockRepo.On("GetByUsername", mock.Anything, "existing").
			Return(&domain.User{ID: 7, Username: "existing"}, nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing",
			Email:    "existing@example.com",
			Password: "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Nil(t, user)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("MissingFields", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		_, err := svc.Register(context.Background(), service.RegisterInput{Username: "nopass"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		mockRepo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4)
	otp := security.NewOTPStore(10 * time.Minute)

	hashed, err := hasher.Hash("Password1!")
	assert.NoError(t, err)
	stored := &domain.User{ID: 3, Username: "alice", HashedPassword: hashed}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "Password1!",
		})
		assert.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, stored, resp.User)

		claims, err := tokenSvc.Parse(resp.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, "alice", claims["sub"])
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Username: "alice",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Nil(t, resp)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc := service.NewAuthService(mockRepo, tokenSvc, hasher, otp, nil)

		mockRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

		resp, err := svc.Login(context.Background(), service.LoginInput{
			Username: "ghost",
			Password: "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Nil(t, resp)
	})
}

func TestVerifyOTP(t *testing.T) {
	otp := security.NewOTPStore(10 * time.Minute)
	svc := service.NewAuthService(new(MockUserRepo), nil, nil, otp, nil)

	code, err := otp.Issue("alice@example.com")
	assert.NoError(t, err)

	assert.False(t, svc.VerifyOTP("alice@example.com", "000000"))
	// The failed attempt consumed the entry.
	assert.False(t, svc.VerifyOTP("alice@example.com", code))

	code, err = otp.Issue("alice@example.com")
	assert.NoError(t, err)
	assert.True(t, svc.VerifyOTP("alice@example.com", code))
	assert.False(t, svc.VerifyOTP("alice@example.com", code))
}
