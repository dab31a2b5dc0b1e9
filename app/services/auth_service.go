package services

import (
	"context"
	"errors"
	"strings"

	"github.com/farmdirect/farmdirect/app/models"
	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/pkg/auth"
)

var (
	ErrCredentialsRequired = invalid("Email and password are required")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrPendingVerification = forbidden("Your account is pending verification. Please contact support.")
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// Login checks the password and issues a token pair. Unverified farmers
// are refused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if user.Role == auth.RoleFarmer && !user.IsVerified {
		return nil, ErrPendingVerification
	}

	id := user.ID.Hex()
	access, err := auth.GenerateToken(id, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(id, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Caller loads the full identity behind a token's user id.
func (s *AuthService) Caller(ctx context.Context, userID string) (Caller, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Caller{}, err
	}
	return Caller{ID: user.ID.Hex(), Name: user.Name, Role: user.Role, ProfileImage: user.ProfileImage}, nil
}
