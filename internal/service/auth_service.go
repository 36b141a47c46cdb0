package service

import (
	"context"
	"errors"

	"chat-assistant/backend/internal/models"
	"chat-assistant/backend/internal/repository"
	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	users  repository.UserRepository
	tokens *jwt.Service
	logger *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepository, tokens *jwt.Service, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &AuthService{users: users, tokens: tokens, logger: log}
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := models.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    []string{jwt.RoleUser},
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return &user, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	// bot accounts have no password and never log in
	if user.IsBot() || !models.CheckPasswordHash(req.Password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.GetRoles())
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// CurrentUser loads the account behind an authenticated request
func (s *AuthService) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout revokes the presented token
func (s *AuthService) Logout(ctx context.Context, claims *jwt.JWTClaims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}
