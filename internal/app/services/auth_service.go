package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/repositories"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/auth"
	"github.com/yigit/engnotes/internal/pkg/validation"
)

// AuthResult is what a successful register or login hands back.
type AuthResult struct {
	User  *models.User
	Token string
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo   repositories.IUserRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.IUserRepository, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// validateCredentials checks username charset/length and password length.
func (s *AuthService) validateCredentials(username, password string) error {
	fields := map[string]string{}
	if len(username) < 3 || len(username) > 50 {
		fields["username"] = "username must be between 3 and 50 characters"
	} else if !validation.ValidUsername(username) {
		fields["username"] = "username may contain letters, digits, '.', '-' and '_'"
	}
	if len(password) < validation.PasswordMinLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", validation.PasswordMinLength)
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("validation failed", fields)
	}
	return nil
}

// CreateUser hashes the password and stores a new account.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, role models.RoleType) (*models.User, error) {
	username = strings.TrimSpace(username)
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]string{
			"role": "role must be one of: admin user",
		})
	}
	if err := s.validateCredentials(username, password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if exists {
		return nil, apperrors.ErrUsernameExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Username: username, Password: hash, Role: role}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("User created")
	return user, nil
}

// Register creates an account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, username, password string, role models.RoleType) (*AuthResult, error) {
	user, err := s.CreateUser(ctx, username, password, role)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		s.logger.Warn().Str("username", username).Msg("Failed login attempt")
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// EnsureAdmin creates the admin account unless a user with that name exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// TokenLifetime is used for the cookie max-age.
func (s *AuthService) TokenLifetime() int {
	return int(s.jwtService.TokenLifetime().Seconds())
}

// ValidateToken exposes token verification to the middleware.
func (s *AuthService) ValidateToken(token string) (*auth.Claims, error) {
	return s.jwtService.ValidateToken(token)
}
