package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// UserStore is the account persistence used by authentication.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	EnsureProfile(ctx context.Context, id, email, fullName string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// TokenStore keeps refresh tokens.
type TokenStore interface {
	CreateToken(ctx context.Context, token, userID string, expiresAt time.Time) error
	GetToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID string) error
}

// AuthService defines staff authentication operations
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	EnsureProfile(ctx context.Context, userID, email, fullName string) error
}

type authServiceImpl struct {
	users  UserStore
	tokens TokenStore
	jwt    *auth.JWTService
	ids    idgen.Generator
	now    func() time.Time
	logger zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, tokens TokenStore, jwtService *auth.JWTService, ids idgen.Generator, logger zerolog.Logger) AuthService {
	return &authServiceImpl{
		users:  users,
		tokens: tokens,
		jwt:    jwtService,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email cannot be empty", apperrors.ErrValidationFailed)
	}
	if !validation.Email(email) {
		return "", apperrors.NewCustomError(apperrors.ErrInvalidEmail, "invalid email format")
	}
	return email, nil
}

// Register creates a staff account and signs it in
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validation.Password(req.Password); err != nil {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidPassword, err.Error())
	}
	fullName, err := validation.Name("full name", req.FullName)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	userID, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("error generating user id: %w", err)
	}

	user := &models.User{
		ID:       userID,
		Email:    email,
		FullName: fullName,
		Password: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	if err := s.EnsureProfile(ctx, user.ID, user.Email, user.FullName); err != nil {
		return nil, err
	}

	s.logger.Info().Str("userID", user.ID).Msg("Staff account registered")
	return s.authResponse(ctx, user)
}

// Login verifies credentials and issues a token pair
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", apperrors.ErrValidationFailed)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if user.Password == "" || !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Debug().Str("userID", user.ID).Msg("Password mismatch")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.EnsureProfile(ctx, user.ID, user.Email, user.FullName); err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("userID", user.ID).Msg("Could not record last login")
	}

	return s.authResponse(ctx, user)
}

// RefreshToken rotates a refresh token: the old one is revoked and a new
// pair is issued.
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	stored, err := s.tokens.GetToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("token validation error: %w", err)
	}

	if stored.Revoked {
		// A revoked token being replayed: drop every session of the user.
		s.logger.Warn().Str("userID", stored.UserID).Msg("Revoked refresh token reused")
		if err := s.tokens.RevokeAllUserTokens(ctx, stored.UserID); err != nil {
			s.logger.Error().Err(err).Str("userID", stored.UserID).Msg("Failed to revoke user tokens")
		}
		return nil, apperrors.ErrTokenInvalid
	}
	if stored.ExpiresAt.Before(s.now()) {
		_ = s.tokens.RevokeToken(ctx, refreshToken)
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes one refresh token, or all of the user's when none is given
func (s *authServiceImpl) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken != "" {
		if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	}
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// GetProfile returns the signed-in user
func (s *authServiceImpl) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user information: %w", err)
	}
	profile := dto.FromUser(user)
	return &profile, nil
}

// EnsureProfile makes sure a profile row exists for the account. Safe to
// call on every sign-in.
func (s *authServiceImpl) EnsureProfile(ctx context.Context, userID, email, fullName string) error {
	if err := s.users.EnsureProfile(ctx, userID, email, fullName); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return err
		}
		s.logger.Error().Err(err).Str("userID", userID).Msg("Failed to ensure profile")
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

func (s *authServiceImpl) authResponse(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: *tokens, User: dto.FromUser(user)}, nil
}

func (s *authServiceImpl) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwt.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokens.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
	}, nil
}
