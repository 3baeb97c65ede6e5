package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// UserLookup loads staff accounts.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// OwnerResolver finds the university owning a node of the hierarchy.
type OwnerResolver interface {
	UniversityOf(ctx context.Context, scope models.Scope, id string) (string, error)
}

// AuthorizationService scopes every hierarchy operation to the caller's university
type AuthorizationService struct {
	users  UserLookup
	owners OwnerResolver
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(users UserLookup, owners OwnerResolver) *AuthorizationService {
	return &AuthorizationService{users: users, owners: owners}
}

// UniversityOf returns the caller's university id.
// A caller without one gets apperrors.ErrNoUniversity.
func (s *AuthorizationService) UniversityOf(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", apperrors.ErrUnauthorized
		}
		logger.Error().Err(err).Str("userID", userID).Msg("Error getting user in UniversityOf")
		return "", err
	}
	if !user.HasUniversity() {
		return "", apperrors.ErrNoUniversity
	}
	return *user.UniversityID, nil
}

// Authorize checks that the node (scope, id) belongs to the caller's
// university and returns that university's id.
func (s *AuthorizationService) Authorize(ctx context.Context, userID string, scope models.Scope, id string) (string, error) {
	universityID, err := s.UniversityOf(ctx, userID)
	if err != nil {
		return "", err
	}

	owner, err := s.owners.UniversityOf(ctx, scope, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return "", err
		}
		logger.Error().Err(err).Str("scope", string(scope)).Str("id", id).Msg("Error resolving resource owner")
		return "", fmt.Errorf("failed to check %s ownership: %w", scope, err)
	}

	if owner != universityID {
		logger.Warn().
			Str("userID", userID).
			Str("scope", string(scope)).
			Str("id", id).
			Msg("Access to another university's resource denied")
		return "", apperrors.NewForbiddenError(fmt.Sprintf("this %s belongs to another university", scope))
	}
	return universityID, nil
}
