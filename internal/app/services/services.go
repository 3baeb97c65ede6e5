// Package services holds the application's business logic. Every
// hierarchy operation is scoped to the caller's university through an
// Authorizer; deletes detach section documents before rows go away.
package services

import (
	"context"

	"github.com/yigit/attendance/internal/app/models"
)

// Authorizer resolves the caller's university and checks ownership of
// hierarchy nodes. Implemented by auth.AuthorizationService.
type Authorizer interface {
	UniversityOf(ctx context.Context, userID string) (string, error)
	Authorize(ctx context.Context, userID string, scope models.Scope, id string) (string, error)
}

// FileDetacher removes every section document below a node.
type FileDetacher interface {
	DetachAll(ctx context.Context, scope models.Scope, id string) error
}
