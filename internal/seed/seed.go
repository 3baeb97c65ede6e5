// Package seed creates the data a fresh installation needs to be usable.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/idgen"
)

// UserStore is the part of the user repository the seed needs.
type UserStore interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *appModels.User) error
}

// Admin describes the account created on an empty database.
type Admin struct {
	Email    string
	Password string
	FullName string
}

// CreateDefaultData creates the default admin when no user exists yet.
// Running it again is a no-op.
func CreateDefaultData(ctx context.Context, users UserStore, ids idgen.Generator, admin Admin, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data...")

	count, err := users.Count(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error counting users")
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		lgr.Info().Int64("users", count).Msg("Users already exist, skipping admin creation")
		return nil
	}

	if admin.Email == "" || admin.Password == "" {
		lgr.Warn().Msg("No default admin credentials configured, skipping")
		return nil
	}

	lgr.Info().Str("email", admin.Email).Msg("Creating default admin user...")
	hashedPassword, err := auth.HashPassword(admin.Password)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return err
	}
	id, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("failed to generate admin id: %w", err)
	}

	err = users.Create(ctx, &appModels.User{
		ID:       id,
		Email:    admin.Email,
		FullName: admin.FullName,
		Password: hashedPassword,
	})
	if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		// another instance won the race
		return nil
	}
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}

	lgr.Info().Str("adminID", id).Msg("Default admin user created successfully")
	return nil
}
