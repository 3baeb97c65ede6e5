package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/validation"
)

var ids idgen.Generator = idgen.UUIDGenerator{}

var migrateCommands = []string{"up", "down", "status", "version", "reset", "redo"}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version|reset|redo]",
	Short:     "Run the embedded schema migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: migrateCommands,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = strings.ToLower(args[0])
		}
		known := false
		for _, c := range migrateCommands {
			known = known || c == command
		}
		if !known {
			return fmt.Errorf("unknown migrate command %q (want one of %s)", command, strings.Join(migrateCommands, ", "))
		}

		return withEnv(cmd, func(ctx context.Context, env *adminEnv) error {
			if err := env.migrate(ctx, command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", command)
			return nil
		})
	},
}

var (
	userEmail      string
	userName       string
	userPassword   string
	userUniversity string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a staff account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := strings.ToLower(strings.TrimSpace(userEmail))
		if !validation.Email(email) {
			return apperrors.ErrInvalidEmail
		}
		if err := validation.Password(userPassword); err != nil {
			return err
		}
		name, err := validation.Name("name", userName)
		if err != nil {
			return err
		}

		return withEnv(cmd, func(ctx context.Context, env *adminEnv) error {
			hash, err := auth.HashPassword(userPassword)
			if err != nil {
				return err
			}
			id, err := ids.NewID()
			if err != nil {
				return err
			}
			user := &models.User{ID: id, Email: email, FullName: name, Password: hash}
			if err := env.users.Create(ctx, user); err != nil {
				return err
			}
			if userUniversity != "" {
				if err := env.users.SetUniversity(ctx, id, &userUniversity); err != nil {
					return fmt.Errorf("user %s created but university not assigned: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", id, email)
			return nil
		})
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password and sign the user out everywhere",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.Password(userPassword); err != nil {
			return err
		}
		email := strings.ToLower(strings.TrimSpace(userEmail))

		return withEnv(cmd, func(ctx context.Context, env *adminEnv) error {
			user, err := env.users.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(userPassword)
			if err != nil {
				return err
			}
			if err := env.users.UpdatePassword(ctx, user.ID, hash); err != nil {
				return err
			}
			if err := env.tokens.RevokeAllUserTokens(ctx, user.ID); err != nil {
				return fmt.Errorf("password updated but sessions not revoked: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", email)
			return nil
		})
	},
}

var checkStorageCmd = &cobra.Command{
	Use:   "check-storage",
	Short: "Ensure the document buckets exist and are writable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, func(ctx context.Context, env *adminEnv) error {
			blobs, release, err := env.storage(ctx)
			if err != nil {
				return err
			}
			defer release()
			var failed error
			for _, t := range models.FileTypes {
				bucket := t.Bucket()
				if err := probeBucket(ctx, blobs, bucket); err != nil {
					failed = errors.Join(failed, fmt.Errorf("%s: %w", bucket, err))
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s FAIL %v\n", bucket, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s ok\n", bucket)
			}
			return failed
		})
	},
}

var pruneTokensCmd = &cobra.Command{
	Use:   "prune-tokens",
	Short: "Delete expired refresh tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnv(cmd, func(ctx context.Context, env *adminEnv) error {
			n, err := env.tokens.DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired tokens\n", n)
			return nil
		})
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	createUserCmd.Flags().StringVar(&userName, "name", "", "full name")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	createUserCmd.Flags().StringVar(&userUniversity, "university", "", "assign an existing university id")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("name")
	_ = createUserCmd.MarkFlagRequired("password")

	resetPasswordCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	resetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("password")
}
