package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	appMigrations "github.com/yigit/attendance/internal/app/migrations"
	"github.com/yigit/attendance/internal/app/models"
	appRepos "github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/bootstrap"
	"github.com/yigit/attendance/internal/config"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/filestorage"
	"github.com/yigit/attendance/internal/pkg/logger"
)

// UserAdmin is the part of the user repository the admin commands use.
type UserAdmin interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetUniversity(ctx context.Context, id string, universityID *string) error
}

// TokenAdmin is the part of the token repository the admin commands use.
type TokenAdmin interface {
	RevokeAllUserTokens(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// adminEnv is what a command gets once the database is reachable.
type adminEnv struct {
	users   UserAdmin
	tokens  TokenAdmin
	migrate func(ctx context.Context, command string, args ...string) error
	// storage returns the configured blob store and its release func.
	storage func(ctx context.Context) (filestorage.BlobStore, func(), error)
	close   func()
}

// Seams replaced in tests.
var (
	loadConfig = func() (*config.Config, error) {
		return config.LoadConfig(config.Path())
	}
	connect = connectPostgres
)

var (
	cfg    *config.Config
	lgr    zerolog.Logger
	logLvl string
)

var rootCmd = &cobra.Command{
	Use:   "attendance-admin",
	Short: "Maintenance commands for the attendance service",
	Long: "attendance-admin runs schema migrations, manages staff accounts\n" +
		"and checks the blob storage used for section documents.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := cfg.Logging.Level
		if logLvl != "" {
			level = logLvl
		}
		lgr = logger.Configure(logger.Config{
			Level:  logger.LogLevel(strings.ToLower(level)),
			Pretty: true,
			Output: cmd.ErrOrStderr(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLvl, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(checkStorageCmd)
	rootCmd.AddCommand(pruneTokensCmd)
}

func connectPostgres(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*adminEnv, error) {
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}
	pool := database.Pool
	return &adminEnv{
		users:  appRepos.NewUserRepository(pool),
		tokens: appRepos.NewTokenRepository(pool),
		migrate: func(ctx context.Context, command string, args ...string) error {
			return runMigrations(ctx, pool, lgr, command, args...)
		},
		storage: func(ctx context.Context) (filestorage.BlobStore, func(), error) {
			storage, err := bootstrap.SetupStorage(ctx, cfg, lgr)
			if err != nil {
				return nil, nil, err
			}
			return storage.Blobs, func() { _ = storage.Close() }, nil
		},
		close: pool.Close,
	}, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, lgr zerolog.Logger, command string, args ...string) error {
	migrator, closeDB := appMigrations.NewMigratorFromPool(pool, lgr)
	defer func() { _ = closeDB() }()
	return migrator.Run(ctx, command, args...)
}

// withEnv connects, runs fn and releases the connection.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, env *adminEnv) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := connect(ctx, cfg, lgr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if env.close != nil {
		defer env.close()
	}
	return fn(ctx, env)
}
