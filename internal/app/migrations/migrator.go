// Package migrations holds the embedded goose schema migrations.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed *.sql
var FS embed.FS

// gooseRun is a seam for testing goose.RunContext.
var gooseRun = func(ctx context.Context, command string, db *sql.DB, dir string, args ...string) error {
	return goose.RunContext(ctx, command, db, dir, args...)
}

// Migrator applies the embedded migrations through goose.
type Migrator struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewMigrator creates a migrator over an existing *sql.DB.
func NewMigrator(db *sql.DB, logger zerolog.Logger) *Migrator {
	return &Migrator{db: db, logger: logger.With().Str("component", "migrator").Logger()}
}

// NewMigratorFromPool opens a database/sql handle sharing the pgx pool.
// The returned close func releases that handle, not the pool.
func NewMigratorFromPool(pool *pgxpool.Pool, logger zerolog.Logger) (*Migrator, func() error) {
	db := stdlib.OpenDBFromPool(pool)
	return NewMigrator(db, logger), db.Close
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	return m.Run(ctx, "up")
}

// Run executes a goose command: up, down, status, version, reset, redo...
func (m *Migrator) Run(ctx context.Context, command string, args ...string) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(gooseLogger{m.logger})
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	m.logger.Info().Str("command", command).Strs("args", args).Msg("Running migrations")
	if err := gooseRun(ctx, command, m.db, ".", args...); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct{ l zerolog.Logger }

func (g gooseLogger) Printf(format string, v ...interface{}) { g.l.Info().Msgf(format, v...) }
func (g gooseLogger) Fatalf(format string, v ...interface{}) { g.l.Fatal().Msgf(format, v...) }
