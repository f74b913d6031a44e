package repository

import (
	"auction-market/utils"
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrate applies all pending schema migrations for the dialect of db
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch db.DriverName() {
	case driverPostgres:
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	case driverSQLite:
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return fmt.Errorf("migrate: unsupported driver %q", db.DriverName())
	}

	fsys, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("migrate: failed to create provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: failed to apply migrations: %w", err)
	}

	for _, res := range results {
		utils.Info("applied migration", map[string]any{
			"source":   res.Source.Path,
			"duration": res.Duration.String(),
		})
	}
	return nil
}
