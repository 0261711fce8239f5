package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"kennel_media/internal/logging"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationPath = "migrations"

func runMigrations(ctx context.Context, db *sql.DB, log logging.Logger) error {
	const op = "storage.migrations"

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	err := goose.UpContext(ctx, db, migrationPath)
	if err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info(ctx, "no migrations to apply")
			return nil
		}
		return fmt.Errorf("%s: %v", op, err)
	}
	log.Info(ctx, "database migrations applied")
	return nil
}
