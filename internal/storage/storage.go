// Package storage is the upload ledger: a Postgres record of every
// acknowledged upload, fed by the events consumer.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"kennel_media/internal/logging"
	"kennel_media/internal/models"
)

type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

func NewStorage(ctx context.Context, dsn string, log logging.Logger) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(ctx, db, log); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Storage{pool: pool, db: db}, nil
}

func newWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() {
	s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveUpload records up; a second acknowledgement of the same object path
// overwrites the first.
func (s *Storage) SaveUpload(ctx context.Context, up models.Upload) error {
	const op = "storage.SaveUpload"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO object_uploads (id, object_path, owner, visibility, status, acknowledged_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (object_path) DO UPDATE SET
			owner = EXCLUDED.owner,
			visibility = EXCLUDED.visibility,
			status = EXCLUDED.status,
			acknowledged_at = EXCLUDED.acknowledged_at`,
		up.ID, up.ObjectPath, up.Owner, string(up.Visibility), up.Status, up.AcknowledgedAt)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

func (s *Storage) GetUpload(ctx context.Context, objectPath string) (*models.Upload, error) {
	const op = "storage.GetUpload"

	var up models.Upload
	err := s.db.QueryRowContext(ctx,
		`SELECT id, object_path, owner, visibility, status, acknowledged_at
		 FROM object_uploads WHERE object_path = $1`,
		objectPath).Scan(&up.ID, &up.ObjectPath, &up.Owner, &up.Visibility, &up.Status, &up.AcknowledgedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return &up, nil
}

// ListUploads returns the newest uploads with the given status.
func (s *Storage) ListUploads(ctx context.Context, status string, limit int) ([]models.Upload, error) {
	const op = "storage.ListUploads"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, object_path, owner, visibility, status, acknowledged_at
		 FROM object_uploads WHERE status = $1
		 ORDER BY acknowledged_at DESC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		var up models.Upload
		if err := rows.Scan(&up.ID, &up.ObjectPath, &up.Owner, &up.Visibility, &up.Status, &up.AcknowledgedAt); err != nil {
			return nil, fmt.Errorf("%s: %v", op, err)
		}
		out = append(out, up)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	return out, nil
}
