package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// InsertDataSet stores ds and returns its new id
func (s *Storage) InsertDataSet(ctx context.Context, ds *dataset.DataSet) (int64, error) {
	query := `
		INSERT INTO data_sets (user_id, title, path, content, upload_at, is_public)
		VALUES (:user_id, :title, :path, :content, :upload_at, :is_public)
		RETURNING id
	`

	query, args, err := sqlx.Named(query, ds)
	if err != nil {
		return 0, fmt.Errorf("failed to bind data set insert: %w", err)
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert data set: %w", err)
	}

	s.logger.Info("Data set inserted",
		slog.Int64("data_set_id", id),
		slog.Int64("user_id", ds.UserID),
		slog.String("title", ds.Title),
	)

	return id, nil
}
