package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

const dataSetColumns = `id, user_id, title, path, content, upload_at, is_public`

// GetDataSet loads a data set by id regardless of owner
func (s *Storage) GetDataSet(ctx context.Context, id int64) (*dataset.DataSet, error) {
	query := `SELECT ` + dataSetColumns + ` FROM data_sets WHERE id = $1`
	return s.getDataSet(ctx, query, id)
}

// GetOwnedDataSet loads a data set only when userID owns it
func (s *Storage) GetOwnedDataSet(ctx context.Context, userID, id int64) (*dataset.DataSet, error) {
	query := `SELECT ` + dataSetColumns + ` FROM data_sets WHERE id = $1 AND user_id = $2`
	return s.getDataSet(ctx, query, id, userID)
}

// GetDataSetByPath loads a data set by its shareable path
func (s *Storage) GetDataSetByPath(ctx context.Context, path string) (*dataset.DataSet, error) {
	query := `SELECT ` + dataSetColumns + ` FROM data_sets WHERE path = $1`
	return s.getDataSet(ctx, query, path)
}

func (s *Storage) getDataSet(ctx context.Context, query string, args ...any) (*dataset.DataSet, error) {
	var ds dataset.DataSet
	if err := s.db.GetContext(ctx, &ds, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dataset.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get data set: %w", err)
	}
	return &ds, nil
}

// ListDataSetsByUser returns the caller's data sets without content
func (s *Storage) ListDataSetsByUser(ctx context.Context, userID int64) ([]dataset.DataSet, error) {
	query := `
		SELECT id, user_id, title, path, upload_at, is_public
		FROM data_sets
		WHERE user_id = $1
		ORDER BY id
	`

	dataSets := []dataset.DataSet{}
	if err := s.db.SelectContext(ctx, &dataSets, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list data sets: %w", err)
	}
	return dataSets, nil
}

// InsertDataSet stores ds and sets its id
func (s *Storage) InsertDataSet(ctx context.Context, ds *dataset.DataSet) error {
	query := `
		INSERT INTO data_sets (user_id, title, path, content, upload_at, is_public)
		VALUES (:user_id, :title, :path, :content, :upload_at, :is_public)
		RETURNING id
	`

	query, args, err := sqlx.Named(query, ds)
	if err != nil {
		return fmt.Errorf("failed to bind data set insert: %w", err)
	}

	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&ds.ID); err != nil {
		return fmt.Errorf("failed to insert data set: %w", err)
	}
	return nil
}

// DeleteDataSet removes a data set; tags associations cascade
func (s *Storage) DeleteDataSet(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM data_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data set: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete data set: %w", err)
	}
	if n == 0 {
		return dataset.ErrNotFound
	}
	return nil
}
