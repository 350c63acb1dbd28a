package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
)

// PublicFilter selects a page of the public catalog
type PublicFilter struct {
	Search string
	Sort   domain.SortBy
	Page   domain.Page
}

// publicWhere matches public data sets, optionally by exact title or tag name
func publicWhere(search string) (string, []any) {
	if search == "" {
		return ` WHERE d.is_public = TRUE`, nil
	}
	return ` WHERE d.is_public = TRUE AND (d.title = $1 OR EXISTS (
			SELECT 1 FROM data_set_tag_association a
			JOIN tags t ON t.id = a.tag_id
			WHERE a.data_set_id = d.id AND t.name = $1
		))`, []any{search}
}

func (s *Storage) CountPublicDataSets(ctx context.Context, search string) (int, error) {
	where, args := publicWhere(search)

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM data_sets d`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count public data sets: %w", err)
	}
	return count, nil
}

func (s *Storage) ListPublicDataSets(ctx context.Context, filter PublicFilter) ([]model.PublicDataSet, error) {
	where, args := publicWhere(filter.Search)
	argIdx := len(args) + 1

	query := `
		SELECT d.id, d.title, d.path, d.upload_at, d.content -> 'meta_data' AS meta_data,
			u.display_name, u.contact_uri
		FROM data_sets d
		JOIN users u ON u.id = d.user_id` + where +
		fmt.Sprintf(" ORDER BY %s, d.id LIMIT $%d OFFSET $%d", filter.Sort.OrderBy(), argIdx, argIdx+1)
	args = append(args, filter.Page.Size, filter.Page.Offset())

	dataSets := []model.PublicDataSet{}
	if err := s.db.SelectContext(ctx, &dataSets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list public data sets: %w", err)
	}
	return dataSets, nil
}

func (s *Storage) CountDataSets(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM data_sets`); err != nil {
		return 0, fmt.Errorf("failed to count data sets: %w", err)
	}
	return count, nil
}

// ListAdminDataSets returns every data set newest first
func (s *Storage) ListAdminDataSets(ctx context.Context, page domain.Page) ([]model.AdminDataSet, error) {
	query := `
		SELECT d.id, d.title, d.path, d.is_public, d.upload_at, u.display_name, u.contact_uri
		FROM data_sets d
		JOIN users u ON u.id = d.user_id
		ORDER BY d.upload_at DESC, d.id DESC
		LIMIT $1 OFFSET $2
	`

	dataSets := []model.AdminDataSet{}
	if err := s.db.SelectContext(ctx, &dataSets, query, page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list data sets: %w", err)
	}
	return dataSets, nil
}

// ListExportRows returns every data set with its metadata counters
func (s *Storage) ListExportRows(ctx context.Context) ([]model.ExportRow, error) {
	query := `
		SELECT d.id, d.title, d.path, d.is_public, d.upload_at, u.display_name, u.contact_uri,
			d.meta_data_classes, d.meta_data_properties
		FROM data_sets d
		JOIN users u ON u.id = d.user_id
		ORDER BY d.upload_at DESC, d.id DESC
	`

	rows := []model.ExportRow{}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list data sets for export: %w", err)
	}
	return rows, nil
}
