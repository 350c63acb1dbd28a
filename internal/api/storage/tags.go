package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DataSetUpdate carries the fields of a PATCH. A nil TagNames leaves the tags alone.
type DataSetUpdate struct {
	Title    string
	IsPublic bool
	TagNames []string
}

// UpdateDataSet writes title and visibility and, when requested, replaces the
// tag set in one transaction. Missing tags are created.
func (s *Storage) UpdateDataSet(ctx context.Context, id int64, update DataSetUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE data_sets SET title = $1, is_public = $2 WHERE id = $3`,
		update.Title, update.IsPublic, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update data set: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to update data set: %w", err)
	} else if n == 0 {
		return dataset.ErrNotFound
	}

	if update.TagNames != nil {
		if err := replaceTags(ctx, tx, id, update.TagNames); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit data set update: %w", err)
	}
	return nil
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, dataSetID int64, names []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM data_set_tag_association WHERE data_set_id = $1`, dataSetID,
	); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	if len(names) == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tags (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		pq.Array(names),
	); err != nil {
		return fmt.Errorf("failed to create tags: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO data_set_tag_association (data_set_id, tag_id)
		SELECT $1::bigint, id FROM tags WHERE name = ANY($2)`,
		dataSetID, pq.Array(names),
	); err != nil {
		return fmt.Errorf("failed to attach tags: %w", err)
	}
	return nil
}

// ListTags returns the tags of one data set ordered by id
func (s *Storage) ListTags(ctx context.Context, dataSetID int64) ([]model.Tag, error) {
	query := `
		SELECT t.id, t.name
		FROM tags t
		JOIN data_set_tag_association a ON a.tag_id = t.id
		WHERE a.data_set_id = $1
		ORDER BY t.id
	`

	tags := []model.Tag{}
	if err := s.db.SelectContext(ctx, &tags, query, dataSetID); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// ListTagsByDataSet returns the tags of several data sets keyed by data set id
func (s *Storage) ListTagsByDataSet(ctx context.Context, dataSetIDs []int64) (map[int64][]model.Tag, error) {
	result := make(map[int64][]model.Tag, len(dataSetIDs))
	if len(dataSetIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT a.data_set_id, t.id, t.name
		FROM tags t
		JOIN data_set_tag_association a ON a.tag_id = t.id
		WHERE a.data_set_id IN (?)
		ORDER BY a.data_set_id, t.id`,
		dataSetIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build tag query: %w", err)
	}

	var rows []model.DataSetTag
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	for _, r := range rows {
		result[r.DataSetID] = append(result[r.DataSetID], model.Tag{ID: r.ID, Name: r.Name})
	}
	return result, nil
}
