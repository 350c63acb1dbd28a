package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
)

func (s *Storage) GetUserByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	query := `
		SELECT id, firebase_uid, display_name, contact_uri
		FROM users
		WHERE firebase_uid = $1
	`

	var user model.User
	if err := s.db.GetContext(ctx, &user, query, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user and returns domain.ErrAlreadyExists when uid is taken
func (s *Storage) CreateUser(ctx context.Context, uid, displayName string) (*model.User, error) {
	query := `
		INSERT INTO users (firebase_uid, display_name)
		VALUES ($1, $2)
		ON CONFLICT (firebase_uid) DO NOTHING
		RETURNING id
	`

	user := model.User{FirebaseUID: uid, DisplayName: displayName}
	if err := s.db.QueryRowxContext(ctx, query, uid, displayName).Scan(&user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET display_name = :display_name, contact_uri = :contact_uri
		WHERE id = :id
	`

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes the user; data sets and role links cascade
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Storage) GetUserRoles(ctx context.Context, userID int64) ([]int, error) {
	query := `
		SELECT r.role_type
		FROM user_roles r
		JOIN user_role_association a ON a.user_role_id = r.id
		WHERE a.user_id = $1
		ORDER BY r.role_type
	`

	roles := []int{}
	if err := s.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}
