package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Store keeps one JSON status record per task id in Redis.
// Every write resets the key's TTL.
type Store struct {
	rdb    goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a Store writing records with the given TTL
func NewStore(rdb goredis.Cmdable, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// Put writes rec under taskID unconditionally
func (s *Store) Put(ctx context.Context, taskID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, taskID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write task %s: %w", taskID, err)
	}

	s.logger.Debug("Task record written",
		slog.String("task_id", taskID),
		slog.String("state", rec.Phase.State().String()),
	)

	return nil
}

// Refresh overwrites rec only if taskID still exists and reports whether it did
func (s *Store) Refresh(ctx context.Context, taskID string, rec Record) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}

	ok, err := s.rdb.SetXX(ctx, taskID, data, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to refresh task %s: %w", taskID, err)
	}

	return ok, nil
}

// Get returns the record stored under taskID or ErrTaskNotFound
func (s *Store) Get(ctx context.Context, taskID string) (*Record, error) {
	data, err := s.rdb.Get(ctx, taskID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}

	return &rec, nil
}

// Delete removes taskID and reports whether this call removed it
func (s *Store) Delete(ctx context.Context, taskID string) (bool, error) {
	n, err := s.rdb.Del(ctx, taskID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}

	return n == 1, nil
}
