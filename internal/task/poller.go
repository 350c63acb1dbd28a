package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/dataset"
)

// OrphanedMessage is reported for a STARTED job whose heartbeat went stale
const OrphanedMessage = "raised unknown error"

// OutcomeKind is what a poll tells the client
type OutcomeKind int

const (
	OutcomeQueued OutcomeKind = iota + 1
	OutcomeRunning
	OutcomeSucceeded
	OutcomeFailed
	OutcomeOrphaned
)

// Outcome of one poll. Message is set for failures, DataSet for success.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	DataSet *dataset.DataSet
}

// DataSetFinder loads a dataset by id and returns dataset.ErrNotFound when it is gone
type DataSetFinder interface {
	GetDataSet(ctx context.Context, id int64) (*dataset.DataSet, error)
}

// Poller turns status records into outcomes and deletes terminal records on delivery
type Poller struct {
	store      *Store
	datasets   DataSetFinder
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewPoller creates a Poller treating heartbeats older than staleAfter as dead workers
func NewPoller(store *Store, datasets DataSetFinder, staleAfter time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		store:      store,
		datasets:   datasets,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// Poll reports the status of taskID to owner
func (p *Poller) Poll(ctx context.Context, taskID string, owner int64) (*Outcome, error) {
	rec, err := p.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if rec.Owner != owner {
		return nil, ErrTaskNotFound
	}

	switch phase := rec.Phase.(type) {
	case Pending:
		return &Outcome{Kind: OutcomeQueued}, nil

	case Started:
		age := p.now().Sub(phase.HeartbeatAt)
		if age <= p.staleAfter {
			return &Outcome{Kind: OutcomeRunning}, nil
		}

		if err := p.deliver(ctx, taskID); err != nil {
			return nil, err
		}
		p.logger.Warn("Worker heartbeat is stale, task orphaned",
			slog.String("task_id", taskID),
			slog.Int("pid", phase.PID),
			slog.Duration("heartbeat_age", age),
		)
		return &Outcome{Kind: OutcomeOrphaned, Message: OrphanedMessage}, nil

	case Failed:
		if err := p.deliver(ctx, taskID); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeFailed, Message: phase.Message}, nil

	case Succeeded:
		if err := p.deliver(ctx, taskID); err != nil {
			return nil, err
		}

		ds, err := p.datasets.GetDataSet(ctx, phase.DataSetID)
		if err != nil {
			if errors.Is(err, dataset.ErrNotFound) {
				return nil, ErrTaskNotFound
			}
			return nil, fmt.Errorf("failed to load data set %d: %w", phase.DataSetID, err)
		}
		return &Outcome{Kind: OutcomeSucceeded, DataSet: ds}, nil

	default:
		return nil, ErrUnknownPhase
	}
}

// deliver deletes a terminal record; losing the race to a concurrent poll means not found
func (p *Poller) deliver(ctx context.Context, taskID string) error {
	deleted, err := p.store.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}
