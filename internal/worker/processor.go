package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/cuongbtq/dataset-hub/internal/worker/domain"
)

const (
	statusWriteTimeout = 10 * time.Second
	saveFailedMessage  = "failed to save data set"
	timeoutMessage     = "conversion timed out"
)

// StatusStore is the part of task.Store the worker writes through
type StatusStore interface {
	Put(ctx context.Context, taskID string, rec task.Record) error
	Refresh(ctx context.Context, taskID string, rec task.Record) (bool, error)
}

// Converter turns a job's input files into dataset JSON
type Converter interface {
	Convert(ctx context.Context, job task.Job) ([]byte, error)
}

// DataSetStore persists generated datasets
type DataSetStore interface {
	InsertDataSet(ctx context.Context, ds *dataset.DataSet) (int64, error)
}

// ProcessorConfig holds the processor's collaborators and timing
type ProcessorConfig struct {
	Logger            *slog.Logger
	Store             StatusStore
	Converter         Converter
	DataSets          DataSetStore
	HeartbeatInterval time.Duration
	JobTimeout        time.Duration
}

// Processor runs one generation job and advances its status record
type Processor struct {
	logger            *slog.Logger
	store             StatusStore
	converter         Converter
	datasets          DataSetStore
	heartbeatInterval time.Duration
	jobTimeout        time.Duration
	pid               int
	now               func() time.Time
}

// NewProcessor creates a Processor recording the current process id
func NewProcessor(cfg *ProcessorConfig) *Processor {
	return &Processor{
		logger:            cfg.Logger,
		store:             cfg.Store,
		converter:         cfg.Converter,
		datasets:          cfg.DataSets,
		heartbeatInterval: cfg.HeartbeatInterval,
		jobTimeout:        cfg.JobTimeout,
		pid:               os.Getpid(),
		now:               time.Now,
	}
}

// Generate runs job to a terminal phase. Converter, validation and insert
// failures become a FAILURE record; only status store errors are returned.
// A record reaped as orphaned while the job ran is not recreated.
// The input files are removed on every path.
func (p *Processor) Generate(ctx context.Context, job task.Job) error {
	defer task.RemoveInputs(p.logger, job)

	p.logger.Info("Processing job",
		slog.String("task_id", job.TaskID),
		slog.Int64("owner", job.Owner),
		slog.Int("pid", p.pid),
	)

	if err := p.write(ctx, job, task.Started{PID: p.pid, HeartbeatAt: p.now()}); err != nil {
		return fmt.Errorf("failed to mark task started: %w", err)
	}

	hb := p.startHeartbeat(ctx, job)
	phase := p.execute(ctx, job)
	hb.stop()

	recorded, err := p.finish(ctx, job, phase)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", phase.State(), err)
	}
	if !recorded {
		p.logger.Warn("Task record was reaped, result dropped",
			slog.String("task_id", job.TaskID),
			slog.String("state", phase.State().String()),
		)
		return nil
	}

	p.logger.Info("Job finished",
		slog.String("task_id", job.TaskID),
		slog.String("state", phase.State().String()),
	)

	return nil
}

// execute converts, validates and stores the dataset, returning the terminal phase
func (p *Processor) execute(ctx context.Context, job task.Job) task.Phase {
	convCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		convCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	content, err := p.converter.Convert(convCtx, job)
	if err != nil {
		p.logger.Error("Job execution failed",
			slog.String("task_id", job.TaskID),
			slog.Any("error", err),
		)
		if errors.Is(convCtx.Err(), context.DeadlineExceeded) {
			return task.Failed{Message: timeoutMessage}
		}
		return task.Failed{Message: failureMessage(err)}
	}

	ds, err := dataset.New(job.Owner, job.Title, content, p.now())
	if err != nil {
		p.logger.Warn("Converter output rejected",
			slog.String("task_id", job.TaskID),
			slog.Any("error", err),
		)
		return task.Failed{Message: failureMessage(err)}
	}

	id, err := p.datasets.InsertDataSet(ctx, ds)
	if err != nil {
		p.logger.Error("Failed to save data set",
			slog.String("task_id", job.TaskID),
			slog.Any("error", err),
		)
		return task.Failed{Message: saveFailedMessage}
	}

	return task.Succeeded{DataSetID: id}
}

// write is not cut short by cancellation of ctx
func (p *Processor) write(ctx context.Context, job task.Job, phase task.Phase) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	return p.store.Put(ctx, job.TaskID, task.Record{Owner: job.Owner, Phase: phase})
}

// finish stores the terminal phase only over an existing record
func (p *Processor) finish(ctx context.Context, job task.Job, phase task.Phase) (bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	return p.store.Refresh(ctx, job.TaskID, task.Record{Owner: job.Owner, Phase: phase})
}

func failureMessage(err error) string {
	var convErr *domain.ConversionError
	if errors.As(err, &convErr) {
		return convErr.Message
	}
	var verr *dataset.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

type heartbeat struct {
	done    chan struct{}
	stopped chan struct{}
}

// stop ends the heartbeat and waits for an in-flight refresh to finish
func (h *heartbeat) stop() {
	close(h.done)
	<-h.stopped
}

// startHeartbeat rewrites STARTED with a fresh timestamp every interval
// for as long as the record exists
func (p *Processor) startHeartbeat(ctx context.Context, job task.Job) *heartbeat {
	hb := &heartbeat{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(hb.stopped)

		ticker := time.NewTicker(p.heartbeatInterval)
		defer ticker.Stop()

		p.logger.Debug("Job heartbeat started",
			slog.String("task_id", job.TaskID),
		)

		for {
			select {
			case <-hb.done:
				p.logger.Debug("Job heartbeat stopped",
					slog.String("task_id", job.TaskID),
				)
				return

			case <-ctx.Done():
				p.logger.Debug("Job heartbeat stopped - context canceled",
					slog.String("task_id", job.TaskID),
				)
				return

			case <-ticker.C:
				rec := task.Record{Owner: job.Owner, Phase: task.Started{PID: p.pid, HeartbeatAt: p.now()}}
				ok, err := p.store.Refresh(ctx, job.TaskID, rec)
				if err != nil {
					p.logger.Warn("Failed to update job heartbeat",
						slog.String("task_id", job.TaskID),
						slog.Any("error", err),
					)
					continue
				}
				if !ok {
					p.logger.Warn("Task record is gone, heartbeat stopped",
						slog.String("task_id", job.TaskID),
					)
					return
				}
				p.logger.Debug("Job heartbeat updated",
					slog.String("task_id", job.TaskID),
				)
			}
		}
	}()

	return hb
}
