package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Job is everything a worker needs to convert one upload
type Job struct {
	TaskID       string `json:"task_id"`
	Owner        int64  `json:"owner"`
	SBMPath      string `json:"sbm"`
	OntologyPath string `json:"ontology,omitempty"`
	Title        string `json:"title"`
}

// Dispatcher hands a job to a worker without waiting for it
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// ProcessDispatcher starts the worker binary as a detached OS process per job.
// The child gets no descriptors besides stdio and builds its own clients.
type ProcessDispatcher struct {
	binary     string
	configPath string
	logger     *slog.Logger
}

// NewProcessDispatcher creates a dispatcher running `binary [--config path] run ...`
func NewProcessDispatcher(binary, configPath string, logger *slog.Logger) *ProcessDispatcher {
	return &ProcessDispatcher{
		binary:     binary,
		configPath: configPath,
		logger:     logger,
	}
}

func (d *ProcessDispatcher) args(job Job) []string {
	var args []string
	if d.configPath != "" {
		args = append(args, "--config", d.configPath)
	}

	args = append(args, "run",
		"--task-id", job.TaskID,
		"--owner", strconv.FormatInt(job.Owner, 10),
		"--sbm", job.SBMPath,
		"--title", job.Title,
	)
	if job.OntologyPath != "" {
		args = append(args, "--ontology", job.OntologyPath)
	}

	return args
}

// Dispatch starts the worker and returns once the process exists
func (d *ProcessDispatcher) Dispatch(ctx context.Context, job Job) error {
	// not CommandContext: the worker must outlive the request
	cmd := exec.Command(d.binary, d.args(job)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker process: %w", err)
	}

	pid := cmd.Process.Pid
	d.logger.Info("Worker process started",
		slog.String("task_id", job.TaskID),
		slog.Int("pid", pid),
	)

	go func() {
		err := cmd.Wait()
		if err != nil {
			d.logger.Warn("Worker process exited with error",
				slog.String("task_id", job.TaskID),
				slog.Int("pid", pid),
				slog.Any("error", err),
			)
			return
		}
		d.logger.Debug("Worker process exited",
			slog.String("task_id", job.TaskID),
			slog.Int("pid", pid),
		)
	}()

	return nil
}

// Publisher is satisfied by shared/rabbitmq.Client
type Publisher interface {
	PublishJSON(ctx context.Context, messageID string, body []byte) error
}

// QueueDispatcher publishes the job to RabbitMQ for the consume worker
type QueueDispatcher struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewQueueDispatcher creates a dispatcher publishing through p
func NewQueueDispatcher(p Publisher, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{publisher: p, logger: logger}
}

// Dispatch publishes job as JSON
func (d *QueueDispatcher) Dispatch(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	if err := d.publisher.PublishJSON(ctx, job.TaskID, body); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	d.logger.Info("Job published",
		slog.String("task_id", job.TaskID),
	)

	return nil
}
