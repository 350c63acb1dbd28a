package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/dataset-hub/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Debug("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg := <-w.jobsChan:
			w.handle(ctx, workerName, msg)
		}
	}
}

// handle runs one job. Failed jobs are never requeued: the status record
// already tells the client what happened.
func (w *Worker) handle(ctx context.Context, workerName string, msg *domain.JobMessage) {
	w.logger.Info("Worker received job",
		slog.String("worker_name", workerName),
		slog.String("task_id", msg.Job.TaskID),
	)

	if err := w.processor.Generate(ctx, msg.Job); err != nil {
		w.logger.Error("Job processing failed",
			slog.String("worker_name", workerName),
			slog.String("task_id", msg.Job.TaskID),
			slog.Any("error", err),
		)

		if nackErr := msg.Delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("task_id", msg.Job.TaskID),
				slog.Any("error", nackErr),
			)
		}
		return
	}

	if ackErr := msg.Delivery.Ack(false); ackErr != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("task_id", msg.Job.TaskID),
			slog.Any("error", ackErr),
		)
		return
	}

	w.logger.Info("Job completed",
		slog.String("worker_name", workerName),
		slog.String("task_id", msg.Job.TaskID),
	)
}
