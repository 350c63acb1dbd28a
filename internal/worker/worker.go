package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/cuongbtq/dataset-hub/internal/worker/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer is the part of shared/rabbitmq.Client the worker consumes through
type Consumer interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// JobProcessor runs one job; *Processor implements it
type JobProcessor interface {
	Generate(ctx context.Context, job task.Job) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  Consumer
	Processor     JobProcessor
	Concurrency   int
	PrefetchCount int
}

// Worker consumes generation jobs from RabbitMQ and runs them on a goroutine pool
type Worker struct {
	logger        *slog.Logger
	rabbitClient  Consumer
	processor     JobProcessor
	concurrency   int
	prefetchCount int
	workerID      string
	jobsChan      chan *domain.JobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		processor:     cfg.Processor,
		concurrency:   cfg.Concurrency,
		prefetchCount: prefetch,
		workerID:      fmt.Sprintf("%s-%s", domain.ConsumerTagPrefix, uuid.NewString()[:8]),
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes until ctx is canceled or the broker closes the delivery channel
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	if closed := w.startMessageDispatcher(ctx, deliveries); closed {
		return fmt.Errorf("rabbitmq delivery channel closed")
	}

	return nil
}

// Stop signals the pool and waits for in-flight jobs
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
