package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/config"
	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/cuongbtq/dataset-hub/internal/worker"
	"github.com/cuongbtq/dataset-hub/internal/worker/storage"
	"github.com/cuongbtq/dataset-hub/shared/logger"
	"github.com/cuongbtq/dataset-hub/shared/postgresql"
	"github.com/cuongbtq/dataset-hub/shared/rabbitmq"
	"github.com/cuongbtq/dataset-hub/shared/redis"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

const (
	statusWriteTimeout = 10 * time.Second
	startFailedMessage = "worker failed to start"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "worker-service",
		Usage: "Converts uploaded SBM files into data sets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to configuration file",
				Value:   "configs/worker-service/config.yaml",
				Sources: cli.EnvVars("WORKER_SERVICE_CONFIG_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single generation job and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "task-id",
						Usage:    "Task id the status record is stored under",
						Required: true,
					},
					&cli.Int64Flag{
						Name:     "owner",
						Usage:    "Id of the user the data set belongs to",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "sbm",
						Usage:    "Path of the uploaded SBM file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "ontology",
						Usage: "Path of the uploaded ontology file",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Data set title",
					},
				},
				Action: runAction,
			},
			{
				Name:   "consume",
				Usage:  "Consume generation jobs from RabbitMQ",
				Action: consumeAction,
			},
		},
	}
}

// services are the clients shared by both commands
type services struct {
	cfg       *config.Config
	logger    *logger.Logger
	db        *postgresql.Client
	redis     *redis.Client
	store     *task.Store
	processor *worker.Processor
}

// setup loads the configuration and connects the status store
func setup(cmd *cli.Command, consume bool) (*services, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(consume); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger = appLogger.With(
		slog.String("app", cfg.App.Name),
		slog.String("command", cmd.Name),
	)

	s := &services{cfg: cfg, logger: appLogger}

	s.redis, err = initRedis(&cfg.Redis, appLogger.Logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	s.store = task.NewStore(s.redis.GetClient(), cfg.Redis.TaskTTL, appLogger.Logger)

	return s, nil
}

// connectDatabase opens PostgreSQL and builds the processor on top of it
func (s *services) connectDatabase(command string) error {
	db, err := initPostgreSQL(&s.cfg.Database, s.cfg.App.Name+"-"+command, s.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	s.processor = worker.NewProcessor(&worker.ProcessorConfig{
		Logger: s.logger.Logger,
		Store:  s.store,
		Converter: worker.NewCommandConverter(worker.ConverterConfig{
			Command:      s.cfg.Generator.Command,
			Args:         s.cfg.Generator.Args,
			OntologyArgs: s.cfg.Generator.OntologyArgs,
			WorkDir:      s.cfg.Storage.UploadDir,
		}, s.logger.Logger),
		DataSets:          storage.NewStorage(db.GetDB(), s.logger.Logger),
		HeartbeatInterval: s.cfg.Worker.HeartbeatInterval,
		JobTimeout:        s.cfg.Worker.JobTimeout,
	})

	return nil
}

// failTask records FAILURE for a job that never started, unless its record is gone
func (s *services) failTask(ctx context.Context, job task.Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	rec := task.Record{Owner: job.Owner, Phase: task.Failed{Message: startFailedMessage}}
	ok, err := s.store.Refresh(ctx, job.TaskID, rec)
	if err != nil {
		s.logger.Error("Failed to record task failure",
			slog.String("task_id", job.TaskID),
			slog.Any("error", err),
		)
		return
	}
	if !ok {
		s.logger.Warn("Task record is gone, failure not recorded",
			slog.String("task_id", job.TaskID),
		)
	}
}

// Close releases every client that was opened
func (s *services) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	s.logger.Close()
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	job := task.Job{
		TaskID:       cmd.String("task-id"),
		Owner:        cmd.Int64("owner"),
		SBMPath:      cmd.String("sbm"),
		OntologyPath: cmd.String("ontology"),
		Title:        cmd.String("title"),
	}
	// the uploads belong to this process even when it never gets to run the job
	defer task.RemoveInputs(slog.Default(), job)

	s, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.connectDatabase(cmd.Name); err != nil {
		s.failTask(ctx, job)
		return err
	}

	s.logger.Info("Starting worker process",
		slog.String("version", s.cfg.App.Version),
		slog.String("task_id", job.TaskID),
	)

	return s.processor.Generate(ctx, job)
}

func consumeAction(ctx context.Context, cmd *cli.Command) error {
	s, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.connectDatabase(cmd.Name); err != nil {
		return err
	}

	s.logger.Info("Starting worker service",
		slog.String("version", s.cfg.App.Version),
		slog.String("environment", s.cfg.App.Environment),
	)

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&s.cfg.RabbitMQ, s.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	s.logger.Info("RabbitMQ connection established")

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        s.logger.Logger,
		RabbitClient:  rabbitClient,
		Processor:     s.processor,
		Concurrency:   s.cfg.Worker.Concurrency,
		PrefetchCount: s.cfg.RabbitMQ.Consumer.PrefetchCount,
	})

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(workerCtx); err != nil {
			errChan <- err
		}
	}()

	s.logger.Info("Worker service started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Received signal, shutting down gracefully")
	case runErr = <-errChan:
		s.logger.Error("Worker error",
			slog.Any("error", runErr),
		)
	}

	// Cancel context to stop worker
	cancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Worker stopped gracefully")
	case <-time.After(s.cfg.Worker.ShutdownTimeout):
		s.logger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	s.logger.Info("Worker service shutdown complete")
	return runErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, appName string, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		ApplicationName: appName,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRedis initializes the task status store client
func initRedis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		DeadLetterExchange: cfg.Queue.DeadLetterExchange,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
