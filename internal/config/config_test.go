package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "dataset_hub", cfg.Database.Database)
			assert.Equal(t, 30*time.Minute, cfg.Redis.TaskTTL)
			assert.Equal(t, "datasets_exchange", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "dataset_generate_queue", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, "datasets_dlx", cfg.RabbitMQ.Queue.DeadLetterExchange)
			assert.Equal(t, DispatchProcess, cfg.Generator.Dispatch)
			assert.Equal(t, "umakaparser", cfg.Generator.Command)
			assert.Equal(t, []string{"--ontology", "{ontology}"}, cfg.Generator.OntologyArgs)
			assert.Equal(t, time.Minute, cfg.Generator.StaleAfter)
			assert.Equal(t, "dataset-hub-api", cfg.App.Name)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/defaults.yaml")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Redis.TaskTTL)
	assert.Equal(t, DispatchProcess, cfg.Generator.Dispatch)
	assert.Equal(t, 2*time.Minute, cfg.Generator.StaleAfter)
	assert.Equal(t, 15*time.Second, cfg.Worker.HeartbeatInterval)
	assert.Equal(t, "Asia/Tokyo", cfg.App.Timezone)
	assert.NotEmpty(t, cfg.Storage.UploadDir)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ProxyTimeout)
}

func TestConfig_Location(t *testing.T) {
	cfg := &Config{App: AppConfig{Timezone: "Asia/Tokyo"}}
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())

	cfg.App.Timezone = "Nowhere/Invalid"
	assert.Equal(t, time.UTC, cfg.Location())
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "dataset_hub",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "datasets_exchange"},
			Queue:    QueueConfig{Name: "dataset_generate_queue"},
		},
		Worker: WorkerConfig{
			Concurrency:       2,
			JobTimeout:        time.Minute,
			HeartbeatInterval: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Generator: GeneratorConfig{
			Dispatch:     DispatchProcess,
			WorkerBinary: "/usr/local/bin/dataset-worker",
			StaleAfter:   time.Minute,
			Command:      "umakaparser",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty redis host",
			mutate:    func(c *Config) { c.Redis.Host = "" },
			wantErr:   true,
			errString: "redis host is required",
		},
		{
			name:      "process dispatch without worker binary",
			mutate:    func(c *Config) { c.Generator.WorkerBinary = "" },
			wantErr:   true,
			errString: "worker_binary is required",
		},
		{
			name: "queue dispatch without rabbitmq host",
			mutate: func(c *Config) {
				c.Generator.Dispatch = DispatchQueue
				c.RabbitMQ.Host = ""
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "queue dispatch without queue name",
			mutate: func(c *Config) {
				c.Generator.Dispatch = DispatchQueue
				c.RabbitMQ.Queue.Name = ""
			},
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "unknown dispatch",
			mutate:    func(c *Config) { c.Generator.Dispatch = "thread" },
			wantErr:   true,
			errString: "invalid generator dispatch",
		},
		{
			name:      "stale_after not above heartbeat interval",
			mutate:    func(c *Config) { c.Generator.StaleAfter = 5 * time.Second },
			wantErr:   true,
			errString: "stale_after must be greater",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		consume   bool
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "run mode ignores pool settings",
			mutate: func(c *Config) { c.Worker.Concurrency = 0 },
		},
		{
			name:    "consume mode valid",
			consume: true,
			mutate:  func(c *Config) {},
		},
		{
			name:      "missing command",
			mutate:    func(c *Config) { c.Generator.Command = "" },
			errString: "generator command is required",
		},
		{
			name:      "consume mode requires concurrency",
			consume:   true,
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "consume mode requires job timeout",
			consume:   true,
			mutate:    func(c *Config) { c.Worker.JobTimeout = 0 },
			errString: "worker job_timeout must be greater than 0",
		},
		{
			name:      "consume mode requires rabbitmq",
			consume:   true,
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig(tt.consume)

			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerHeartbeat(t *testing.T) {
	writeWorkerConfig := func(t *testing.T, interval string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "worker.yaml")
		require.NoError(t, os.WriteFile(path, []byte("worker:\n  heartbeat_interval: "+interval+"\n"), 0o600))
		return path
	}

	tests := []struct {
		name      string
		mutate    func(t *testing.T, c *Config)
		errString string
	}{
		{
			name: "worker interval below stale_after",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.WorkerConfigPath = writeWorkerConfig(t, "15s")
			},
		},
		{
			name: "worker interval drifted past stale_after",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.WorkerConfigPath = writeWorkerConfig(t, "5m")
			},
			errString: "generator stale_after (1m0s) must be greater than heartbeat_interval (5m0s)",
		},
		{
			name: "worker interval equal to stale_after",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.WorkerConfigPath = writeWorkerConfig(t, "1m")
			},
			errString: "must be greater than heartbeat_interval",
		},
		{
			name: "worker config missing",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.WorkerConfigPath = filepath.Join(t.TempDir(), "absent.yaml")
			},
			errString: "failed to load worker config",
		},
		{
			name: "no worker config path",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.WorkerConfigPath = ""
			},
		},
		{
			name: "queue dispatch skips the check",
			mutate: func(t *testing.T, c *Config) {
				c.Generator.Dispatch = DispatchQueue
				c.Generator.WorkerConfigPath = filepath.Join(t.TempDir(), "absent.yaml")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("testdata/valid_config.yaml")
			require.NoError(t, err)
			tt.mutate(t, cfg)

			err = cfg.ValidateWorkerHeartbeat()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.Validate())
		require.NoError(t, cfg.ValidateWorkerConfig(true))
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
