package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/cuongbtq/dataset-hub/internal/worker/domain"
)

// Runner lets tests stub the external converter
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	logger.Debug("Running converter",
		slog.String("cmd_line", strings.Join(append([]string{name}, args...), " ")),
	)

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		logger.Error("Converter failed",
			slog.String("cmd", name),
			slog.Int64("duration_ms", dur.Milliseconds()),
			slog.Any("error", err),
			slog.String("stderr", truncate(errb.String(), domain.MaxStderrBytes)),
		)
	} else {
		logger.Debug("Converter finished",
			slog.String("cmd", name),
			slog.Int64("duration_ms", dur.Milliseconds()),
			slog.Int("stdout_bytes", out.Len()),
			slog.Int("stderr_bytes", errb.Len()),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// ConverterConfig describes the external command.
// Args may use {sbm} and {dist}; OntologyArgs may also use {ontology}
// and are only appended when the job has an ontology file.
type ConverterConfig struct {
	Command      string
	Args         []string
	OntologyArgs []string
	WorkDir      string
}

// CommandConverter runs the configured command and reads the JSON it writes to {dist}
type CommandConverter struct {
	config ConverterConfig
	runner Runner
	logger *slog.Logger
}

// NewCommandConverter creates a converter backed by os/exec
func NewCommandConverter(config ConverterConfig, logger *slog.Logger) *CommandConverter {
	return &CommandConverter{
		config: config,
		runner: execRunner{},
		logger: logger,
	}
}

// Convert returns the bytes of the first *.json file the command produced
func (c *CommandConverter) Convert(ctx context.Context, job task.Job) ([]byte, error) {
	dist, err := os.MkdirTemp(c.config.WorkDir, "dist-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	defer os.RemoveAll(dist)

	_, stderr, err := c.runner.Run(ctx, c.config.Command, c.logger, c.args(job, dist)...)
	if err != nil {
		return nil, domain.NewConversionError(stderr, err)
	}

	matches, err := filepath.Glob(filepath.Join(dist, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list converter output: %w", err)
	}
	if len(matches) == 0 {
		return nil, &domain.ConversionError{Message: domain.ErrNoOutput.Error(), Err: domain.ErrNoOutput}
	}
	sort.Strings(matches)

	content, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read converter output: %w", err)
	}

	return content, nil
}

func (c *CommandConverter) args(job task.Job, dist string) []string {
	r := strings.NewReplacer(
		"{sbm}", job.SBMPath,
		"{dist}", dist,
		"{ontology}", job.OntologyPath,
	)

	args := make([]string, 0, len(c.config.Args)+len(c.config.OntologyArgs))
	for _, a := range c.config.Args {
		args = append(args, r.Replace(a))
	}
	if job.OntologyPath != "" {
		for _, a := range c.config.OntologyArgs {
			args = append(args, r.Replace(a))
		}
	}
	return args
}
