package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/google/uuid"
)

// Upload is one file part of a launch request
type Upload struct {
	Filename string
	Content  io.Reader
}

// Launcher persists uploads, records the PENDING task and dispatches it
type Launcher struct {
	store      *Store
	dispatcher Dispatcher
	uploadDir  string
	logger     *slog.Logger
}

// NewLauncher creates a Launcher saving uploads under uploadDir
func NewLauncher(store *Store, dispatcher Dispatcher, uploadDir string, logger *slog.Logger) *Launcher {
	return &Launcher{
		store:      store,
		dispatcher: dispatcher,
		uploadDir:  uploadDir,
		logger:     logger,
	}
}

// Launch starts a generation job for owner and returns its task id.
// sbm is required, ontology may be nil.
func (l *Launcher) Launch(ctx context.Context, owner int64, sbm, ontology *Upload) (taskID string, err error) {
	if sbm == nil {
		return "", &ValidationError{Field: "sbm", Message: "sbm is required"}
	}

	var saved []string
	defer func() {
		if err != nil {
			removeFiles(l.logger, saved...)
		}
	}()

	sbmPath, err := l.save(sbm)
	if err != nil {
		return "", err
	}
	saved = append(saved, sbmPath)

	var ontologyPath string
	if ontology != nil {
		ontologyPath, err = l.save(ontology)
		if err != nil {
			return "", err
		}
		saved = append(saved, ontologyPath)
	}

	taskID = uuid.NewString()

	// PENDING must be readable before the caller gets the id
	if err = l.store.Put(ctx, taskID, Record{Owner: owner, Phase: Pending{}}); err != nil {
		return "", err
	}

	job := Job{
		TaskID:       taskID,
		Owner:        owner,
		SBMPath:      sbmPath,
		OntologyPath: ontologyPath,
		Title:        dataset.TitleFromFilename(sbm.Filename),
	}

	if err = l.dispatcher.Dispatch(ctx, job); err != nil {
		if _, delErr := l.store.Delete(ctx, taskID); delErr != nil {
			l.logger.Error("Failed to remove task after dispatch failure",
				slog.String("task_id", taskID),
				slog.Any("error", delErr),
			)
		}
		return "", fmt.Errorf("failed to dispatch task %s: %w", taskID, err)
	}

	l.logger.Info("Task launched",
		slog.String("task_id", taskID),
		slog.Int64("owner", owner),
		slog.Bool("with_ontology", ontologyPath != ""),
	)

	return taskID, nil
}

// save copies u into a fresh file that keeps the upload's extension
func (l *Launcher) save(u *Upload) (path string, err error) {
	f, err := os.CreateTemp(l.uploadDir, "upload-*"+filepath.Ext(u.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close upload file: %w", cerr)
		}
		if err != nil {
			os.Remove(f.Name())
			path = ""
		}
	}()

	if _, err = io.Copy(f, u.Content); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return f.Name(), nil
}

func removeFiles(logger *slog.Logger, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove file",
				slog.String("path", p),
				slog.Any("error", err),
			)
		}
	}
}

// RemoveInputs deletes the job's upload files
func RemoveInputs(logger *slog.Logger, job Job) {
	removeFiles(logger, job.SBMPath, job.OntologyPath)
}
