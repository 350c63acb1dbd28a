package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/task"
	"github.com/gin-gonic/gin"
)

const taskNotFoundMessage = "task not found"

// GenerateHandler starts conversion jobs and reports their status
type GenerateHandler struct {
	logger         *slog.Logger
	launcher       TaskLauncher
	poller         TaskPoller
	location       *time.Location
	maxUploadBytes int64
}

func NewGenerateHandler(deps *Dependencies) *GenerateHandler {
	return &GenerateHandler{
		logger:         deps.Logger,
		launcher:       deps.Launcher,
		poller:         deps.Poller,
		location:       deps.location(),
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

// openUpload returns nil when the field is absent
func openUpload(c *gin.Context, field string) (*task.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &task.Upload{Filename: fh.Filename, Content: f}, f, nil
}

// Generate handles POST /api/v1/data_sets/generate
// Multipart fields: sbm (required) and ontology (optional).
func (h *GenerateHandler) Generate(c *gin.Context) {
	user := CurrentUser(c)
	limitBody(c, h.maxUploadBytes)

	sbm, sbmFile, err := openUpload(c, "sbm")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if sbmFile != nil {
		defer sbmFile.Close()
	}

	ontology, ontologyFile, err := openUpload(c, "ontology")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if ontologyFile != nil {
		defer ontologyFile.Close()
	}

	taskID, err := h.launcher.Launch(c.Request.Context(), user.ID, sbm, ontology)
	if err != nil {
		var verr *task.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error("Failed to launch generation",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to start generation")
		return
	}

	c.JSON(http.StatusCreated, dto.TaskResponse{TaskID: taskID})
}

// GenerateStatus handles GET /api/v1/data_sets/generate/:task_id
//
//	202 queued, 204 running, 400 failed, 200 with the data set, 404 unknown.
//
// Terminal answers are given once; later polls get 404.
func (h *GenerateHandler) GenerateStatus(c *gin.Context) {
	user := CurrentUser(c)
	taskID := c.Param("task_id")

	outcome, err := h.poller.Poll(c.Request.Context(), taskID, user.ID)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			respondError(c, http.StatusNotFound, taskNotFoundMessage)
			return
		}
		h.logger.Error("Failed to poll task",
			slog.String("task_id", taskID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to get task status")
		return
	}

	switch outcome.Kind {
	case task.OutcomeQueued:
		c.Status(http.StatusAccepted)
	case task.OutcomeRunning:
		c.Status(http.StatusNoContent)
	case task.OutcomeFailed, task.OutcomeOrphaned:
		respondError(c, http.StatusBadRequest, outcome.Message)
	case task.OutcomeSucceeded:
		c.JSON(http.StatusOK, summarize(outcome.DataSet, h.location))
	default:
		h.logger.Error("Unknown poll outcome",
			slog.String("task_id", taskID),
			slog.Int("kind", int(outcome.Kind)),
		)
		respondError(c, http.StatusInternalServerError, "failed to get task status")
	}
}
