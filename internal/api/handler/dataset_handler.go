package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/cuongbtq/dataset-hub/internal/api/storage"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/gin-gonic/gin"
)

// DataSetHandler handles the caller's own data sets
type DataSetHandler struct {
	logger         *slog.Logger
	datasets       DataSetStore
	location       *time.Location
	maxUploadBytes int64
}

func NewDataSetHandler(deps *Dependencies) *DataSetHandler {
	return &DataSetHandler{
		logger:         deps.Logger,
		datasets:       deps.Store,
		location:       deps.location(),
		maxUploadBytes: deps.MaxUploadBytes,
	}
}

func summarize(ds *dataset.DataSet, loc *time.Location) dto.DataSetSummary {
	return dto.DataSetSummary{
		ID:       ds.ID,
		Title:    ds.Title,
		Path:     ds.Path,
		UploadAt: dto.FormatTime(ds.UploadAt, loc),
		IsPublic: ds.IsPublic,
	}
}

func tagDTOs(tags []model.Tag) []dto.TagDTO {
	out := make([]dto.TagDTO, len(tags))
	for i, t := range tags {
		out[i] = dto.TagDTO{ID: t.ID, Name: t.Name}
	}
	return out
}

// limitBody caps the request body at max bytes when max is set
func limitBody(c *gin.Context, max int64) {
	if max > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
	}
}

// ListDataSets handles GET /api/v1/data_sets
func (h *DataSetHandler) ListDataSets(c *gin.Context) {
	user := CurrentUser(c)

	dataSets, err := h.datasets.ListDataSetsByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list data sets", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	resp := dto.DataSetListResponse{Data: make([]dto.DataSetSummary, len(dataSets))}
	for i := range dataSets {
		resp.Data[i] = summarize(&dataSets[i], h.location)
	}
	c.JSON(http.StatusOK, resp)
}

// CreateDataSet handles POST /api/v1/data_sets
// Accepts a JSON document in the multipart field "file".
func (h *DataSetHandler) CreateDataSet(c *gin.Context) {
	user := CurrentUser(c)
	limitBody(c, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := dataset.New(user.ID, dataset.TitleFromFilename(fh.Filename), content, time.Now())
	if err != nil {
		var verr *dataset.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error("Failed to build data set", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create data set")
		return
	}

	if err := h.datasets.InsertDataSet(c.Request.Context(), ds); err != nil {
		h.logger.Error("Failed to insert data set", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create data set")
		return
	}

	h.logger.Info("Data set uploaded",
		slog.Int64("data_set_id", ds.ID),
		slog.Int64("user_id", user.ID),
	)
	c.JSON(http.StatusCreated, summarize(ds, h.location))
}

// ownedDataSet loads the :id data set of the caller or answers 404
func (h *DataSetHandler) ownedDataSet(c *gin.Context) (*dataset.DataSet, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusNotFound, notFoundMessage)
		return nil, false
	}

	ds, err := h.datasets.GetOwnedDataSet(c.Request.Context(), CurrentUser(c).ID, id)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			respondError(c, http.StatusNotFound, notFoundMessage)
			return nil, false
		}
		h.logger.Error("Failed to get data set", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get data set")
		return nil, false
	}
	return ds, true
}

func (h *DataSetHandler) respondDetail(c *gin.Context, ds *dataset.DataSet) {
	tags, err := h.datasets.ListTags(c.Request.Context(), ds.ID)
	if err != nil {
		h.logger.Error("Failed to list tags", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get data set")
		return
	}

	c.JSON(http.StatusOK, dto.DataSetDetail{
		ID:       ds.ID,
		Title:    ds.Title,
		IsPublic: ds.IsPublic,
		Tags:     tagDTOs(tags),
	})
}

// GetDataSet handles GET /api/v1/data_sets/:id
func (h *DataSetHandler) GetDataSet(c *gin.Context) {
	ds, ok := h.ownedDataSet(c)
	if !ok {
		return
	}
	h.respondDetail(c, ds)
}

// UpdateDataSet handles PATCH /api/v1/data_sets/:id
func (h *DataSetHandler) UpdateDataSet(c *gin.Context) {
	ds, ok := h.ownedDataSet(c)
	if !ok {
		return
	}

	var req dto.UpdateDataSetRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	update := storage.DataSetUpdate{Title: ds.Title, IsPublic: ds.IsPublic}
	if req.Title != nil {
		update.Title = dataset.Truncate(*req.Title, dataset.MaxTitleLength)
	}
	if req.IsPublic != nil {
		update.IsPublic = *req.IsPublic
	}
	if req.CommaSeparatedTagName != nil {
		names, err := domain.ParseTagNames(*req.CommaSeparatedTagName)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		update.TagNames = names
	}

	if err := h.datasets.UpdateDataSet(c.Request.Context(), ds.ID, update); err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			respondError(c, http.StatusNotFound, notFoundMessage)
			return
		}
		h.logger.Error("Failed to update data set",
			slog.Int64("data_set_id", ds.ID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to update data set")
		return
	}

	ds.Title = update.Title
	ds.IsPublic = update.IsPublic
	h.respondDetail(c, ds)
}

// DeleteDataSet handles DELETE /api/v1/data_sets/:id
func (h *DataSetHandler) DeleteDataSet(c *gin.Context) {
	ds, ok := h.ownedDataSet(c)
	if !ok {
		return
	}

	if err := h.datasets.DeleteDataSet(c.Request.Context(), ds.ID); err != nil && !errors.Is(err, dataset.ErrNotFound) {
		h.logger.Error("Failed to delete data set",
			slog.Int64("data_set_id", ds.ID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to delete data set")
		return
	}

	c.Status(http.StatusNoContent)
}

// Visualize handles GET /api/v1/visualize/:path
// Anyone holding the path may read the content.
func (h *DataSetHandler) Visualize(c *gin.Context) {
	ds, err := h.datasets.GetDataSetByPath(c.Request.Context(), c.Param("path"))
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			respondError(c, http.StatusNotFound, notFoundMessage)
			return
		}
		h.logger.Error("Failed to get data set by path", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get data set")
		return
	}

	c.JSON(http.StatusOK, dto.VisualizedDataSet{
		ID:      ds.ID,
		Title:   ds.Title,
		Content: []byte(ds.Content),
	})
}
