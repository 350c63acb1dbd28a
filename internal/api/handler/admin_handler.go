package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/api/export"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/gin-gonic/gin"
)

const exportFilename = "data_sets.xlsx"

// AdminHandler handles the administrator views of all data sets
type AdminHandler struct {
	logger   *slog.Logger
	datasets DataSetStore
	catalog  CatalogStore
	location *time.Location
}

func NewAdminHandler(deps *Dependencies) *AdminHandler {
	return &AdminHandler{
		logger:   deps.Logger,
		datasets: deps.Store,
		catalog:  deps.Store,
		location: deps.location(),
	}
}

type adminListRequest struct {
	Page int `form:"page"`
}

// ListDataSets handles GET /api/v1/admin/data_sets
func (h *AdminHandler) ListDataSets(c *gin.Context) {
	var req adminListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	page := domain.NewPage(req.Page, domain.AdminPageSize)
	ctx := c.Request.Context()

	count, err := h.catalog.CountDataSets(ctx)
	if err != nil {
		h.logger.Error("Failed to count data sets", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	rows, err := h.catalog.ListAdminDataSets(ctx, page)
	if err != nil {
		h.logger.Error("Failed to list data sets", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	data := make([]dto.AdminDataSet, len(rows))
	for i, r := range rows {
		data[i] = dto.AdminDataSet{
			ID:       r.ID,
			Title:    r.Title,
			Path:     r.Path,
			IsPublic: r.IsPublic,
			UploadAt: dto.FormatTime(r.UploadAt, h.location),
			User:     dto.OwnerDTO{DisplayName: r.DisplayName, ContactURI: r.ContactURI},
		}
	}

	previous, next := pageLinks(c.Request.URL.Path, page, count, func(number int) url.Values {
		return url.Values{"page": {itoa(number)}}
	})

	c.JSON(http.StatusOK, dto.PageResponse[dto.AdminDataSet]{
		Count:    count,
		Previous: previous,
		Next:     next,
		Data:     data,
	})
}

// DeleteDataSet handles DELETE /api/v1/admin/data_sets/:id
func (h *AdminHandler) DeleteDataSet(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusNotFound, notFoundMessage)
		return
	}

	if err := h.datasets.DeleteDataSet(c.Request.Context(), id); err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			respondError(c, http.StatusNotFound, notFoundMessage)
			return
		}
		h.logger.Error("Failed to delete data set",
			slog.Int64("data_set_id", id),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to delete data set")
		return
	}

	h.logger.Info("Data set deleted by admin",
		slog.Int64("data_set_id", id),
		slog.Int64("admin_id", CurrentUser(c).ID),
	)
	c.Status(http.StatusNoContent)
}

// Export handles GET /api/v1/admin/data_sets/export
func (h *AdminHandler) Export(c *gin.Context) {
	start := time.Now()

	rows, err := h.catalog.ListExportRows(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load export rows", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to export data sets")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDataSets(&buf, rows, h.location); err != nil {
		h.logger.Error("Failed to render workbook", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to export data sets")
		return
	}

	h.logger.Info("Data sets exported",
		slog.Int("rows", len(rows)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}
