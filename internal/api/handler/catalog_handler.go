package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/api/storage"
	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public data set catalog
type CatalogHandler struct {
	logger   *slog.Logger
	datasets DataSetStore
	catalog  CatalogStore
	location *time.Location
}

func NewCatalogHandler(deps *Dependencies) *CatalogHandler {
	return &CatalogHandler{
		logger:   deps.Logger,
		datasets: deps.Store,
		catalog:  deps.Store,
		location: deps.location(),
	}
}

// ListPublicDataSets handles GET /api/v1/public_data_sets
// Query: size (default 4), page (default 1), sort (1..6), search (exact title or tag).
func (h *CatalogHandler) ListPublicDataSets(c *gin.Context) {
	var req dto.PublicDataSetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	size := domain.DefaultPageSize
	if req.Size != nil {
		size = *req.Size
	}

	filter := storage.PublicFilter{
		Search: req.Search,
		Sort:   domain.ParseSortBy(req.Sort),
		Page:   domain.NewPage(req.Page, size),
	}

	ctx := c.Request.Context()

	count, err := h.catalog.CountPublicDataSets(ctx, filter.Search)
	if err != nil {
		h.logger.Error("Failed to count public data sets", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	rows, err := h.catalog.ListPublicDataSets(ctx, filter)
	if err != nil {
		h.logger.Error("Failed to list public data sets", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	tags, err := h.datasets.ListTagsByDataSet(ctx, ids)
	if err != nil {
		h.logger.Error("Failed to list tags", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to list data sets")
		return
	}

	data := make([]dto.PublicDataSet, len(rows))
	for i, r := range rows {
		data[i] = dto.PublicDataSet{
			ID:       r.ID,
			Title:    r.Title,
			Path:     r.Path,
			UploadAt: dto.FormatTime(r.UploadAt, h.location),
			MetaData: []byte(r.MetaData),
			User:     dto.OwnerDTO{DisplayName: r.DisplayName, ContactURI: r.ContactURI},
			Tags:     tagDTOs(tags[r.ID]),
		}
	}

	previous, next := pageLinks(c.Request.URL.Path, filter.Page, count, func(number int) url.Values {
		params := url.Values{
			"size": {itoa(filter.Page.Size)},
			"page": {itoa(number)},
			"sort": {itoa(int(filter.Sort))},
		}
		if filter.Search != "" {
			params.Set("search", filter.Search)
		}
		return params
	})

	c.JSON(http.StatusOK, dto.PageResponse[dto.PublicDataSet]{
		Count:    count,
		Previous: previous,
		Next:     next,
		Data:     data,
	})
}
