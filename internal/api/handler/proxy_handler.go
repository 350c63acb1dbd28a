package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/gin-gonic/gin"
)

const (
	sparqlResultsType = "application/sparql-results+json"
	maxProxyBytes     = 32 << 20
)

// ProxyHandler forwards SPARQL queries for browsers that cannot reach the endpoint
type ProxyHandler struct {
	logger *slog.Logger
	client *http.Client
}

func NewProxyHandler(deps *Dependencies) *ProxyHandler {
	client := deps.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyHandler{
		logger: deps.Logger,
		client: client,
	}
}

// Query handles POST /api/v1/proxy
// Form fields endpoint and query; answers with the endpoint's JSON results.
func (h *ProxyHandler) Query(c *gin.Context) {
	var req dto.ProxyRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "endpoint and query are required")
		return
	}

	endpoint, err := url.Parse(req.Endpoint)
	if err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		respondError(c, http.StatusBadRequest, "invalid endpoint")
		return
	}

	q := endpoint.Query()
	q.Set("query", req.Query)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	body, err := h.fetch(c, endpoint.String())
	if err != nil {
		h.logger.Warn("SPARQL proxy request failed",
			slog.String("endpoint", req.Endpoint),
			slog.Any("error", err),
		)
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

func (h *ProxyHandler) fetch(c *gin.Context, target string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", sparqlResultsType+", application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("endpoint did not return JSON")
	}
	return body, nil
}
