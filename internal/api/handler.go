// Package api exposes the narrative engine over a JSON HTTP API.
package api

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"goinsight/domain/insight"
	"goinsight/internal/config"
	"goinsight/internal/engine"
	"goinsight/internal/errors"
	"goinsight/internal/narrative"
)

// NarrativeRequest asks for one metric under one filter set
type NarrativeRequest struct {
	Metric  string          `json:"metric" binding:"required"`
	Filters insight.Filters `json:"filters"`
}

// BatchRequest asks for several metrics under the same filter set
type BatchRequest struct {
	Metrics []string        `json:"metrics" binding:"required,min=1,dive,required"`
	Filters insight.Filters `json:"filters"`
}

// Handler serves narrative requests
type Handler struct {
	engine  *engine.Engine
	catalog *config.Catalog
	source  DatasetSource
	timeout time.Duration
}

// NewHandler creates a handler. Results are computed per request and never kept.
func NewHandler(eng *engine.Engine, catalog *config.Catalog, source DatasetSource, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{engine: eng, catalog: catalog, source: source, timeout: timeout}
}

// Router builds the gin engine with every route under /api
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/metrics", h.ListMetrics)
	api.GET("/metrics/:id", h.GetMetric)
	api.GET("/narratives", h.GetNarrative)
	api.POST("/narratives", h.CreateNarrative)
	api.POST("/narratives/batch", h.CreateBatch)
	return r
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "metrics": len(h.catalog.Metrics)})
}

// ListMetrics returns the catalog
func (h *Handler) ListMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": h.catalog.Metrics})
}

// GetMetric returns one metric definition
func (h *Handler) GetMetric(c *gin.Context) {
	m, ok := h.catalog.Metric(c.Param("id"))
	if !ok {
		h.fail(c, errors.NotFound("metric "+c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, m)
}

// CreateNarrative evaluates one metric for a JSON request body
func (h *Handler) CreateNarrative(c *gin.Context) {
	var req NarrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	h.narrate(c, req.Metric, req.Filters)
}

// GetNarrative evaluates the metric named by the "metric" parameter. Every
// "entity" value narrows the grouping column and any other parameter except
// "format" is a subset filter.
func (h *Handler) GetNarrative(c *gin.Context) {
	id := c.Query("metric")
	if id == "" {
		h.fail(c, errors.InvalidInput("metric parameter is required"))
		return
	}
	h.narrate(c, id, ParseFilters(c.Request.URL.Query()))
}

func (h *Handler) narrate(c *gin.Context, id string, filters insight.Filters) {
	cfg, ok := h.catalog.Metric(id)
	if !ok {
		h.fail(c, errors.NotFound("metric "+id))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	ds, err := h.source.Dataset(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.respond(c, h.engine.Run(ds, cfg, filters))
}

// CreateBatch evaluates several metrics concurrently
func (h *Handler) CreateBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	cfgs, err := h.metrics(req.Metrics)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	ds, err := h.source.Dataset(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	results, err := h.engine.RunAll(ctx, ds, cfgs, req.Filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) respond(c *gin.Context, result insight.NarrativeResult) {
	switch c.Query("format") {
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(narrative.Markdown(result)))
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", narrative.HTML(result))
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) metrics(ids []string) ([]insight.MetricConfig, error) {
	cfgs := make([]insight.MetricConfig, 0, len(ids))
	for _, id := range ids {
		m, ok := h.catalog.Metric(id)
		if !ok {
			return nil, errors.NotFound("metric " + id)
		}
		cfgs = append(cfgs, m)
	}
	return cfgs, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if stderrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}
