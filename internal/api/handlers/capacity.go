package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"load-profiler/internal/analysis"
	"load-profiler/internal/api/models"
	"load-profiler/internal/config"
)

// CapacityHandler handles transformer capacity-distribution requests
type CapacityHandler struct {
	cfg *config.Config
	log *slog.Logger
}

// NewCapacityHandler creates a new capacity handler
func NewCapacityHandler(cfg *config.Config, log *slog.Logger) *CapacityHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CapacityHandler{cfg: cfg, log: log}
}

// RunCapacity handles POST /api/v1/capacity
func (h *CapacityHandler) RunCapacity(c *gin.Context) {
	var req models.CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	res, err := runPipeline(c.Request.Context(), h.cfg, h.log, req.Files, req.IntervalMinutes, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "PIPELINE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	interval := h.cfg.Interval()
	if req.IntervalMinutes > 0 {
		interval = time.Duration(req.IntervalMinutes) * time.Minute
	}
	dist, err := analysis.Capacity(res.System, req.TransformerKVA, interval)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "CAPACITY_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.CapacityResponse{
		Status:       "completed",
		Distribution: dist,
		Files:        fileSummaries(res.Files),
	})
}
