package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"load-profiler/internal/api/models"
	"load-profiler/internal/config"
	"load-profiler/internal/pipeline"
)

// IngestHandler handles batch ingestion requests
type IngestHandler struct {
	cfg *config.Config
	log *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(cfg *config.Config, log *slog.Logger) *IngestHandler {
	if log == nil {
		log = slog.Default()
	}
	return &IngestHandler{cfg: cfg, log: log}
}

// RunIngest handles POST /api/v1/ingest
func (h *IngestHandler) RunIngest(c *gin.Context) {
	var req models.IngestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: err.Error(),
				},
			})
			return
		}
	}

	moveFiles := true
	if req.MoveFiles != nil {
		moveFiles = *req.MoveFiles
	}

	res, err := runPipeline(c.Request.Context(), h.cfg, h.log, req.Files, 0, moveFiles)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "PIPELINE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.IngestResponse{
		Status:      "completed",
		Files:       fileSummaries(res.Files),
		RowCount:    res.RowCount,
		RowsDropped: res.RowsDropped,
		Quarantined: len(res.Quarantined),
		Collisions:  collisions(res),
	})
}

func collisions(res *pipeline.Result) []models.Collision {
	out := make([]models.Collision, len(res.Collisions))
	for i, col := range res.Collisions {
		out[i] = models.Collision{
			Meter:     col.Meter,
			Timestamp: col.Timestamp.Format(targetLayout),
			Path:      col.Path,
			Class:     string(col.Class),
		}
	}
	return out
}
