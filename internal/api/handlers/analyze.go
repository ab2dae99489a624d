package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"load-profiler/internal/analysis"
	"load-profiler/internal/api/models"
	"load-profiler/internal/config"
	"load-profiler/internal/model"
	"load-profiler/internal/pipeline"
	"load-profiler/internal/report"
)

const targetLayout = "2006-01-02 15:04:05"

// AnalyzeHandler runs factor analyses and keeps the last completed run for
// the report download endpoint.
type AnalyzeHandler struct {
	cfg *config.Config
	log *slog.Logger

	mu         sync.Mutex
	lastReport *model.FactorReport
	lastSeries model.MeterSeries
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(cfg *config.Config, log *slog.Logger) *AnalyzeHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AnalyzeHandler{cfg: cfg, log: log}
}

// RunAnalysis handles POST /api/v1/analyze. Accepts either a JSON body naming
// server-side files or a multipart upload of CSVs.
func (h *AnalyzeHandler) RunAnalysis(c *gin.Context) {
	var (
		req     models.AnalyzeRequest
		cleanup func()
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		files, opts, clean, err := h.saveUploads(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "INVALID_UPLOAD",
					Message: err.Error(),
				},
			})
			return
		}
		req.Files = files
		req.Options = opts
		cleanup = clean
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	opt, err := h.analysisOptions(req.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_OPTIONS",
				Message: err.Error(),
			},
		})
		return
	}

	res, err := runPipeline(c.Request.Context(), h.cfg, h.log, req.Files, req.Options.IntervalMinutes, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "PIPELINE_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	rep, err := analysis.Compute(res.System, res.PerMeter, opt)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ANALYSIS_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	rep.InputFile = inputLabel(req.Files)
	rep.RowCount = res.RowCount
	rep.RowsDropped = res.RowsDropped

	h.mu.Lock()
	h.lastReport = &rep
	h.lastSeries = res.System
	h.mu.Unlock()

	resp := models.AnalyzeResponse{
		Status: "completed",
		Report: rep,
		Files:  fileSummaries(res.Files),
	}
	if req.Options.IncludeSeries {
		resp.Series = seriesPoints(res.System)
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadReport handles GET /api/v1/report/:format, serving the last
// completed analysis as xlsx or pdf.
func (h *AnalyzeHandler) DownloadReport(c *gin.Context) {
	h.mu.Lock()
	rep := h.lastReport
	series := h.lastSeries
	h.mu.Unlock()

	if rep == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_REPORT",
				Message: "no analysis has completed yet",
			},
		})
		return
	}

	switch c.Param("format") {
	case "xlsx":
		buf, err := report.BuildReportXLSX(*rep, series)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "EXPORT_ERROR", Message: err.Error()},
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="load-profile-report.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
	case "pdf":
		buf, err := report.BuildReportPDF(*rep, series)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "EXPORT_ERROR", Message: err.Error()},
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="load-profile-report.pdf"`)
		c.Data(http.StatusOK, "application/pdf", buf)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_FORMAT",
				Message: fmt.Sprintf("unsupported format %q, expected xlsx or pdf", c.Param("format")),
			},
		})
	}
}

// saveUploads writes multipart CSVs to a temp dir and reads options from the
// remaining form fields.
func (h *AnalyzeHandler) saveUploads(c *gin.Context) ([]string, models.AnalyzeOptions, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.AnalyzeOptions{}, nil, err
	}
	uploads := form.File["files"]
	if len(uploads) == 0 {
		return nil, models.AnalyzeOptions{}, nil, fmt.Errorf("no files in upload")
	}

	dir, err := os.MkdirTemp("", "load-profiler-upload-")
	if err != nil {
		return nil, models.AnalyzeOptions{}, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	paths := make([]string, 0, len(uploads))
	for _, fh := range uploads {
		dest := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dest); err != nil {
			cleanup()
			return nil, models.AnalyzeOptions{}, nil, err
		}
		paths = append(paths, dest)
	}

	opts := models.AnalyzeOptions{
		DemandPolicy: c.PostForm("demand_policy"),
		Target:       c.PostForm("target"),
	}
	if v := c.PostForm("interval_minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.IntervalMinutes = n
		}
	}
	if v := c.PostForm("scale_factor"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.ScaleFactor = f
		}
	}
	opts.IncludeSeries = c.PostForm("include_series") == "true"
	return paths, opts, cleanup, nil
}

func (h *AnalyzeHandler) analysisOptions(o models.AnalyzeOptions) (analysis.Options, error) {
	opt := analysis.Options{
		Policy:      model.DemandFactorPolicy(h.cfg.Analysis.DemandPolicy),
		ScaleFactor: h.cfg.Analysis.ScaleFactor,
	}
	if o.DemandPolicy != "" {
		switch model.DemandFactorPolicy(o.DemandPolicy) {
		case model.DemandSumOfMaxima, model.DemandScaledEstimate:
			opt.Policy = model.DemandFactorPolicy(o.DemandPolicy)
		default:
			return opt, fmt.Errorf("unknown demand policy %q", o.DemandPolicy)
		}
	}
	if o.ScaleFactor != 0 {
		if o.ScaleFactor < 1.0 || o.ScaleFactor > 2.0 {
			return opt, fmt.Errorf("scale factor %.2f outside [1.0, 2.0]", o.ScaleFactor)
		}
		opt.ScaleFactor = o.ScaleFactor
	}
	// The resolved pair must be usable: a scaled estimate with no scale
	// factor from either the request or the config divides by zero.
	if opt.Policy == model.DemandScaledEstimate && (opt.ScaleFactor < 1.0 || opt.ScaleFactor > 2.0) {
		return opt, fmt.Errorf("scale factor %.2f outside [1.0, 2.0], required for %s", opt.ScaleFactor, model.DemandScaledEstimate)
	}
	if o.Target != "" {
		t, err := time.Parse(targetLayout, o.Target)
		if err != nil {
			return opt, fmt.Errorf("target: %w", err)
		}
		opt.Target = &t
	}
	return opt, nil
}

// Shared helpers

// runPipeline executes one batch run with optional per-request overrides.
func runPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger, files []string, intervalMinutes int, moveFiles bool) (*pipeline.Result, error) {
	c := *cfg
	if intervalMinutes > 0 {
		c.Pipeline.IntervalMinutes = intervalMinutes
	}
	if len(files) == 0 {
		discovered, err := pipeline.DiscoverCSVs(c.Paths.DataDir)
		if err != nil {
			return nil, err
		}
		files = discovered
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files")
	}
	return pipeline.New(&c, log).RunWith(ctx, files, pipeline.Options{MoveFiles: moveFiles})
}

func fileSummaries(files []pipeline.FileResult) []models.FileSummary {
	out := make([]models.FileSummary, len(files))
	for i, f := range files {
		out[i] = models.FileSummary{
			Path:       f.Path,
			Status:     string(f.Status),
			Error:      f.Err,
			ArchivedTo: f.ArchivedTo,
		}
		if f.Quarantine != nil {
			out[i].MovedTo = f.Quarantine.MovedTo
		}
	}
	return out
}

func seriesPoints(s model.MeterSeries) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = models.SeriesPoint{
			Datetime:   b.Start.Format(targetLayout),
			TotalKW:    b.TotalKW,
			MeterCount: b.MeterCount,
		}
	}
	return out
}

func inputLabel(files []string) string {
	switch len(files) {
	case 0:
		return "(data directory)"
	case 1:
		return filepath.Base(files[0])
	default:
		return fmt.Sprintf("%s (+%d more)", filepath.Base(files[0]), len(files)-1)
	}
}
