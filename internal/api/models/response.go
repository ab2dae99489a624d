package models

import (
	"load-profiler/internal/model"
)

// AnalyzeResponse represents the response from a factor-analysis run.
type AnalyzeResponse struct {
	Status string             `json:"status"`
	Report model.FactorReport `json:"report"`
	Files  []FileSummary      `json:"files"`

	// Series is the resampled system load profile, included on request.
	Series []SeriesPoint `json:"series,omitempty"`
}

// CapacityResponse represents the response from a capacity-distribution run.
type CapacityResponse struct {
	Status       string                     `json:"status"`
	Distribution model.CapacityDistribution `json:"distribution"`
	Files        []FileSummary              `json:"files"`
}

// IngestResponse summarizes one batch ingestion run.
type IngestResponse struct {
	Status      string        `json:"status"`
	Files       []FileSummary `json:"files"`
	RowCount    int           `json:"row_count"`
	RowsDropped int           `json:"rows_dropped"`
	Quarantined int           `json:"quarantined"`
	Collisions  []Collision   `json:"collisions,omitempty"`
}

// FileSummary is the per-file outcome of a run.
type FileSummary struct {
	Path       string `json:"path"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	ArchivedTo string `json:"archived_to,omitempty"`
	MovedTo    string `json:"moved_to,omitempty"`
}

// Collision is one deduplicated row collision.
type Collision struct {
	Meter     string `json:"meter"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Class     string `json:"class"` // "OVERLAP" or "DUPLICATE"
}

// SeriesPoint is one resampled interval bucket.
type SeriesPoint struct {
	Datetime   string  `json:"datetime"`
	TotalKW    float64 `json:"total_kw"`
	MeterCount int     `json:"meter_count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
