package models

// AnalyzeRequest represents the request body for a factor-analysis run over
// files already on the server. Uploaded files go through the multipart form
// path instead.
type AnalyzeRequest struct {
	// Paths to source CSV files. Empty means analyze everything under the
	// configured data directory.
	Files []string `json:"files,omitempty"`

	Options AnalyzeOptions `json:"options,omitempty"`
}

// AnalyzeOptions contains optional analysis parameters.
type AnalyzeOptions struct {
	IntervalMinutes int     `json:"interval_minutes,omitempty"` // 0 = configured default
	DemandPolicy    string  `json:"demand_policy,omitempty"`    // "sum-of-maxima" or "scaled-estimate"
	ScaleFactor     float64 `json:"scale_factor,omitempty"`
	Target          string  `json:"target,omitempty"` // "2006-01-02 15:04:05", optional
	IncludeSeries   bool    `json:"include_series,omitempty"`
}

// CapacityRequest represents the request body for a capacity-distribution run.
type CapacityRequest struct {
	Files          []string `json:"files,omitempty"`
	TransformerKVA float64  `json:"transformer_kva" binding:"required"`

	IntervalMinutes int `json:"interval_minutes,omitempty"`
}

// IngestRequest represents a batch ingestion run over the configured data
// directory (or an explicit file list).
type IngestRequest struct {
	Files []string `json:"files,omitempty"`

	// MoveFiles enables quarantine moves and archiving. Defaults to true for
	// ingestion; the analyze endpoints never move files.
	MoveFiles *bool `json:"move_files,omitempty"`
}
