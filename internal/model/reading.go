package model

import "time"

// Reading is one meter measurement over a fixed interval window.
// Immutable once parsed.
type Reading struct {
	MeterID string

	// Timestamp is the interval position used for bucketing: the read time
	// for meter/date/time/kw sources, or Start Time for start/end sources.
	Timestamp time.Time

	// End is the end-of-interval timestamp. Zero for sources that carry only
	// a single read time.
	End time.Time

	// KW is the real power for single-value sources. For multi-phase sources
	// it is left zero and Phases carries the values.
	KW float64

	Phases *PhaseValues

	// Raw preserves the original row cells for duplicate classification and
	// log context.
	Raw []string
}

// PhaseValues holds the delivered/received register pairs from a
// multi-phase recorder export.
type PhaseValues struct {
	KWDel  float64
	KWRec  float64
	KVADel float64
	KVARec float64
}

// Duration returns the interval width, when the source carries both ends.
func (r Reading) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Timestamp)
}

// SourceFile describes one ingested file. Created at ingestion and never
// mutated afterwards; re-ingesting the same content hash is a no-op.
type SourceFile struct {
	Path           string
	ContentHash    string
	FirstTimestamp time.Time
	LastTimestamp  time.Time
	RowCount       int
	RowsDropped    int
}

// QuarantineRecord captures why a file was routed to the quarantine
// directory instead of being admitted.
type QuarantineRecord struct {
	SourcePath string
	MovedTo    string

	// RecordID is the first cell of the offending row, when present.
	RecordID     string
	FailureIndex int
	Expected     time.Time
	Actual       time.Time

	// Context holds formatted rows around the failure (up to 4 either side).
	Context []string
}
