package model

import "time"

// DemandFactorPolicy selects how total connected load is derived for the
// demand factor. The source data never carries nameplate ratings, so both
// observed conventions are supported and the choice is explicit.
type DemandFactorPolicy string

const (
	// DemandSumOfMaxima uses the sum of per-meter non-coincident maximum
	// demands as total connected load.
	DemandSumOfMaxima DemandFactorPolicy = "sum-of-maxima"

	// DemandScaledEstimate estimates total connected load as
	// peak_load x scale_factor.
	DemandScaledEstimate DemandFactorPolicy = "scaled-estimate"
)

// Violation is a named reasonability failure carried on the report rather
// than raised, so the analyst decides whether the data or the model is wrong.
type Violation struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// AmpsAtVoltage is the single-phase amperage equivalent of a kW figure at a
// given service voltage, assuming PF=1.
type AmpsAtVoltage struct {
	Volts float64 `json:"volts"`
	Amps  float64 `json:"amps"`
}

// TargetPeak reports the coincidental load at a caller-supplied timestamp
// and the non-coincident peak for that day.
type TargetPeak struct {
	Target       time.Time `json:"target"`
	InDataset    bool      `json:"in_dataset"`
	LoadKW       float64   `json:"load_kw"`
	DayPeakKW    float64   `json:"day_peak_kw"`
	DayPeakStart time.Time `json:"day_peak_start"`
}

// FactorReport is the derived, read-only result of one factor-analysis run.
type FactorReport struct {
	InputFile   string    `json:"input_file"`
	GeneratedAt time.Time `json:"generated_at"`

	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	NumDays     int       `json:"num_days"`
	NumMeters   int       `json:"num_meters"`
	RowCount    int       `json:"row_count"`
	RowsDropped int       `json:"rows_dropped"`

	AverageLoadKW         float64   `json:"average_load_kw"`
	PeakLoadKW            float64   `json:"peak_load_kw"`
	PeakTimestamp         time.Time `json:"peak_timestamp"`
	SumIndividualMaxKW    float64   `json:"sum_individual_max_kw"`
	AveragePeakPerMeterKW float64   `json:"average_peak_per_meter_kw"`
	TotalConnectedLoadKW  float64   `json:"total_connected_load_kw"`

	DemandPolicy DemandFactorPolicy `json:"demand_policy"`
	ScaleFactor  float64            `json:"scale_factor,omitempty"`

	LoadFactor        float64 `json:"load_factor"`
	DiversityFactor   float64 `json:"diversity_factor"`
	CoincidenceFactor float64 `json:"coincidence_factor"`
	DemandFactor      float64 `json:"demand_factor"`

	// ReciprocalDelta is |diversity - 1/coincidence|; advisory only.
	ReciprocalDelta float64 `json:"reciprocal_delta"`

	Violations []Violation     `json:"violations,omitempty"`
	PeakAmps   []AmpsAtVoltage `json:"peak_amps,omitempty"`

	// NoLoadStarts lists bucket starts whose total fell below the no-load
	// threshold (0.5 kW).
	NoLoadStarts []time.Time `json:"no_load_starts,omitempty"`

	TargetPeak *TargetPeak `json:"target_peak,omitempty"`
}

// Valid reports whether the run produced no reasonability violations.
func (r FactorReport) Valid() bool { return len(r.Violations) == 0 }

// CapacityBand is the time a series spent inside one loading band of a
// transformer rating.
type CapacityBand struct {
	Label   string  `json:"label"`
	Hours   float64 `json:"hours"`
	Days    float64 `json:"days"`
	Percent float64 `json:"percent"`
}

// CapacityDistribution partitions a series' elapsed span into loading bands
// relative to a transformer nameplate rating.
type CapacityDistribution struct {
	TransformerKVA float64 `json:"transformer_kva"`
	TotalHours     float64 `json:"total_hours"`
	TotalDays      float64 `json:"total_days"`

	Below85      CapacityBand `json:"below_85"`
	Band85To100  CapacityBand `json:"band_85_100"`
	Band100To120 CapacityBand `json:"band_100_120"`
	Above120     CapacityBand `json:"above_120"`
}

// Bands returns the four bands in ascending order.
func (c CapacityDistribution) Bands() []CapacityBand {
	return []CapacityBand{c.Below85, c.Band85To100, c.Band100To120, c.Above120}
}
