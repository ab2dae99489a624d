package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-profiler/internal/model"
)

func TestCapacityBands(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesOf("system", start, 8, 9, 10.5, 12.5) // 80%, 90%, 105%, 125% of 10 kVA

	dist, err := Capacity(series, 10, 15*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 10.0, dist.TransformerKVA)
	assert.InDelta(t, 1.0, dist.TotalHours, 1e-12)

	bands := dist.Bands()
	require.Len(t, bands, 4)
	for _, b := range bands {
		assert.InDelta(t, 0.25, b.Hours, 1e-12)
		assert.InDelta(t, 25.0, b.Percent, 1e-12)
	}
}

func TestCapacityBoundaryPercentages(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	// Exactly 85, 100, and 120 land in the upper band of each boundary.
	series := seriesOf("system", start, 8.5, 10.0, 12.0)

	dist, err := Capacity(series, 10, 15*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 0.0, dist.Below85.Hours)
	assert.InDelta(t, 0.25, dist.Band85To100.Hours, 1e-12)
	assert.InDelta(t, 0.25, dist.Band100To120.Hours, 1e-12)
	assert.InDelta(t, 0.25, dist.Above120.Hours, 1e-12)
}

func TestCapacityGapsReduceBandPercentages(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := model.MeterSeries{Buckets: []model.IntervalBucket{
		{Start: start, TotalKW: 5},
		{Start: start.Add(45 * time.Minute), TotalKW: 5}, // two buckets missing
	}}

	dist, err := Capacity(series, 10, 15*time.Minute)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, dist.TotalHours, 1e-12)
	assert.InDelta(t, 0.5, dist.Below85.Hours, 1e-12)
	assert.InDelta(t, 50.0, dist.Below85.Percent, 1e-12)
}

func TestCapacityDerivesIntervalWhenUnset(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesOf("system", start, 5, 5)

	dist, err := Capacity(series, 10, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dist.TotalHours, 1e-12)
}

func TestCapacityErrors(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := seriesOf("system", start, 5)

	_, err := Capacity(series, 0, 15*time.Minute)
	assert.Error(t, err)

	_, err = Capacity(model.MeterSeries{}, 10, 15*time.Minute)
	assert.Error(t, err)
}
