package analysis

import (
	"fmt"
	"time"

	"load-profiler/internal/model"
)

// Capacity partitions the series' elapsed span into loading bands relative
// to a transformer nameplate rating. Hours-in-band count occupied buckets;
// the percent denominator is the first-to-last elapsed span, so data gaps
// show up as percentages summing under 100 rather than silently inflating
// every band.
func Capacity(series model.MeterSeries, transformerKVA float64, interval time.Duration) (model.CapacityDistribution, error) {
	dist := model.CapacityDistribution{TransformerKVA: transformerKVA}
	if transformerKVA <= 0 {
		return dist, fmt.Errorf("transformer rating must be > 0, got %.2f", transformerKVA)
	}
	if len(series.Buckets) == 0 {
		return dist, fmt.Errorf("empty series")
	}
	if interval <= 0 {
		// Derive from the first pair of buckets when not configured.
		if len(series.Buckets) > 1 {
			interval = series.Buckets[1].Start.Sub(series.Buckets[0].Start)
		} else {
			interval = 15 * time.Minute
		}
	}

	var below85, band85, band100, above120 int
	for _, b := range series.Buckets {
		pct := b.TotalKW / transformerKVA * 100
		switch {
		case pct < 85:
			below85++
		case pct < 100:
			band85++
		case pct < 120:
			band100++
		default:
			above120++
		}
	}

	span := series.Span() + interval // include the width of the last bucket
	totalHours := span.Hours()
	dist.TotalHours = totalHours
	dist.TotalDays = totalHours / 24

	mk := func(label string, count int) model.CapacityBand {
		hours := float64(count) * interval.Hours()
		band := model.CapacityBand{Label: label, Hours: hours, Days: hours / 24}
		if totalHours > 0 {
			band.Percent = hours / totalHours * 100
		}
		return band
	}
	dist.Below85 = mk("Below 85%", below85)
	dist.Band85To100 = mk("Between 85% and 100%", band85)
	dist.Band100To120 = mk("Between 100% and 120%", band100)
	dist.Above120 = mk("Exceeds 120%", above120)

	return dist, nil
}
