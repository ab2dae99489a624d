package profile

import (
	"sort"
	"time"

	"load-profiler/internal/model"
)

// DefaultInterval is the bucket width used when none is configured.
const DefaultInterval = 15 * time.Minute

type bucketAcc struct {
	sum    float64
	meters map[string]struct{}
}

// Resample buckets readings into fixed-width intervals by truncating each
// timestamp to the interval width, summing kW within each bucket. Two reads
// landing in one bucket add, matching how sub-metered reads combine into one
// system reading. Buckets are not synthesized for gaps.
func Resample(readings []model.Reading, interval time.Duration) model.MeterSeries {
	if interval <= 0 {
		interval = DefaultInterval
	}
	acc := make(map[int64]*bucketAcc)
	for _, r := range readings {
		start := r.Timestamp.Truncate(interval)
		key := start.Unix()
		b, ok := acc[key]
		if !ok {
			b = &bucketAcc{meters: make(map[string]struct{})}
			acc[key] = b
		}
		b.sum += r.KW
		b.meters[r.MeterID] = struct{}{}
	}

	series := model.MeterSeries{}
	for key, b := range acc {
		series.Buckets = append(series.Buckets, model.IntervalBucket{
			Start:      time.Unix(key, 0).UTC(),
			TotalKW:    b.sum,
			MeterCount: len(b.meters),
		})
	}
	sort.Slice(series.Buckets, func(i, j int) bool {
		return series.Buckets[i].Start.Before(series.Buckets[j].Start)
	})
	return series
}

// ResampleByMeter produces one series per meter.
func ResampleByMeter(readings []model.Reading, interval time.Duration) map[string]model.MeterSeries {
	byMeter := make(map[string][]model.Reading)
	for _, r := range readings {
		byMeter[r.MeterID] = append(byMeter[r.MeterID], r)
	}
	out := make(map[string]model.MeterSeries, len(byMeter))
	for meter, rs := range byMeter {
		s := Resample(rs, interval)
		s.MeterID = meter
		out[meter] = s
	}
	return out
}

// AggregateSystem merges per-meter series on bucket start with outer-join
// semantics: a bucket absent in one series contributes 0, not a dropped row.
func AggregateSystem(series []model.MeterSeries) model.MeterSeries {
	type sysAcc struct {
		sum    float64
		meters int
	}
	acc := make(map[int64]*sysAcc)
	for _, s := range series {
		for _, b := range s.Buckets {
			key := b.Start.Unix()
			a, ok := acc[key]
			if !ok {
				a = &sysAcc{}
				acc[key] = a
			}
			a.sum += b.TotalKW
			a.meters += b.MeterCount
		}
	}
	out := model.MeterSeries{MeterID: "system"}
	for key, a := range acc {
		out.Buckets = append(out.Buckets, model.IntervalBucket{
			Start:      time.Unix(key, 0).UTC(),
			TotalKW:    a.sum,
			MeterCount: a.meters,
		})
	}
	sort.Slice(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Start.Before(out.Buckets[j].Start)
	})
	return out
}
