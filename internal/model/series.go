package model

import "time"

// IntervalBucket is one fixed-width interval of an aggregated series.
type IntervalBucket struct {
	Start      time.Time
	TotalKW    float64
	MeterCount int
}

// MeterSeries is an ordered sequence of IntervalBuckets for one meter or for
// the aggregated system. Buckets are sorted by Start with no duplicates.
type MeterSeries struct {
	MeterID string
	Buckets []IntervalBucket
}

// Peak returns the bucket with the maximum total. ok is false for an empty
// series.
func (s MeterSeries) Peak() (IntervalBucket, bool) {
	if len(s.Buckets) == 0 {
		return IntervalBucket{}, false
	}
	best := s.Buckets[0]
	for _, b := range s.Buckets[1:] {
		if b.TotalKW > best.TotalKW {
			best = b
		}
	}
	return best, true
}

// Average returns the mean of all bucket totals, 0 for an empty series.
func (s MeterSeries) Average() float64 {
	if len(s.Buckets) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range s.Buckets {
		sum += b.TotalKW
	}
	return sum / float64(len(s.Buckets))
}

// Span returns the elapsed time between the first and last bucket starts.
func (s MeterSeries) Span() time.Duration {
	if len(s.Buckets) < 2 {
		return 0
	}
	return s.Buckets[len(s.Buckets)-1].Start.Sub(s.Buckets[0].Start)
}

// At returns the bucket starting exactly at t.
func (s MeterSeries) At(t time.Time) (IntervalBucket, bool) {
	for _, b := range s.Buckets {
		if b.Start.Equal(t) {
			return b, true
		}
	}
	return IntervalBucket{}, false
}

// NetBucket is one interval of a multi-phase site series after conversion to
// engineering units.
type NetBucket struct {
	Start time.Time

	MWDel  float64
	MWRec  float64
	MVADel float64
	MVARec float64

	MWNet  float64
	MVANet float64
	PFNet  float64
}

// SiteSeries is an ordered sequence of NetBuckets for one site.
type SiteSeries struct {
	Site    string
	Meter   string
	Buckets []NetBucket
}
