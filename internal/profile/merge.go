package profile

import (
	"sort"
	"time"

	"load-profiler/internal/model"
)

// SiteOptions carries the per-site settings resolved once at ingestion time.
// No per-row sign inspection happens downstream.
type SiteOptions struct {
	Site  string
	Meter string

	// Multiplier converts raw register values to primary-side units.
	Multiplier float64

	// NegateReceived flips the received registers for generation sites whose
	// exports record received power with positive sign. Sites already
	// exported with negative convention leave this false.
	NegateReceived bool
}

// PowerFactor is net real over net apparent power, defined as exactly 0 when
// net apparent power is 0.
func PowerFactor(mwNet, mvaNet float64) float64 {
	if mvaNet == 0 {
		return 0.0
	}
	return mwNet / mvaNet
}

// BuildSiteSeries converts one site's deduplicated readings to engineering
// units: MW = kW x multiplier / 1e6, net real = delivered + received, net
// apparent analogous. Readings arrive interval-aligned from the recorder, so
// each reading maps to one bucket.
func BuildSiteSeries(readings []model.Reading, opt SiteOptions) model.SiteSeries {
	mult := opt.Multiplier
	if mult == 0 {
		mult = 1
	}
	out := model.SiteSeries{Site: opt.Site, Meter: opt.Meter}
	for _, r := range readings {
		if r.Phases == nil {
			continue
		}
		p := *r.Phases
		if opt.NegateReceived {
			p.KWRec = -p.KWRec
			p.KVARec = -p.KVARec
		}
		b := model.NetBucket{
			Start:  r.Timestamp,
			MWDel:  p.KWDel * mult / 1e6,
			MWRec:  p.KWRec * mult / 1e6,
			MVADel: p.KVADel * mult / 1e6,
			MVARec: p.KVARec * mult / 1e6,
		}
		b.MWNet = b.MWDel + b.MWRec
		b.MVANet = b.MVADel + b.MVARec
		b.PFNet = PowerFactor(b.MWNet, b.MVANet)
		out.Buckets = append(out.Buckets, b)
	}
	sort.Slice(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Start.Before(out.Buckets[j].Start)
	})
	return out
}

// AggregateNet merges site series on bucket start with outer-join semantics
// into a system-total series: a bucket absent in one site contributes 0 for
// that site. PF is re-derived from the summed nets.
func AggregateNet(sites []model.SiteSeries) model.SiteSeries {
	type netAcc struct {
		mw  float64
		mva float64
	}
	acc := make(map[int64]*netAcc)
	for _, s := range sites {
		for _, b := range s.Buckets {
			key := b.Start.Unix()
			a, ok := acc[key]
			if !ok {
				a = &netAcc{}
				acc[key] = a
			}
			a.mw += b.MWNet
			a.mva += b.MVANet
		}
	}
	out := model.SiteSeries{Site: "system"}
	for key, a := range acc {
		out.Buckets = append(out.Buckets, model.NetBucket{
			Start:  time.Unix(key, 0).UTC(),
			MWNet:  a.mw,
			MVANet: a.mva,
			PFNet:  PowerFactor(a.mw, a.mva),
		})
	}
	sort.Slice(out.Buckets, func(i, j int) bool {
		return out.Buckets[i].Start.Before(out.Buckets[j].Start)
	})
	return out
}

// ToMeterSeries projects a net site series onto the kW-based series used by
// the factor calculator (net MW expressed as kW).
func ToMeterSeries(s model.SiteSeries) model.MeterSeries {
	out := model.MeterSeries{MeterID: s.Site}
	for _, b := range s.Buckets {
		out.Buckets = append(out.Buckets, model.IntervalBucket{
			Start:      b.Start,
			TotalKW:    b.MWNet * 1000,
			MeterCount: 1,
		})
	}
	return out
}
