package analysis

import (
	"fmt"
	"math"
	"time"

	"load-profiler/internal/model"
)

// NoLoadThresholdKW is the system total below which an interval is reported
// as a no-load period.
const NoLoadThresholdKW = 0.5

// reciprocalTolerance bounds the advisory diversity == 1/coincidence
// cross-check. Exact equality fails on large datasets from rounding alone.
const reciprocalTolerance = 1e-6

// defaultVoltages are the service voltages the peak is restated at, in
// single-phase amps with PF=1.
var defaultVoltages = []float64{120, 208, 240, 7200}

// Options configures one factor-analysis run.
type Options struct {
	Policy      model.DemandFactorPolicy
	ScaleFactor float64

	// Target, when non-nil, requests the coincidental load at that bucket
	// and the non-coincident peak for that day.
	Target *time.Time

	// Voltages for the amperage restatement; defaults when empty.
	Voltages []float64
}

// Compute derives the factor report for one system-level series plus the
// per-meter series of the same period. Reasonability violations are recorded
// on the report, never raised: an out-of-range factor may be bad data or an
// unusual but real operating condition, and that call belongs to the analyst.
func Compute(system model.MeterSeries, perMeter map[string]model.MeterSeries, opt Options) (model.FactorReport, error) {
	rep := model.FactorReport{GeneratedAt: time.Now()}

	peak, ok := system.Peak()
	if !ok {
		return rep, fmt.Errorf("empty system series")
	}
	if len(perMeter) == 0 {
		return rep, fmt.Errorf("no per-meter series")
	}
	if opt.Policy == model.DemandScaledEstimate && (opt.ScaleFactor < 1.0 || opt.ScaleFactor > 2.0) {
		return rep, fmt.Errorf("scale factor %.2f outside [1.0, 2.0], required for %s", opt.ScaleFactor, model.DemandScaledEstimate)
	}

	rep.StartTime = system.Buckets[0].Start
	rep.EndTime = system.Buckets[len(system.Buckets)-1].Start
	rep.NumDays = int(rep.EndTime.Sub(rep.StartTime).Hours()/24) + 1
	rep.NumMeters = len(perMeter)

	rep.PeakLoadKW = peak.TotalKW
	rep.PeakTimestamp = peak.Start
	rep.AverageLoadKW = system.Average()

	sumMax := 0.0
	for _, s := range perMeter {
		if p, ok := s.Peak(); ok {
			sumMax += p.TotalKW
		}
	}
	rep.SumIndividualMaxKW = sumMax
	rep.AveragePeakPerMeterKW = sumMax / float64(rep.NumMeters)

	// Core ratios.
	rep.LoadFactor = rep.AverageLoadKW / rep.PeakLoadKW
	rep.CoincidenceFactor = rep.PeakLoadKW / sumMax
	rep.DiversityFactor = sumMax / rep.PeakLoadKW

	rep.DemandPolicy = opt.Policy
	switch opt.Policy {
	case model.DemandScaledEstimate:
		rep.ScaleFactor = opt.ScaleFactor
		rep.TotalConnectedLoadKW = rep.PeakLoadKW * opt.ScaleFactor
	default:
		rep.DemandPolicy = model.DemandSumOfMaxima
		rep.TotalConnectedLoadKW = sumMax
	}
	rep.DemandFactor = rep.PeakLoadKW / rep.TotalConnectedLoadKW

	// Reasonability checks. Recorded, not raised.
	if rep.LoadFactor >= 1 {
		rep.Violations = append(rep.Violations, model.Violation{
			Name:   "load_factor",
			Detail: fmt.Sprintf("load factor %.4f exceeds the reasonability limit of 1", rep.LoadFactor),
		})
	}
	if rep.CoincidenceFactor >= 1 {
		rep.Violations = append(rep.Violations, model.Violation{
			Name:   "coincidence_factor",
			Detail: fmt.Sprintf("coincidence factor %.4f exceeds the reasonability limit of 1", rep.CoincidenceFactor),
		})
	}
	if rep.DiversityFactor <= 1 {
		rep.Violations = append(rep.Violations, model.Violation{
			Name:   "diversity_factor",
			Detail: fmt.Sprintf("diversity factor %.4f below the reasonability limit of 1", rep.DiversityFactor),
		})
	}
	if rep.DemandFactor > 1 {
		rep.Violations = append(rep.Violations, model.Violation{
			Name:   "demand_factor",
			Detail: fmt.Sprintf("demand factor %.4f exceeds the reasonability limit of 1", rep.DemandFactor),
		})
	}

	// Advisory reciprocal cross-check.
	if rep.CoincidenceFactor != 0 {
		rep.ReciprocalDelta = math.Abs(rep.DiversityFactor - 1/rep.CoincidenceFactor)
	}

	voltages := opt.Voltages
	if len(voltages) == 0 {
		voltages = defaultVoltages
	}
	for _, v := range voltages {
		rep.PeakAmps = append(rep.PeakAmps, model.AmpsAtVoltage{
			Volts: v,
			Amps:  rep.PeakLoadKW * 1000 / v,
		})
	}

	for _, b := range system.Buckets {
		if b.TotalKW < NoLoadThresholdKW {
			rep.NoLoadStarts = append(rep.NoLoadStarts, b.Start)
		}
	}

	if opt.Target != nil {
		rep.TargetPeak = targetPeak(system, *opt.Target)
	}

	return rep, nil
}

// ReciprocalConsistent reports whether the advisory diversity-vs-coincidence
// cross-check holds within tolerance.
func ReciprocalConsistent(rep model.FactorReport) bool {
	if rep.DiversityFactor == 0 {
		return rep.ReciprocalDelta == 0
	}
	return rep.ReciprocalDelta/rep.DiversityFactor < reciprocalTolerance
}

func targetPeak(system model.MeterSeries, target time.Time) *model.TargetPeak {
	tp := &model.TargetPeak{Target: target}
	b, ok := system.At(target)
	if !ok {
		return tp
	}
	tp.InDataset = true
	tp.LoadKW = b.TotalKW

	y, m, d := target.Date()
	for _, sb := range system.Buckets {
		by, bm, bd := sb.Start.Date()
		if by == y && bm == m && bd == d && sb.TotalKW > tp.DayPeakKW {
			tp.DayPeakKW = sb.TotalKW
			tp.DayPeakStart = sb.Start
		}
	}
	return tp
}
