package report

import (
	"fmt"
	"strings"

	"load-profiler/internal/model"
)

const lineWidth = 80

// RenderText produces the fixed-width factor report consumed by human
// analysts.
func RenderText(rep model.FactorReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	center := func(s string) {
		fmt.Fprintf(&b, "%*s\n", (lineWidth+len(s))/2, s)
	}

	b.WriteString(rule + "\n")
	center("Data Parameters")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-37s %42s\n", "Input filename:", rep.InputFile)
	fmt.Fprintf(&b, "%-37s %42s\n", "Report run date/time:", rep.GeneratedAt.Format(timestampLayout))
	fmt.Fprintf(&b, "%-37s %42s\n", "Data START date/time:", fmtTime(rep.StartTime))
	fmt.Fprintf(&b, "%-37s %42s\n", "Data END date/time:", fmtTime(rep.EndTime))
	fmt.Fprintf(&b, "%-35s %20d %s\n", "Days in dataset:", rep.NumDays, "days")
	fmt.Fprintf(&b, "%-35s %20d %s\n", "Meters in dataset:", rep.NumMeters, "meters")
	fmt.Fprintf(&b, "%-35s %20d %s\n", "Meter reads in dataset:", rep.RowCount, "rows")
	fmt.Fprintf(&b, "%-35s %20d %s\n", "Rows dropped during conversion:", rep.RowsDropped, "rows")

	b.WriteString(rule + "\n")
	center("Results")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-30s %20.2f %s\n", "Average load (KW):", rep.AverageLoadKW, "")
	fmt.Fprintf(&b, "%-30s %20.2f %s\n", "Peak load (KW):", rep.PeakLoadKW, "KW on "+fmtTime(rep.PeakTimestamp))
	for _, a := range rep.PeakAmps {
		label := fmt.Sprintf("Peak load (%.0fV, 1-phase, PF=1):", a.Volts)
		fmt.Fprintf(&b, "%-40s %13.2f %s\n", label, a.Amps, "amps")
	}
	fmt.Fprintf(&b, "%-40s %13.2f %s\n", "Sum of individual maximum demands:", rep.SumIndividualMaxKW, "KW")
	fmt.Fprintf(&b, "%-40s %13.2f %s\n", "Average peak load per meter:", rep.AveragePeakPerMeterKW, "KW")
	fmt.Fprintf(&b, "%-40s %13.2f %s\n", "Total connected load ("+string(rep.DemandPolicy)+"):", rep.TotalConnectedLoadKW, "KW")

	if rep.TargetPeak != nil {
		tp := rep.TargetPeak
		b.WriteString(thin + "\n")
		center("Coincidental Peaks")
		fmt.Fprintf(&b, "%-45s%s\n", "Target datetime (given):", fmtTime(tp.Target))
		if tp.InDataset {
			fmt.Fprintf(&b, "%-44s %5.2f KW\n", "Coincidental peak (KW) for target datetime:", tp.LoadKW)
			fmt.Fprintf(&b, "%-44s %5.2f %s\n", "Non-coincidental peak (KW) for target date:", tp.DayPeakKW, "KW on "+fmtTime(tp.DayPeakStart))
		} else {
			fmt.Fprintf(&b, "%-44s %s\n", "Coincidental peak (KW) for target datetime:", "OUTSIDE OF DATASET!")
		}
	}

	b.WriteString(rule + "\n")
	center("Calculated Factors")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-30s %20.2f\n", "Load Factor:", rep.LoadFactor)
	fmt.Fprintf(&b, "%-30s %20.2f\n", "Diversity Factor:", rep.DiversityFactor)
	fmt.Fprintf(&b, "%-30s %20.2f\n", "Coincidence Factor:", rep.CoincidenceFactor)
	fmt.Fprintf(&b, "%-30s %20.2f\n", "Demand Factor:", rep.DemandFactor)

	if len(rep.Violations) > 0 {
		b.WriteString(thin + "\n")
		center("Reasonability Failures")
		for _, v := range rep.Violations {
			fmt.Fprintf(&b, " %-20s %s\n", v.Name+":", v.Detail)
		}
	}

	b.WriteString(rule + "\n")
	center("Interpretation of Results")
	b.WriteString(rule + "\n")
	b.WriteString("Load Factor = average_load / peak_load\n")
	b.WriteString(" With constant load, LF -> 1. With variable load, LF -> 0.\n")
	b.WriteString(" LF is how efficiently the customer is using peak demand.\n\n")
	b.WriteString("Diversity Factor = sum_individual_maximum_demands / peak_load\n")
	b.WriteString(" Must be >= 1. Reciprocal of Coincidence Factor.\n\n")
	b.WriteString("Coincidence Factor = peak_load / sum_individual_maximum_demands\n")
	b.WriteString(" Must be <= 1. CF will decrease as sample size increases.\n\n")
	b.WriteString("Demand Factor = peak_load / total_connected_load\n")
	b.WriteString(" Low demand factor requires less system capacity to serve total load.\n")
	b.WriteString(rule + "\n")

	return b.String()
}

// RenderCapacityText produces the transformer capacity distribution table.
func RenderCapacityText(dist model.CapacityDistribution) string {
	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%*s\n", (lineWidth+len("Transformer Calculations and Capacity Distribution"))/2,
		"Transformer Calculations and Capacity Distribution")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-35s%20.1f days (%.2f hours)\n", "Total time:", dist.TotalDays, dist.TotalHours)
	fmt.Fprintf(&b, "%-35s%20.1f KVA\n", "Transformer KVA:", dist.TransformerKVA)
	b.WriteString(thin + "\n")
	fmt.Fprintf(&b, " %-30s| %-12s| %-13s| %-8s\n", "LOAD RANGE", "DAYS", "HOURS", "%")
	b.WriteString(thin + "\n")
	for _, band := range dist.Bands() {
		fmt.Fprintf(&b, " %-30s| %-7.2f days | %-7.2f hours | %-6.2f %%\n",
			band.Label, band.Days, band.Hours, band.Percent)
	}
	b.WriteString(rule + "\n")
	return b.String()
}
