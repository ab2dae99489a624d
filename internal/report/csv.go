package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"load-profiler/internal/model"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteSeriesCSV writes the resampled system series in the
// datetime,total_kw shape the plot and GUI collaborators consume.
func WriteSeriesCSV(path string, s model.MeterSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"datetime", "total_kw"}); err != nil {
		return err
	}
	for _, b := range s.Buckets {
		row := []string{
			b.Start.Format(timestampLayout),
			fmtFloat(b.TotalKW),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WritePeakCSV writes the single-row peak summary.
func WritePeakCSV(path string, rep model.FactorReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"datetime", "peak_total_kw"}); err != nil {
		return err
	}
	if err := w.Write([]string{rep.PeakTimestamp.Format(timestampLayout), fmtFloat(rep.PeakLoadKW)}); err != nil {
		return err
	}
	return w.Error()
}

// WriteFactorsCSV writes the four derived ratios as factor,value rows.
func WriteFactorsCSV(path string, rep model.FactorReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := [][]string{
		{"factor", "value"},
		{"diversity_factor", fmtFloat(rep.DiversityFactor)},
		{"load_factor", fmtFloat(rep.LoadFactor)},
		{"coincidence_factor", fmtFloat(rep.CoincidenceFactor)},
		{"demand_factor", fmtFloat(rep.DemandFactor)},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteNoLoadCSV lists the bucket starts whose total fell below the no-load
// threshold. Nothing is written when there are none.
func WriteNoLoadCSV(path string, rep model.FactorReport) (bool, error) {
	if len(rep.NoLoadStarts) == 0 {
		return false, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"datetime"}); err != nil {
		return false, err
	}
	for _, t := range rep.NoLoadStarts {
		if err := w.Write([]string{t.Format(timestampLayout)}); err != nil {
			return false, err
		}
	}
	return true, w.Error()
}

// WriteNetSeriesCSV writes a site (or system) net series with engineering
// units, one row per interval.
func WriteNetSeriesCSV(path string, s model.SiteSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"Start Time",
		"MW_del", "MW_rec", "MVA_del", "MVA_rec",
		"MW_net", "MVA_net", "PF_net",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, b := range s.Buckets {
		row := []string{
			b.Start.Format("1/2/06 15:04:05"),
			fmtFloat(b.MWDel),
			fmtFloat(b.MWRec),
			fmtFloat(b.MVADel),
			fmtFloat(b.MVARec),
			fmtFloat(b.MWNet),
			fmtFloat(b.MVANet),
			fmtFloat(b.PFNet),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}
