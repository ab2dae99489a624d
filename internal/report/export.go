package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"load-profiler/internal/model"
)

// BuildReportPDF renders a minimal PDF for a factor report.
func BuildReportPDF(rep model.FactorReport, series model.MeterSeries) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Load Profile Factor Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Input: %s", rep.InputFile))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", rep.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s (%d days)", fmtTime(rep.StartTime), fmtTime(rep.EndTime), rep.NumDays))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Meters: %d  Rows: %d  Dropped: %d", rep.NumMeters, rep.RowCount, rep.RowsDropped))
	pdf.Ln(8)

	pdf.Cell(0, 6, fmt.Sprintf("Average load (kW): %.2f", rep.AverageLoadKW))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Peak load (kW): %.2f on %s", rep.PeakLoadKW, fmtTime(rep.PeakTimestamp)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Sum of individual maxima (kW): %.2f", rep.SumIndividualMaxKW))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total connected load (kW, %s): %.2f", rep.DemandPolicy, rep.TotalConnectedLoadKW))
	pdf.Ln(8)

	// Factors table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Factor", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range [][2]string{
		{"Load Factor", fmt.Sprintf("%.4f", rep.LoadFactor)},
		{"Diversity Factor", fmt.Sprintf("%.4f", rep.DiversityFactor)},
		{"Coincidence Factor", fmt.Sprintf("%.4f", rep.CoincidenceFactor)},
		{"Demand Factor", fmt.Sprintf("%.4f", rep.DemandFactor)},
	} {
		pdf.CellFormat(70, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(rep.Violations) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Reasonability failures")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, v := range rep.Violations {
			pdf.Cell(0, 5, fmt.Sprintf("%s: %s", v.Name, v.Detail))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders an XLSX workbook with a summary sheet and the full
// resampled series.
func BuildReportXLSX(rep model.FactorReport, series model.MeterSeries) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	seriesSheet := "load profile"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(seriesSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Load Profile Factor Report")
	_ = f.SetCellValue(summarySheet, "A3", "Input")
	_ = f.SetCellValue(summarySheet, "B3", rep.InputFile)
	_ = f.SetCellValue(summarySheet, "A4", "Start")
	_ = f.SetCellValue(summarySheet, "B4", fmtTime(rep.StartTime))
	_ = f.SetCellValue(summarySheet, "A5", "End")
	_ = f.SetCellValue(summarySheet, "B5", fmtTime(rep.EndTime))
	_ = f.SetCellValue(summarySheet, "A6", "Days")
	_ = f.SetCellValue(summarySheet, "B6", rep.NumDays)
	_ = f.SetCellValue(summarySheet, "A7", "Meters")
	_ = f.SetCellValue(summarySheet, "B7", rep.NumMeters)
	_ = f.SetCellValue(summarySheet, "A8", "Average load (kW)")
	_ = f.SetCellValue(summarySheet, "B8", rep.AverageLoadKW)
	_ = f.SetCellValue(summarySheet, "A9", "Peak load (kW)")
	_ = f.SetCellValue(summarySheet, "B9", rep.PeakLoadKW)
	_ = f.SetCellValue(summarySheet, "A10", "Peak timestamp")
	_ = f.SetCellValue(summarySheet, "B10", fmtTime(rep.PeakTimestamp))
	_ = f.SetCellValue(summarySheet, "A11", "Load factor")
	_ = f.SetCellValue(summarySheet, "B11", rep.LoadFactor)
	_ = f.SetCellValue(summarySheet, "A12", "Diversity factor")
	_ = f.SetCellValue(summarySheet, "B12", rep.DiversityFactor)
	_ = f.SetCellValue(summarySheet, "A13", "Coincidence factor")
	_ = f.SetCellValue(summarySheet, "B13", rep.CoincidenceFactor)
	_ = f.SetCellValue(summarySheet, "A14", "Demand factor")
	_ = f.SetCellValue(summarySheet, "B14", rep.DemandFactor)
	_ = f.SetCellValue(summarySheet, "A15", "Demand policy")
	_ = f.SetCellValue(summarySheet, "B15", string(rep.DemandPolicy))

	_ = f.SetCellValue(seriesSheet, "A1", "datetime")
	_ = f.SetCellValue(seriesSheet, "B1", "total_kw")
	_ = f.SetCellValue(seriesSheet, "C1", "meter_count")
	for i, b := range series.Buckets {
		row := i + 2
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("A%d", row), b.Start.Format(timestampLayout))
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("B%d", row), b.TotalKW)
		_ = f.SetCellValue(seriesSheet, fmt.Sprintf("C%d", row), b.MeterCount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
