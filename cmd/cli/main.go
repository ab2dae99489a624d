package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"load-profiler/internal/analysis"
	"load-profiler/internal/config"
	"load-profiler/internal/model"
	"load-profiler/internal/pipeline"
	"load-profiler/internal/report"
)

type opts struct {
	cfgPath string

	intervalMinutes int
	demandPolicy    string
	scaleFactor     float64
	target          string

	transformerKVA float64

	outDir string
	xlsx   bool
	pdf    bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "load-profiler",
		Short: "Interval meter read ingestion and load-profile analysis",
		Long: `load-profiler ingests interval meter reads exported from revenue meters
and recorders, validates and deduplicates them, resamples them into fixed
interval buckets, and derives the classical power-system loading ratios
(load / diversity / coincidence / demand factors) plus a transformer
capacity distribution.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&o.cfgPath, "config", "c", "", "path to YAML config")

	ingest := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Validate, deduplicate, and archive source CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, o, args)
		},
	}

	analyze := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Run factor analysis over source CSVs and write reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, o, args)
		},
	}
	analyze.Flags().IntVarP(&o.intervalMinutes, "interval", "i", 0, "bucket width in minutes (0 = configured default)")
	analyze.Flags().StringVar(&o.demandPolicy, "demand-policy", "", "sum-of-maxima or scaled-estimate")
	analyze.Flags().Float64Var(&o.scaleFactor, "scale-factor", 0, "connected-load scale factor for scaled-estimate [1.0, 2.0]")
	analyze.Flags().StringVar(&o.target, "target", "", `coincidental peak target, "2006-01-02 15:04:05"`)
	analyze.Flags().StringVarP(&o.outDir, "out", "o", "", "output directory (default: alongside the first input)")
	analyze.Flags().BoolVar(&o.xlsx, "xlsx", false, "also write an XLSX workbook")
	analyze.Flags().BoolVar(&o.pdf, "pdf", false, "also write a PDF report")

	capacity := &cobra.Command{
		Use:   "capacity [files...]",
		Short: "Transformer capacity distribution for a load profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapacity(cmd, o, args)
		},
	}
	capacity.Flags().Float64VarP(&o.transformerKVA, "kva", "k", 0, "transformer nameplate rating in KVA (0 = configured default)")
	capacity.Flags().IntVarP(&o.intervalMinutes, "interval", "i", 0, "bucket width in minutes (0 = configured default)")

	root.AddCommand(ingest, analyze, capacity)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func resolveFiles(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := pipeline.DiscoverCSVs(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files under %s", cfg.Paths.DataDir)
	}
	return files, nil
}

func runBatch(cmd *cobra.Command, o opts, args []string, move bool) (*config.Config, *pipeline.Result, error) {
	cfg, err := loadConfig(o.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if o.intervalMinutes > 0 {
		cfg.Pipeline.IntervalMinutes = o.intervalMinutes
	}
	files, err := resolveFiles(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	res, err := pipeline.New(cfg, slog.Default()).RunWith(cmd.Context(), files, pipeline.Options{MoveFiles: move})
	if err != nil {
		return nil, nil, err
	}
	return cfg, res, nil
}

func runIngest(cmd *cobra.Command, o opts, args []string) error {
	_, res, err := runBatch(cmd, o, args, true)
	if err != nil {
		return err
	}

	fmt.Printf("%-50s %-14s %s\n", "FILE", "STATUS", "NOTE")
	for _, f := range res.Files {
		note := f.Err
		if f.ArchivedTo != "" {
			note = "archived to " + f.ArchivedTo
		}
		if f.Quarantine != nil {
			note = "moved to " + f.Quarantine.MovedTo
		}
		fmt.Printf("%-50s %-14s %s\n", filepath.Base(f.Path), f.Status, note)
	}
	fmt.Println()
	fmt.Printf("Rows admitted:   %d\n", res.RowCount)
	fmt.Printf("Rows dropped:    %d\n", res.RowsDropped)
	fmt.Printf("Quarantined:     %d\n", len(res.Quarantined))
	fmt.Printf("Row collisions:  %d\n", len(res.Collisions))
	return nil
}

func runAnalyze(cmd *cobra.Command, o opts, args []string) error {
	cfg, res, err := runBatch(cmd, o, args, false)
	if err != nil {
		return err
	}

	opt, err := analysisOptions(cfg, o)
	if err != nil {
		return err
	}

	rep, err := analysis.Compute(res.System, res.PerMeter, opt)
	if err != nil {
		return err
	}
	rep.RowCount = res.RowCount
	rep.RowsDropped = res.RowsDropped

	input := firstInput(args, cfg)
	rep.InputFile = filepath.Base(input)
	base := input
	if o.outDir != "" {
		if err := os.MkdirAll(o.outDir, 0o755); err != nil {
			return err
		}
		base = filepath.Join(o.outDir, filepath.Base(input))
	}

	text := report.RenderText(rep)
	fmt.Print(text)

	if err := os.WriteFile(report.ResultsPath(base), []byte(text), 0o644); err != nil {
		return err
	}
	if err := report.WriteSeriesCSV(report.LoadProfilePath(base), res.System); err != nil {
		return err
	}
	if err := report.WritePeakCSV(report.PeakPath(base), rep); err != nil {
		return err
	}
	if err := report.WriteFactorsCSV(report.FactorsPath(base), rep); err != nil {
		return err
	}
	if written, err := report.WriteNoLoadCSV(report.NoLoadPath(base), rep); err != nil {
		return err
	} else if written {
		fmt.Printf("No-load intervals written to %s\n", report.NoLoadPath(base))
	}

	if o.xlsx {
		buf, err := report.BuildReportXLSX(rep, res.System)
		if err != nil {
			return err
		}
		if err := os.WriteFile(stripExt(base)+"_RESULTS.xlsx", buf, 0o644); err != nil {
			return err
		}
	}
	if o.pdf {
		buf, err := report.BuildReportPDF(rep, res.System)
		if err != nil {
			return err
		}
		if err := os.WriteFile(stripExt(base)+"_RESULTS.pdf", buf, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func runCapacity(cmd *cobra.Command, o opts, args []string) error {
	cfg, res, err := runBatch(cmd, o, args, false)
	if err != nil {
		return err
	}

	kva := cfg.Analysis.TransformerKVA
	if o.transformerKVA > 0 {
		kva = o.transformerKVA
	}
	dist, err := analysis.Capacity(res.System, kva, cfg.Interval())
	if err != nil {
		return err
	}
	fmt.Print(report.RenderCapacityText(dist))
	return nil
}

// analysisOptions resolves flags over configured defaults and rejects
// combinations Compute cannot use.
func analysisOptions(cfg *config.Config, o opts) (analysis.Options, error) {
	opt := analysis.Options{
		Policy:      model.DemandFactorPolicy(cfg.Analysis.DemandPolicy),
		ScaleFactor: cfg.Analysis.ScaleFactor,
	}
	if o.demandPolicy != "" {
		switch model.DemandFactorPolicy(o.demandPolicy) {
		case model.DemandSumOfMaxima, model.DemandScaledEstimate:
			opt.Policy = model.DemandFactorPolicy(o.demandPolicy)
		default:
			return opt, fmt.Errorf("unknown demand policy %q", o.demandPolicy)
		}
	}
	if o.scaleFactor != 0 {
		opt.ScaleFactor = o.scaleFactor
	}
	if opt.Policy == model.DemandScaledEstimate && (opt.ScaleFactor < 1.0 || opt.ScaleFactor > 2.0) {
		return opt, fmt.Errorf("scale factor %.2f outside [1.0, 2.0], required for %s", opt.ScaleFactor, model.DemandScaledEstimate)
	}
	if o.target != "" {
		t, err := time.Parse("2006-01-02 15:04:05", o.target)
		if err != nil {
			return opt, fmt.Errorf("target: %w", err)
		}
		opt.Target = &t
	}
	return opt, nil
}

func firstInput(args []string, cfg *config.Config) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(cfg.Paths.DataDir, "combined.csv")
}

func stripExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}
