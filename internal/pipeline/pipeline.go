package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"load-profiler/internal/config"
	"load-profiler/internal/ingest"
	"load-profiler/internal/model"
	"load-profiler/internal/profile"
)

// Options tunes one batch run.
type Options struct {
	// MoveFiles enables the filesystem side of ingestion: quarantine moves
	// for sequence failures and YYYY-MM archiving of admitted start/end
	// files. Analysis over files the caller does not own leaves it off.
	MoveFiles bool
}

// FileStatus classifies the outcome for one source file.
type FileStatus string

const (
	StatusAdmitted    FileStatus = "admitted"
	StatusAlreadySeen FileStatus = "already-seen"
	StatusQuarantined FileStatus = "quarantined"
	StatusFailed      FileStatus = "failed"
)

// FileResult is the per-file outcome of a run.
type FileResult struct {
	Path       string
	Status     FileStatus
	Source     model.SourceFile
	Err        string
	Quarantine *model.QuarantineRecord
	ArchivedTo string
}

// Result is everything one run produced, in process, for the thin CLI/API
// shells to serialize as they see fit.
type Result struct {
	Files       []FileResult
	Quarantined []model.QuarantineRecord
	Collisions  []ingest.Collision

	RowCount    int
	RowsDropped int

	// kW path (single-phase sources).
	System   model.MeterSeries
	PerMeter map[string]model.MeterSeries

	// Engineering-unit path (start/end sources).
	Sites     []model.SiteSeries
	NetSystem model.SiteSeries
}

// Runner owns one pipeline configuration. Each Run is a single-threaded
// batch from the caller's point of view; internally the parse/validate stage
// fans out across files and the merge stage owns all shared state.
type Runner struct {
	cfg *config.Config
	log *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log}
}

type fileOutcome struct {
	path   string
	parsed *ingest.ParseResult
	err    error
}

// Run ingests the given source files and reduces them into aggregated
// series. Per-file errors isolate the file and never abort the batch.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	return r.run(ctx, paths, Options{MoveFiles: true})
}

// RunWith is Run with explicit options.
func (r *Runner) RunWith(ctx context.Context, paths []string, opt Options) (*Result, error) {
	return r.run(ctx, paths, opt)
}

func (r *Runner) run(ctx context.Context, paths []string, opt Options) (*Result, error) {
	cache, err := ingest.OpenHashCache(r.cfg.Paths.HashCachePath)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	logs, err := ingest.OpenRunLogs(r.cfg.Paths.LogDir)
	if err != nil {
		return nil, err
	}
	defer logs.Close()

	outcomes := r.parseAll(ctx, paths)

	res := &Result{PerMeter: make(map[string]model.MeterSeries)}
	dedup := ingest.NewDeduper(logs)

	var singlePhase []model.Reading
	siteReadings := make(map[string][]model.Reading)

	for _, out := range outcomes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr := FileResult{Path: out.path}

		if out.err != nil {
			// Unreadable or malformed file: logged and excluded from the
			// cache update so the next run retries it.
			fr.Status = StatusFailed
			fr.Err = out.err.Error()
			if lerr := logs.Errors.Printf("%s,FAILED TO PARSE FILE: %s", filepath.Base(out.path), out.err); lerr != nil {
				return nil, lerr
			}
			r.log.Warn("file failed", "path", out.path, "err", out.err)
			res.Files = append(res.Files, fr)
			continue
		}

		parsed := out.parsed
		fr.Source = parsed.Source

		if rec := ingest.CheckSequence(out.path, parsed.Readings); rec != nil {
			fr.Status = StatusQuarantined
			fr.Quarantine = rec
			fr.Err = (&ingest.SequenceError{
				Path:     out.path,
				RecordID: rec.RecordID,
				Index:    rec.FailureIndex,
				Expected: rec.Expected,
				Actual:   rec.Actual,
			}).Error()
			if opt.MoveFiles {
				if _, qerr := ingest.Quarantine(out.path, r.cfg.Paths.QuarantineDir, rec); qerr != nil {
					fr.Err = qerr.Error()
				}
			}
			if lerr := logs.Errors.Printf("NON-SEQUENTIAL TIMESTAMPS,%s\n  context:\n    %s",
				fr.Err, strings.Join(rec.Context, "\n    ")); lerr != nil {
				return nil, lerr
			}
			r.log.Warn("quarantined", "path", out.path, "record", rec.RecordID)
			res.Quarantined = append(res.Quarantined, *rec)
			res.Files = append(res.Files, fr)
			continue
		}

		if prev, seen, serr := cache.Seen(parsed.Source.ContentHash); serr != nil {
			return nil, serr
		} else if seen {
			// Idempotent re-run: rows still merge (the dedup map keeps the
			// first-seen copy), but the file is not re-counted.
			fr.Status = StatusAlreadySeen
			r.log.Info("already processed (appending)", "path", out.path, "first_seen", prev)
		} else {
			fr.Status = StatusAdmitted
			res.RowCount += parsed.Source.RowCount
			res.RowsDropped += parsed.Source.RowsDropped
		}

		for _, reading := range parsed.Readings {
			kept, derr := dedup.Add(reading, out.path)
			if derr != nil {
				return nil, derr
			}
			if !kept {
				continue
			}
			if reading.Phases != nil {
				siteReadings[reading.MeterID] = append(siteReadings[reading.MeterID], reading)
			} else {
				singlePhase = append(singlePhase, reading)
			}
		}

		cache.Stage(parsed.Source.ContentHash, out.path)

		if opt.MoveFiles && parsed.Kind == ingest.KindStartEnd && fr.Status == StatusAdmitted {
			if dest, aerr := ingest.Archive(out.path, r.cfg.Paths.ArchiveDir, parsed.Header, parsed.Readings); aerr == nil {
				fr.ArchivedTo = dest
			} else {
				r.log.Warn("archive failed", "path", out.path, "err", aerr)
			}
		}
		res.Files = append(res.Files, fr)
	}

	res.Collisions = dedup.Collisions()

	interval := r.cfg.Interval()
	if len(singlePhase) > 0 {
		res.PerMeter = profile.ResampleByMeter(singlePhase, interval)
		perMeter := make([]model.MeterSeries, 0, len(res.PerMeter))
		for _, s := range res.PerMeter {
			perMeter = append(perMeter, s)
		}
		res.System = profile.AggregateSystem(perMeter)
	}
	if len(siteReadings) > 0 {
		names := make([]string, 0, len(siteReadings))
		for name := range siteReadings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			res.Sites = append(res.Sites, profile.BuildSiteSeries(siteReadings[name], r.siteOptions(name)))
		}
		res.NetSystem = profile.AggregateNet(res.Sites)

		// Recorder-only batches still feed factor analysis: project the net
		// series onto the kW path.
		if len(singlePhase) == 0 {
			perMeter := make([]model.MeterSeries, 0, len(res.Sites))
			for _, s := range res.Sites {
				ms := profile.ToMeterSeries(s)
				res.PerMeter[ms.MeterID] = ms
				perMeter = append(perMeter, ms)
			}
			res.System = profile.AggregateSystem(perMeter)
		}
	}

	if err := cache.Flush(); err != nil {
		return nil, err
	}
	return res, nil
}

// parseAll fans the parse stage out across source files. No cross-file state
// is needed until the merge stage, so this is embarrassingly parallel.
func (r *Runner) parseAll(ctx context.Context, paths []string) []fileOutcome {
	workers := r.cfg.Pipeline.ParseWorkers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	outcomes := make([]fileOutcome, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				path := paths[i]
				parsed, err := ingest.ParseFile(path, r.meterHint(path), r.cfg.Pipeline.DroppedRowLimit)
				outcomes[i] = fileOutcome{path: path, parsed: parsed, err: err}
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// meterHint matches a file against the site table by name substring, the way
// recorder exports are named in the field.
func (r *Runner) meterHint(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, s := range r.cfg.Sites {
		if strings.Contains(name, strings.ToLower(s.Name)) {
			return s.Name
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (r *Runner) siteOptions(name string) profile.SiteOptions {
	opt := profile.SiteOptions{Site: name, Multiplier: 1}
	if s, ok := r.cfg.Site(name); ok {
		opt.Meter = s.Meter
		opt.Multiplier = s.Multiplier
		opt.NegateReceived = s.Polarity == "generation" && s.ReceivedSign == "negate"
	}
	return opt
}

// DiscoverCSVs walks dir for .csv source files, skipping prior outputs.
func DiscoverCSVs(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if !strings.HasSuffix(name, ".csv") {
			return nil
		}
		if strings.Contains(name, "_results") || strings.Contains(name, strings.ToLower(ingest.QuarantineSuffix)) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}
