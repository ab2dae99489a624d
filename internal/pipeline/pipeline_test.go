package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-profiler/internal/config"
	"load-profiler/internal/ingest"
)

const meterASample = `meter,date,time,kw
M1,2023-01-01,00:00:00.000,1.0
M1,2023-01-01,00:15:00.000,2.0
M1,2023-01-01,00:30:00.000,3.0
M1,2023-01-01,00:45:00.000,4.0
`

const meterBSample = `meter,date,time,kw
M2,2023-01-01,00:00:00.000,4.0
M2,2023-01-01,00:15:00.000,3.0
`

const recorderSample = `Recorder Export v2
Record No.,Start Time,End Time,-1-,-2-,-3-,-4-
1,1/1/23 00:00:00,1/1/23 00:15:00,100,-5,110,-6
2,1/1/23 00:15:00,1/1/23 00:30:00,120,-4,130,-5
`

const recorderGapSample = `Recorder Export v2
Record No.,Start Time,End Time,-1-,-2-,-3-,-4-
1,1/1/23 00:00:00,1/1/23 00:15:00,100,-5,110,-6
2,1/1/23 01:00:00,1/1/23 01:15:00,120,-4,130,-5
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Pipeline.ParseWorkers = 2
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ArchiveDir = filepath.Join(dir, "archive")
	cfg.Paths.QuarantineDir = filepath.Join(dir, "quarantine")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.HashCachePath = filepath.Join(dir, "hashes")
	require.NoError(t, os.MkdirAll(cfg.Paths.DataDir, 0o755))
	return cfg
}

func writeSource(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.DataDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunSinglePhaseAggregation(t *testing.T) {
	cfg := testConfig(t)
	a := writeSource(t, cfg, "meter-a.csv", meterASample)
	b := writeSource(t, cfg, "meter-b.csv", meterBSample)

	res, err := New(cfg, nil).RunWith(context.Background(), []string{a, b}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	for _, f := range res.Files {
		assert.Equal(t, StatusAdmitted, f.Status)
	}
	assert.Equal(t, 6, res.RowCount)
	assert.Equal(t, 0, res.RowsDropped)

	require.Len(t, res.PerMeter, 2)
	require.Len(t, res.System.Buckets, 4)
	assert.Equal(t, 5.0, res.System.Buckets[0].TotalKW) // 1 + 4
	assert.Equal(t, 5.0, res.System.Buckets[1].TotalKW) // 2 + 3
	assert.Equal(t, 3.0, res.System.Buckets[2].TotalKW) // M2 absent, contributes 0
	assert.Equal(t, 4.0, res.System.Buckets[3].TotalKW)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	cfg := testConfig(t)
	a := writeSource(t, cfg, "meter-a.csv", meterASample)

	res1, err := New(cfg, nil).RunWith(context.Background(), []string{a}, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusAdmitted, res1.Files[0].Status)
	assert.Equal(t, 4, res1.RowCount)

	res2, err := New(cfg, nil).RunWith(context.Background(), []string{a}, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadySeen, res2.Files[0].Status)
	assert.Equal(t, 0, res2.RowCount)

	// Rows still merge, so derived series match the first run.
	assert.Equal(t, res1.System.Buckets, res2.System.Buckets)
}

func TestRunDuplicateRowsAcrossFiles(t *testing.T) {
	cfg := testConfig(t)
	a := writeSource(t, cfg, "meter-a.csv", meterASample)
	// Same rows under a different preamble-free name: same keys, same bytes
	// per row, different file hash.
	dup := writeSource(t, cfg, "meter-a-resend.csv", meterASample+"M1,2023-01-02,00:00:00.000,9.0\n")

	res, err := New(cfg, nil).RunWith(context.Background(), []string{a, dup}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Collisions, 4)
	for _, col := range res.Collisions {
		assert.Equal(t, ingest.ClassOverlap, col.Class)
	}
	// The colliding rows count once; the extra day adds one bucket.
	assert.Len(t, res.System.Buckets, 5)
	assert.Equal(t, 1.0, res.System.Buckets[0].TotalKW)
}

func TestRunConflictingRowIsDuplicate(t *testing.T) {
	cfg := testConfig(t)
	a := writeSource(t, cfg, "meter-a.csv", meterASample)
	conflict := writeSource(t, cfg, "meter-a-late.csv", `meter,date,time,kw
M1,2023-01-01,00:00:00.000,99.0
`)

	res, err := New(cfg, nil).RunWith(context.Background(), []string{a, conflict}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Collisions, 1)
	assert.Equal(t, ingest.ClassDuplicate, res.Collisions[0].Class)
	// First-seen value wins.
	assert.Equal(t, 1.0, res.System.Buckets[0].TotalKW)
}

func TestRunQuarantinesGappedRecorderFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sites = []config.SiteConfig{{
		Name: "substation-7", Meter: "M7", Multiplier: 1,
		Polarity: "load", ReceivedSign: "as-recorded",
	}}
	bad := writeSource(t, cfg, "substation-7.csv", recorderGapSample)

	res, err := New(cfg, nil).RunWith(context.Background(), []string{bad}, Options{MoveFiles: true})
	require.NoError(t, err)

	require.Len(t, res.Quarantined, 1)
	assert.Equal(t, StatusQuarantined, res.Files[0].Status)
	// Nothing from the file reaches the output.
	assert.Empty(t, res.Sites)
	assert.Equal(t, 0, res.RowCount)

	moved := res.Quarantined[0].MovedTo
	require.NotEmpty(t, moved)
	assert.Contains(t, moved, ingest.QuarantineSuffix)
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(moved)
	assert.NoError(t, err)
}

func TestRunArchivesAdmittedRecorderFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sites = []config.SiteConfig{{
		Name: "substation-7", Meter: "M7", Multiplier: 2000,
		Polarity: "load", ReceivedSign: "as-recorded",
	}}
	src := writeSource(t, cfg, "substation-7.csv", recorderSample)

	res, err := New(cfg, nil).RunWith(context.Background(), []string{src}, Options{MoveFiles: true})
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, StatusAdmitted, res.Files[0].Status)
	assert.Equal(t, filepath.Join(cfg.Paths.ArchiveDir, "2023-01", "substation-7.csv"), res.Files[0].ArchivedTo)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	require.Len(t, res.Sites, 1)
	assert.Equal(t, "substation-7", res.Sites[0].Site)
	require.Len(t, res.Sites[0].Buckets, 2)
	assert.InDelta(t, 0.19, res.Sites[0].Buckets[0].MWNet, 1e-12) // (100-5) * 2000 / 1e6
	require.Len(t, res.NetSystem.Buckets, 2)

	// Recorder-only batches still populate the kW path for factor analysis.
	require.Len(t, res.System.Buckets, 2)
	assert.InDelta(t, 190.0, res.System.Buckets[0].TotalKW, 1e-9)
	require.Contains(t, res.PerMeter, "substation-7")
}

func TestRunFailedFileDoesNotAbortBatch(t *testing.T) {
	cfg := testConfig(t)
	good := writeSource(t, cfg, "meter-a.csv", meterASample)
	bad := writeSource(t, cfg, "odd.csv", "timestamp,value\n1,2\n")

	res, err := New(cfg, nil).RunWith(context.Background(), []string{bad, good}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Files, 2)
	assert.Equal(t, StatusFailed, res.Files[0].Status)
	assert.NotEmpty(t, res.Files[0].Err)
	assert.Equal(t, StatusAdmitted, res.Files[1].Status)
	assert.Len(t, res.System.Buckets, 4)

	// The failed file is logged for the analyst.
	raw, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, ingest.ErrorsLogName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "odd.csv")
}

func TestDiscoverCSVsSkipsOutputsAndQuarantine(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "meter-a.csv", meterASample)
	writeSource(t, cfg, "meter-a_RESULTS-LP.csv", "datetime,total_kw\n")
	writeSource(t, cfg, "substation-7_SEQUENCE-ERROR.csv", recorderGapSample)
	writeSource(t, cfg, "notes.txt", "n/a")

	files, err := DiscoverCSVs(cfg.Paths.DataDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "meter-a.csv", filepath.Base(files[0]))
}
