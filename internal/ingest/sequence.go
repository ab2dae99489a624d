package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"load-profiler/internal/model"
)

// QuarantineSuffix marks files moved aside for non-contiguous timestamps.
const QuarantineSuffix = "_SEQUENCE-ERROR"

const contextRows = 4

// CheckSequence verifies that each reading's end-of-interval timestamp
// equals the next reading's start. Only meaningful for start/end sources;
// single-value sources pass vacuously. Returns nil when the file is
// contiguous.
func CheckSequence(path string, readings []model.Reading) *model.QuarantineRecord {
	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		if prev.End.IsZero() {
			return nil
		}
		if prev.End.Equal(cur.Timestamp) {
			continue
		}
		rec := &model.QuarantineRecord{
			SourcePath:   path,
			RecordID:     recordID(cur),
			FailureIndex: i,
			Expected:     prev.End,
			Actual:       cur.Timestamp,
		}
		lo := i - contextRows
		if lo < 0 {
			lo = 0
		}
		hi := i + contextRows + 1
		if hi > len(readings) {
			hi = len(readings)
		}
		for _, r := range readings[lo:hi] {
			rec.Context = append(rec.Context, fmt.Sprintf("%s, %s -> %s",
				recordID(r),
				r.Timestamp.Format(timeLayoutStartEnd),
				r.End.Format(timeLayoutStartEnd)))
		}
		return rec
	}
	return nil
}

func recordID(r model.Reading) string {
	if len(r.Raw) > 0 {
		return r.Raw[0]
	}
	return r.Timestamp.Format(timeLayoutStartEnd)
}

// Quarantine moves the whole offending file into quarantineDir with the
// sequence-error suffix. The file is never split or partially admitted.
func Quarantine(path, quarantineDir string, rec *model.QuarantineRecord) (string, error) {
	if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	dest := filepath.Join(quarantineDir, strings.TrimSuffix(name, ext)+QuarantineSuffix+ext)
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	rec.MovedTo = dest
	return dest, nil
}

// Archive rewrites an admitted start/end file as cleaned CSV (header plus
// validated rows) under a YYYY-MM folder keyed by its first start timestamp,
// then removes the original.
func Archive(path, archiveDir string, header []string, readings []model.Reading) (string, error) {
	if len(readings) == 0 {
		return "", fmt.Errorf("no readings to archive from %s", path)
	}
	folder := filepath.Join(archiveDir, readings[0].Timestamp.Format("2006-01"))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(folder, filepath.Base(path))

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return "", err
		}
	}
	for _, r := range readings {
		if err := w.Write(r.Raw); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return "", err
	}
	return dest, nil
}
