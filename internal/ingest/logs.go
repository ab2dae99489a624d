package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Domain log filenames. These are append-only artifacts read by analysts,
// separate from the structured process log.
const (
	DuplicatesLogName = "process-data-duplicates.log"
	ErrorsLogName     = "process-data-error.log"
)

// AppendLog is an append-only text log file.
type AppendLog struct {
	f *os.File
}

func openAppendLog(path string) (*AppendLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AppendLog{f: f}, nil
}

func (l *AppendLog) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(l.f, format+"\n", args...)
	return err
}

func (l *AppendLog) Close() error { return l.f.Close() }

// RunLogs bundles the duplicate and error logs for one pipeline run.
type RunLogs struct {
	Duplicates *AppendLog
	Errors     *AppendLog
}

// OpenRunLogs opens both domain logs under logDir, creating it if needed.
func OpenRunLogs(logDir string) (*RunLogs, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	dup, err := openAppendLog(filepath.Join(logDir, DuplicatesLogName))
	if err != nil {
		return nil, err
	}
	errs, err := openAppendLog(filepath.Join(logDir, ErrorsLogName))
	if err != nil {
		dup.Close()
		return nil, err
	}
	return &RunLogs{Duplicates: dup, Errors: errs}, nil
}

func (l *RunLogs) Close() error {
	derr := l.Duplicates.Close()
	eerr := l.Errors.Close()
	if derr != nil {
		return derr
	}
	return eerr
}
