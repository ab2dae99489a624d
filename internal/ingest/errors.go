package ingest

import (
	"fmt"
	"time"
)

// FormatError means the file's header or shape does not match any supported
// source layout. Fatal for the file.
type FormatError struct {
	Path   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Detail)
}

// IntegrityError means too many individual rows failed to parse; the file is
// rejected rather than silently losing data.
type IntegrityError struct {
	Path    string
	Dropped int
	Limit   int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error in %s: %d rows dropped (limit %d)", e.Path, e.Dropped, e.Limit)
}

// SequenceError means consecutive interval windows are not contiguous. Fatal
// for the file; triggers quarantine, not fatal for the batch.
type SequenceError struct {
	Path     string
	RecordID string
	Index    int
	Expected time.Time
	Actual   time.Time
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence error in %s at record %s: expected %s, got %s",
		e.Path, e.RecordID, e.Expected.Format(timeLayoutStartEnd), e.Actual.Format(timeLayoutStartEnd))
}
