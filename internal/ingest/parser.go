package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"load-profiler/internal/model"
)

// Source layouts. Single-phase files carry one read time and one kW value
// per row; start/end files come from multi-phase recorders and carry
// delivered/received kW and kVA registers with explicit interval bounds.
type SourceKind string

const (
	KindSinglePhase SourceKind = "single-phase"
	KindStartEnd    SourceKind = "start-end"
)

const (
	headerSinglePhase = "meter,date,time,kw"
	preambleMarker    = "Record No."

	timeLayoutSinglePhase = "2006-01-02 15:04:05.000"
	timeLayoutStartEnd    = "1/2/06 15:04:05"
)

// ParseResult is the outcome of parsing one source file.
type ParseResult struct {
	Kind     SourceKind
	Source   model.SourceFile
	Readings []model.Reading

	// Header is the canonical column set for start/end sources, after the
	// positional markers are renamed. Nil for single-phase sources.
	Header []string
}

// ParseFile reads and parses one source file. droppedLimit bounds how many
// individually-bad rows may be dropped before the whole file is rejected.
// meterHint names the meter for start/end sources, whose rows carry no meter
// column of their own.
func ParseFile(path, meterHint string, droppedLimit int) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path, meterHint, droppedLimit)
}

// Parse parses raw file content. Pure: no filesystem side effects beyond
// what the caller already did.
func Parse(data []byte, path, meterHint string, droppedLimit int) (*ParseResult, error) {
	// Strip a UTF-8 BOM; recorder exports carry one.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	first := strings.TrimSpace(string(firstLine))

	res := &ParseResult{
		Source: model.SourceFile{
			Path:        path,
			ContentHash: HashBytes(data),
		},
	}

	var err error
	switch {
	case first == headerSinglePhase:
		res.Kind = KindSinglePhase
		err = parseSinglePhase(res, data, path, droppedLimit)
	case bytes.Contains(data, []byte(preambleMarker)):
		res.Kind = KindStartEnd
		err = parseStartEnd(res, data, path, meterHint, droppedLimit)
	default:
		return nil, &FormatError{Path: path, Detail: "unrecognized header: " + first}
	}
	if err != nil {
		return nil, err
	}

	if n := len(res.Readings); n > 0 {
		res.Source.FirstTimestamp = res.Readings[0].Timestamp
		last := res.Readings[n-1]
		if !last.End.IsZero() {
			res.Source.LastTimestamp = last.End
		} else {
			res.Source.LastTimestamp = last.Timestamp
		}
	}
	return res, nil
}

func parseSinglePhase(res *ParseResult, data []byte, path string, droppedLimit int) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	// Header already matched byte-for-byte; consume it.
	if _, err := r.Read(); err != nil {
		return &FormatError{Path: path, Detail: "unreadable header"}
	}

	dropped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			if dropped > droppedLimit {
				return &IntegrityError{Path: path, Dropped: dropped, Limit: droppedLimit}
			}
			continue
		}
		res.Source.RowCount++
		if len(row) < 4 {
			dropped++
			if dropped > droppedLimit {
				return &IntegrityError{Path: path, Dropped: dropped, Limit: droppedLimit}
			}
			continue
		}
		meter := strings.TrimSpace(row[0])
		ts, terr := time.Parse(timeLayoutSinglePhase, strings.TrimSpace(row[1])+" "+strings.TrimSpace(row[2]))
		kw, kerr := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if terr != nil || kerr != nil {
			dropped++
			if dropped > droppedLimit {
				return &IntegrityError{Path: path, Dropped: dropped, Limit: droppedLimit}
			}
			continue
		}
		res.Readings = append(res.Readings, model.Reading{
			MeterID:   meter,
			Timestamp: ts,
			KW:        kw,
			Raw:       trimAll(row),
		})
	}
	res.Source.RowsDropped = dropped
	return nil
}

func parseStartEnd(res *ParseResult, data []byte, path, meterHint string, droppedLimit int) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	// Skip the preamble until the header row, renaming the positional
	// register markers as we go.
	var header []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return &FormatError{Path: path, Detail: "no " + preambleMarker + " header row"}
		}
		if err != nil {
			continue
		}
		row = trimAll(row)
		if len(row) > 0 && strings.HasPrefix(row[0], preambleMarker) {
			header = renameRegisters(row)
			break
		}
	}

	idx := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		return -1
	}
	startCol, endCol := idx("Start Time"), idx("End Time")
	kwDelCol, kwRecCol := idx("kw_del"), idx("kw_rec")
	kvaDelCol, kvaRecCol := idx("kva_del"), idx("kva_rec")
	if startCol < 0 || endCol < 0 || kwDelCol < 0 || kwRecCol < 0 || kvaDelCol < 0 || kvaRecCol < 0 {
		return &FormatError{Path: path, Detail: "header missing required start/end or register columns"}
	}

	dropped := 0
	drop := func() error {
		dropped++
		if dropped > droppedLimit {
			return &IntegrityError{Path: path, Dropped: dropped, Limit: droppedLimit}
		}
		return nil
	}

	maxCol := startCol
	for _, c := range []int{endCol, kwDelCol, kwRecCol, kvaDelCol, kvaRecCol} {
		if c > maxCol {
			maxCol = c
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if derr := drop(); derr != nil {
				return derr
			}
			continue
		}
		row = trimAll(row)
		if len(row) <= maxCol || row[startCol] == "" || row[endCol] == "" {
			// Trailing summary/blank rows in recorder exports are not data.
			continue
		}
		res.Source.RowCount++

		start, serr := time.Parse(timeLayoutStartEnd, row[startCol])
		end, eerr := time.Parse(timeLayoutStartEnd, row[endCol])
		if serr != nil || eerr != nil {
			if derr := drop(); derr != nil {
				return derr
			}
			continue
		}
		kwDel, e1 := strconv.ParseFloat(row[kwDelCol], 64)
		kwRec, e2 := strconv.ParseFloat(row[kwRecCol], 64)
		kvaDel, e3 := strconv.ParseFloat(row[kvaDelCol], 64)
		kvaRec, e4 := strconv.ParseFloat(row[kvaRecCol], 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			if derr := drop(); derr != nil {
				return derr
			}
			continue
		}

		res.Readings = append(res.Readings, model.Reading{
			MeterID:   meterHint,
			Timestamp: start,
			End:       end,
			Phases: &model.PhaseValues{
				KWDel:  kwDel,
				KWRec:  kwRec,
				KVADel: kvaDel,
				KVARec: kvaRec,
			},
			Raw: row,
		})
	}
	res.Source.RowsDropped = dropped
	res.Header = header
	return nil
}

// renameRegisters maps the recorder's positional register markers to the
// canonical column names.
func renameRegisters(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		switch h {
		case "-1-":
			out[i] = "kw_del"
		case "-2-":
			out[i] = "kw_rec"
		case "-3-":
			out[i] = "kva_del"
		case "-4-":
			out[i] = "kva_rec"
		default:
			out[i] = h
		}
	}
	return out
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
