package ingest

import (
	"slices"
	"sort"
	"strings"
	"time"

	"load-profiler/internal/model"
)

// Row-collision classifications. An OVERLAP is a byte-identical resubmission
// (benign); a DUPLICATE carries conflicting values for the same key.
type Classification string

const (
	ClassOverlap   Classification = "OVERLAP"
	ClassDuplicate Classification = "DUPLICATE"
)

// Collision records a second row seen for an already-occupied
// (meter, timestamp) key.
type Collision struct {
	Meter     string
	Timestamp time.Time
	Path      string
	Class     Classification
	Row       []string
}

type dedupKey struct {
	meter string
	ts    int64
}

// Deduper keeps the first-seen row for every (meter, timestamp) pair across
// all files in one run, logging collisions as it goes. Single-owner: it is
// only touched from the merge stage.
type Deduper struct {
	seen       map[dedupKey]model.Reading
	collisions []Collision
	logs       *RunLogs
}

func NewDeduper(logs *RunLogs) *Deduper {
	return &Deduper{seen: make(map[dedupKey]model.Reading), logs: logs}
}

// Add offers a reading from sourcePath. It returns true when the reading is
// first-seen and kept; collisions are classified, logged, and dropped.
func (d *Deduper) Add(r model.Reading, sourcePath string) (bool, error) {
	key := dedupKey{meter: r.MeterID, ts: r.Timestamp.Unix()}
	existing, ok := d.seen[key]
	if !ok {
		d.seen[key] = r
		return true, nil
	}

	class := ClassDuplicate
	if slices.Equal(existing.Raw, r.Raw) {
		class = ClassOverlap
	}
	col := Collision{
		Meter:     r.MeterID,
		Timestamp: r.Timestamp,
		Path:      sourcePath,
		Class:     class,
		Row:       r.Raw,
	}
	d.collisions = append(d.collisions, col)
	if d.logs != nil {
		if err := d.logs.Duplicates.Printf("%s,%s,%s,%s ROW: %s",
			col.Meter, col.Timestamp.Format("2006-01-02 15:04:05"), col.Path, col.Class,
			strings.Join(col.Row, ",")); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Readings returns all kept readings ordered by (meter, timestamp).
func (d *Deduper) Readings() []model.Reading {
	out := make([]model.Reading, 0, len(d.seen))
	for _, r := range d.seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeterID != out[j].MeterID {
			return out[i].MeterID < out[j].MeterID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Collisions returns every collision observed this run, in arrival order.
func (d *Deduper) Collisions() []Collision { return d.collisions }
