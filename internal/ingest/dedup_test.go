package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"load-profiler/internal/model"
)

func reading(meter string, ts time.Time, kw float64, raw ...string) model.Reading {
	return model.Reading{MeterID: meter, Timestamp: ts, KW: kw, Raw: raw}
}

func TestDeduperFirstSeenWins(t *testing.T) {
	d := NewDeduper(nil)
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	kept, err := d.Add(reading("M1", ts, 1.5, "M1", "1.5"), "a.csv")
	require.NoError(t, err)
	assert.True(t, kept)

	kept, err = d.Add(reading("M1", ts, 2.5, "M1", "2.5"), "b.csv")
	require.NoError(t, err)
	assert.False(t, kept)

	readings := d.Readings()
	require.Len(t, readings, 1)
	assert.Equal(t, 1.5, readings[0].KW)
}

func TestDeduperClassification(t *testing.T) {
	d := NewDeduper(nil)
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := d.Add(reading("M1", ts, 1.5, "M1", "1.5"), "a.csv")
	require.NoError(t, err)

	// Byte-identical resubmission.
	_, err = d.Add(reading("M1", ts, 1.5, "M1", "1.5"), "a-copy.csv")
	require.NoError(t, err)

	// Same key, conflicting values.
	_, err = d.Add(reading("M1", ts, 9.9, "M1", "9.9"), "c.csv")
	require.NoError(t, err)

	cols := d.Collisions()
	require.Len(t, cols, 2)
	assert.Equal(t, ClassOverlap, cols[0].Class)
	assert.Equal(t, ClassDuplicate, cols[1].Class)
	assert.Equal(t, "c.csv", cols[1].Path)
}

func TestDeduperDistinctKeysKept(t *testing.T) {
	d := NewDeduper(nil)
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	kept, _ := d.Add(reading("M1", ts, 1, "r1"), "a.csv")
	assert.True(t, kept)
	kept, _ = d.Add(reading("M2", ts, 1, "r1"), "a.csv")
	assert.True(t, kept)
	kept, _ = d.Add(reading("M1", ts.Add(15*time.Minute), 1, "r2"), "a.csv")
	assert.True(t, kept)

	assert.Len(t, d.Readings(), 3)
	assert.Empty(t, d.Collisions())
}
