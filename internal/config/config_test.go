package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 15, c.Pipeline.IntervalMinutes)
	assert.Equal(t, 3, c.Pipeline.DroppedRowLimit)
	assert.Equal(t, 4, c.Pipeline.ParseWorkers)
	assert.Equal(t, "sum-of-maxima", c.Analysis.DemandPolicy)
	assert.Equal(t, 15*time.Minute, c.Interval())
	require.NoError(t, c.Validate())
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
pipeline:
  interval_minutes: 30
sites:
  - name: alpha
    meter: M1
    multiplier: 2000
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, c.Pipeline.IntervalMinutes)
	assert.Equal(t, 3, c.Pipeline.DroppedRowLimit)

	s, ok := c.Site("alpha")
	require.True(t, ok)
	assert.Equal(t, "M1", s.Meter)
	assert.Equal(t, "load", s.Polarity)
	assert.Equal(t, "as-recorded", s.ReceivedSign)
}

func TestLoadSitesFileOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sites.yaml", `
sites:
  - name: alpha
    meter: M1
    multiplier: 2000
  - name: beta
    meter: M2
    multiplier: 400
`)
	path := writeFile(t, dir, "config.yaml", `
sites_file: sites.yaml
sites:
  - name: alpha
    multiplier: 3000
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Sites, 2)

	alpha, _ := c.Site("alpha")
	assert.Equal(t, 3000.0, alpha.Multiplier)
	assert.Equal(t, "M1", alpha.Meter) // kept from sites file

	beta, _ := c.Site("beta")
	assert.Equal(t, 400.0, beta.Multiplier)
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := Default()
	c.Analysis.DemandPolicy = "guess"
	assert.Error(t, c.Validate())

	c = Default()
	c.Analysis.DemandPolicy = "scaled-estimate"
	c.Analysis.ScaleFactor = 2.5
	assert.Error(t, c.Validate())

	c = Default()
	c.Analysis.DemandPolicy = "scaled-estimate"
	c.Analysis.ScaleFactor = 1.5
	assert.NoError(t, c.Validate())

	c = Default()
	c.Sites = []SiteConfig{{Name: "x", Polarity: "wind", ReceivedSign: "as-recorded", Multiplier: 1}}
	assert.Error(t, c.Validate())
}

func TestMergeSitesAppendsNewEntries(t *testing.T) {
	base := []SiteConfig{{Name: "alpha", Meter: "M1", Multiplier: 1}}
	merged := MergeSites(base, []SiteConfig{
		{Name: "alpha", Polarity: "generation"},
		{Name: "gamma", Meter: "M3", Multiplier: 1},
	})
	require.Len(t, merged, 2)
	assert.Equal(t, "generation", merged[0].Polarity)
	assert.Equal(t, "M1", merged[0].Meter)
	assert.Equal(t, "gamma", merged[1].Name)
}
