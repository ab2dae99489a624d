package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"load-profiler/internal/model"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load the site table from a separate YAML (e.g. sites.yaml).
	// If both SitesFile and Sites are provided, Sites entries override
	// same-named entries from SitesFile.
	SitesFile string       `yaml:"sites_file"`
	Sites     []SiteConfig `yaml:"sites"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Paths    PathsConfig    `yaml:"paths"`
}

// SiteConfig is the per-site metadata needed to merge a multi-phase
// recorder export: which meter it maps to, the CT/PT multiplier, and the
// sign convention for received power.
type SiteConfig struct {
	Name       string  `yaml:"name"`
	Meter      string  `yaml:"meter"`
	Multiplier float64 `yaml:"multiplier"`

	// Polarity is "load" or "generation".
	Polarity string `yaml:"polarity"`

	// ReceivedSign is "as-recorded" or "negate". Only consulted for
	// generation sites; sites already exported with negative received
	// registers declare "as-recorded".
	ReceivedSign string `yaml:"received_sign"`
}

type PipelineConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	DroppedRowLimit int `yaml:"dropped_row_limit"`
	ParseWorkers    int `yaml:"parse_workers"`
}

type AnalysisConfig struct {
	DemandPolicy   string  `yaml:"demand_policy"`
	ScaleFactor    float64 `yaml:"scale_factor"`
	TransformerKVA float64 `yaml:"transformer_kva"`
}

type PathsConfig struct {
	DataDir       string `yaml:"data_dir"`
	ArchiveDir    string `yaml:"archive_dir"`
	QuarantineDir string `yaml:"quarantine_dir"`
	LogDir        string `yaml:"log_dir"`
	HashCachePath string `yaml:"hash_cache_path"`
}

// Load reads, merges, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not default or validate
// it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If sites_file is set, load it and overlay any explicit entries from
	// c.Sites on top.
	if c.SitesFile != "" {
		sitesPath := c.SitesFile
		if !filepath.IsAbs(sitesPath) {
			// Prefer interpreting relative paths as relative to the config
			// file directory, falling back to the path as given.
			cand := filepath.Join(filepath.Dir(path), sitesPath)
			if _, err := os.Stat(cand); err == nil {
				sitesPath = cand
			}
		}
		loaded, err := loadSitesFile(sitesPath)
		if err != nil {
			return nil, err
		}
		c.Sites = MergeSites(loaded, c.Sites)
	}
	return &c, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Pipeline.IntervalMinutes == 0 {
		c.Pipeline.IntervalMinutes = 15
	}
	if c.Pipeline.DroppedRowLimit == 0 {
		c.Pipeline.DroppedRowLimit = 3
	}
	if c.Pipeline.ParseWorkers == 0 {
		c.Pipeline.ParseWorkers = 4
	}
	if c.Analysis.DemandPolicy == "" {
		c.Analysis.DemandPolicy = string(model.DemandSumOfMaxima)
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Paths.ArchiveDir == "" {
		c.Paths.ArchiveDir = filepath.Join(c.Paths.DataDir, "KW")
	}
	if c.Paths.QuarantineDir == "" {
		c.Paths.QuarantineDir = filepath.Join(c.Paths.ArchiveDir, "ERROR")
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = "logs"
	}
	if c.Paths.HashCachePath == "" {
		c.Paths.HashCachePath = ".processed-hashes"
	}
	for i := range c.Sites {
		if c.Sites[i].Multiplier == 0 {
			c.Sites[i].Multiplier = 1
		}
		if c.Sites[i].Polarity == "" {
			c.Sites[i].Polarity = "load"
		}
		if c.Sites[i].ReceivedSign == "" {
			c.Sites[i].ReceivedSign = "as-recorded"
		}
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Pipeline.IntervalMinutes <= 0 {
		return errors.New("pipeline.interval_minutes must be > 0")
	}
	switch model.DemandFactorPolicy(c.Analysis.DemandPolicy) {
	case model.DemandSumOfMaxima:
	case model.DemandScaledEstimate:
		if c.Analysis.ScaleFactor < 1.0 || c.Analysis.ScaleFactor > 2.0 {
			return fmt.Errorf("analysis.scale_factor %.2f out of range [1.0, 2.0]", c.Analysis.ScaleFactor)
		}
	default:
		return fmt.Errorf("unsupported analysis.demand_policy: %q", c.Analysis.DemandPolicy)
	}
	for _, s := range c.Sites {
		if s.Name == "" {
			return errors.New("site entry missing name")
		}
		switch s.Polarity {
		case "load", "generation":
		default:
			return fmt.Errorf("site %q: unsupported polarity %q", s.Name, s.Polarity)
		}
		switch s.ReceivedSign {
		case "as-recorded", "negate":
		default:
			return fmt.Errorf("site %q: unsupported received_sign %q", s.Name, s.ReceivedSign)
		}
	}
	return nil
}

// Interval returns the bucket width as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Pipeline.IntervalMinutes) * time.Minute
}

// Site looks up a site entry by name.
func (c *Config) Site(name string) (SiteConfig, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteConfig{}, false
}

type sitesFileWrapper struct {
	Sites []SiteConfig `yaml:"sites"`
}

func loadSitesFile(path string) ([]SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w sitesFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return w.Sites, nil
}

// MergeSites overlays entries from override onto base, matched by name.
// Entries only present in override are appended.
func MergeSites(base, override []SiteConfig) []SiteConfig {
	out := make([]SiteConfig, len(base))
	copy(out, base)
	for _, o := range override {
		replaced := false
		for i := range out {
			if out[i].Name == o.Name {
				if o.Meter != "" {
					out[i].Meter = o.Meter
				}
				if o.Multiplier != 0 {
					out[i].Multiplier = o.Multiplier
				}
				if o.Polarity != "" {
					out[i].Polarity = o.Polarity
				}
				if o.ReceivedSign != "" {
					out[i].ReceivedSign = o.ReceivedSign
				}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}
