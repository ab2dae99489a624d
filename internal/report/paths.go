package report

import (
	"path/filepath"
	"strings"
)

// Output naming conventions, derived from the input filename.
func base(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

func ResultsPath(input string) string     { return base(input) + "_RESULTS.txt" }
func LoadProfilePath(input string) string { return base(input) + "_RESULTS-LP.csv" }
func PeakPath(input string) string        { return base(input) + "_peak.csv" }
func FactorsPath(input string) string     { return base(input) + "_factors.csv" }
func NoLoadPath(input string) string      { return base(input) + "_NO-LOAD.csv" }
