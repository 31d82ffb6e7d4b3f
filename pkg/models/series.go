package models

import "strconv"

// SeriesLength is the number of yearly points in a cost projection.
const SeriesLength = 10

// DefaultStartYear is the first year of the projection when none is configured.
const DefaultStartYear = 2025

// CostSeries is a ten-year projection of annual electricity cost with and
// without solar. After values may be negative (net feed-in credit).
type CostSeries struct {
	Years       []string  `json:"years"        yaml:"years"        toml:"years"`
	Before      []float64 `json:"before_costs" yaml:"before_costs" toml:"before_costs"`
	After       []float64 `json:"after_costs"  yaml:"after_costs"  toml:"after_costs"`
	BeforeTotal float64   `json:"before_total" yaml:"before_total" toml:"before_total"`
	AfterTotal  float64   `json:"after_total"  yaml:"after_total"  toml:"after_total"`
}

// YearLabels returns n consecutive year labels starting at start.
func YearLabels(start, n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = strconv.Itoa(start + i)
	}
	return labels
}

// Sum adds up a series.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
