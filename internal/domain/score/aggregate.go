package score

import (
	"fmt"
	"sort"
)

// Aggregator reduces a per-word score row to one document-level score.
type Aggregator string

// Aggregation function constants.
const (
	Sum    Aggregator = "sum"
	Max    Aggregator = "max"
	Min    Aggregator = "min"
	Mean   Aggregator = "mean"
	Median Aggregator = "median"
)

// DefaultAggregator is used when a request does not pick one.
const DefaultAggregator = Mean

// IsValid checks if the aggregator is one of the supported values.
func (a Aggregator) IsValid() bool {
	switch a {
	case Sum, Max, Min, Mean, Median:
		return true
	default:
		return false
	}
}

// ParseAggregator validates a string as an aggregation function name.
func ParseAggregator(s string) (Aggregator, error) {
	a := Aggregator(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unsupported aggregation %q", s)
	}
	return a, nil
}

// Apply reduces a row of per-word scores to a single float64.
// An empty row reduces to 0; callers reject empty word lists upstream,
// so this only covers the degenerate all-filtered case.
func (a Aggregator) Apply(row []float64) float64 {
	if len(row) == 0 {
		return 0
	}
	switch a {
	case Sum:
		var s float64
		for _, v := range row {
			s += v
		}
		return s
	case Max:
		m := row[0]
		for _, v := range row[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case Min:
		m := row[0]
		for _, v := range row[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case Mean:
		var s float64
		for _, v := range row {
			s += v
		}
		return s / float64(len(row))
	case Median:
		sorted := make([]float64, len(row))
		copy(sorted, row)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	default:
		return 0
	}
}
