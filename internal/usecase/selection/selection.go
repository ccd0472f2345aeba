// Package selection picks document rows out of a scored corpus.
// The presentation layer owns sorting and filtering; these are pure
// functions over per-document aggregated scores.
package selection

import (
	"fmt"
	"sort"
)

// Method is a document selection strategy.
type Method string

const (
	// None selects nothing.
	None Method = "none"
	// All selects every document.
	All Method = "all"
	// Manual selects explicitly listed row indices.
	Manual Method = "manual"
	// TopN selects the n highest-scoring documents.
	TopN Method = "top_n"
)

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	switch m {
	case None, All, Manual, TopN:
		return true
	default:
		return false
	}
}

// Request describes one selection over a corpus of Total documents.
type Request struct {
	Method Method
	Total  int
	// Manual row indices; out-of-range entries are ignored.
	Indices []int
	// Per-document aggregated scores for TopN.
	Scores []float64
	// N caps the TopN selection.
	N int
}

// Select returns selected row indices in ascending order. None yields
// nil. TopN breaks score ties by row order.
func Select(req Request) ([]int, error) {
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("unsupported selection method %q", req.Method)
	}
	if req.Total <= 0 {
		return nil, nil
	}

	switch req.Method {
	case None:
		return nil, nil
	case All:
		return allRows(req.Total), nil
	case Manual:
		return manualRows(req.Total, req.Indices), nil
	case TopN:
		return topRows(req.Total, req.Scores, req.N), nil
	}
	return nil, nil
}

func allRows(total int) []int {
	rows := make([]int, total)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func manualRows(total int, indices []int) []int {
	seen := make(map[int]bool, len(indices))
	var rows []int
	for _, i := range indices {
		if i < 0 || i >= total || seen[i] {
			continue
		}
		seen[i] = true
		rows = append(rows, i)
	}
	sort.Ints(rows)
	return rows
}

func topRows(total int, scores []float64, n int) []int {
	if n <= 0 {
		return nil
	}
	if n > total {
		n = total
	}

	order := allRows(total)
	sort.SliceStable(order, func(a, b int) bool {
		return scoreAt(scores, order[a]) > scoreAt(scores, order[b])
	})

	rows := append([]int(nil), order[:n]...)
	sort.Ints(rows)
	return rows
}

// scoreAt treats rows beyond the score column as zero-scored.
func scoreAt(scores []float64, i int) float64 {
	if i < len(scores) {
		return scores[i]
	}
	return 0
}
