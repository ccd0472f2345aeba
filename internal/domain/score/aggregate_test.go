package score

import (
	"math"
	"testing"
)

func TestAggregator_Apply(t *testing.T) {
	row := []float64{1, 0, 2}

	tests := []struct {
		agg  Aggregator
		want float64
	}{
		{Sum, 3},
		{Max, 2},
		{Min, 0},
		{Mean, 1},
		{Median, 1},
	}
	for _, tc := range tests {
		t.Run(string(tc.agg), func(t *testing.T) {
			got := tc.agg.Apply(row)
			if got != tc.want {
				t.Errorf("%s(%v) = %v, want %v", tc.agg, row, got, tc.want)
			}
		})
	}
}

func TestAggregator_MedianEvenRow(t *testing.T) {
	got := Median.Apply([]float64{4, 1, 3, 2})
	if got != 2.5 {
		t.Errorf("median of even row = %v, want 2.5", got)
	}
}

func TestAggregator_MedianAllEqual(t *testing.T) {
	got := Median.Apply([]float64{7, 7, 7})
	if got != 7 {
		t.Errorf("median of equal row = %v, want 7", got)
	}
}

func TestAggregator_AllZeroRow(t *testing.T) {
	for _, agg := range []Aggregator{Sum, Max, Min, Mean, Median} {
		got := agg.Apply([]float64{0, 0, 0})
		if got != 0 {
			t.Errorf("%s of zero row = %v, want 0", agg, got)
		}
	}
}

func TestAggregator_EmptyRow(t *testing.T) {
	for _, agg := range []Aggregator{Sum, Max, Min, Mean, Median} {
		got := agg.Apply(nil)
		if got != 0 {
			t.Errorf("%s of empty row = %v, want 0", agg, got)
		}
	}
}

func TestAggregator_Ordering(t *testing.T) {
	// Max >= Mean >= Min for any non-empty row; Sum >= Max for non-negative rows.
	rows := [][]float64{
		{1, 0, 2},
		{0.5},
		{3, 3, 3},
		{0, 0},
	}
	for _, row := range rows {
		maxV, meanV, minV, sumV := Max.Apply(row), Mean.Apply(row), Min.Apply(row), Sum.Apply(row)
		if maxV < meanV || meanV < minV {
			t.Errorf("ordering violated for %v: max=%v mean=%v min=%v", row, maxV, meanV, minV)
		}
		if sumV < maxV {
			t.Errorf("sum < max for non-negative row %v", row)
		}
	}
}

func TestAggregator_MeanIsFloat(t *testing.T) {
	got := Mean.Apply([]float64{1, 2})
	if math.Abs(got-1.5) > 1e-9 {
		t.Errorf("mean = %v, want 1.5", got)
	}
}

func TestParseAggregator(t *testing.T) {
	if _, err := ParseAggregator("mean"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseAggregator("average"); err == nil {
		t.Error("expected error for unknown aggregation")
	}
}
