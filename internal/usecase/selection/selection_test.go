package selection

import (
	"reflect"
	"testing"
)

func TestSelect_None(t *testing.T) {
	rows, err := Select(Request{Method: None, Total: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil selection, got %v", rows)
	}
}

func TestSelect_All(t *testing.T) {
	rows, err := Select(Request{Method: All, Total: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rows, []int{0, 1, 2, 3}) {
		t.Fatalf("expected all rows, got %v", rows)
	}
}

func TestSelect_Manual(t *testing.T) {
	rows, err := Select(Request{
		Method:  Manual,
		Total:   5,
		Indices: []int{3, 2, 3, -1, 99},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rows, []int{2, 3}) {
		t.Fatalf("expected rows [2 3], got %v", rows)
	}
}

func TestSelect_TopN(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5, 0.7, 0.2}

	rows, err := Select(Request{Method: TopN, Total: 5, Scores: scores, N: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rows, []int{1, 2, 3}) {
		t.Fatalf("expected top rows [1 2 3], got %v", rows)
	}
}

func TestSelect_TopN_TiesByRowOrder(t *testing.T) {
	scores := []float64{1, 1, 1, 1, 1}

	rows, err := Select(Request{Method: TopN, Total: 5, Scores: scores, N: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rows, []int{0, 1, 2}) {
		t.Fatalf("expected first rows on ties, got %v", rows)
	}
}

func TestSelect_TopN_NLargerThanCorpus(t *testing.T) {
	rows, err := Select(Request{Method: TopN, Total: 2, Scores: []float64{0.2, 0.8}, N: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rows, []int{0, 1}) {
		t.Fatalf("expected all rows, got %v", rows)
	}
}

func TestSelect_TopN_ZeroN(t *testing.T) {
	rows, err := Select(Request{Method: TopN, Total: 3, Scores: []float64{1, 2, 3}, N: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil for n=0, got %v", rows)
	}
}

func TestSelect_InvalidMethod(t *testing.T) {
	_, err := Select(Request{Method: Method("best"), Total: 3})
	if err == nil {
		t.Fatal("expected error for unsupported method")
	}
}

func TestSelect_EmptyCorpus(t *testing.T) {
	rows, err := Select(Request{Method: All, Total: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil for empty corpus, got %v", rows)
	}
}
