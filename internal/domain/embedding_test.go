package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubEmbedder struct {
	vecs  map[string][]float32
	fails map[string]bool
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.fails[text] {
		return EmbeddingResult{}, fmt.Errorf("embed %q: %w", text, ErrEmbeddingProviderError)
	}
	return EmbeddingResult{Embedding: s.vecs[text], PromptTokens: 2, TotalTokens: 3}, nil
}

func TestBatchFallback(t *testing.T) {
	e := &stubEmbedder{vecs: map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	}}

	var lastDone, lastTotal int
	res, err := BatchFallback(context.Background(), e, []string{"a", "b"}, func(done, total int) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Complete() {
		t.Errorf("expected complete result, %d missing", res.Missing())
	}
	if res.TotalTokens != 6 {
		t.Errorf("expected 6 total tokens, got %d", res.TotalTokens)
	}
	if lastDone != 2 || lastTotal != 2 {
		t.Errorf("expected progress (2, 2), got (%d, %d)", lastDone, lastTotal)
	}
}

func TestBatchFallback_ProviderErrorBecomesMissing(t *testing.T) {
	e := &stubEmbedder{
		vecs:  map[string][]float32{"a": {1}},
		fails: map[string]bool{"b": true},
	}

	res, err := BatchFallback(context.Background(), e, []string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Missing() != 1 {
		t.Errorf("expected 1 missing, got %d", res.Missing())
	}
	if res.Vectors[0] == nil || res.Vectors[1] != nil {
		t.Errorf("expected [present, missing], got %v", res.Vectors)
	}
}

func TestBatchFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &stubEmbedder{vecs: map[string][]float32{"a": {1}}}
	_, err := BatchFallback(ctx, e, []string{"a"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.calls != 0 {
		t.Errorf("expected no embed calls after cancel, got %d", e.calls)
	}
}

func TestIncompleteEmbeddingError(t *testing.T) {
	err := NewIncompleteEmbedding(SideDocuments)
	if !errors.Is(err, ErrEmbeddingIncomplete) {
		t.Fatal("expected errors.Is match on ErrEmbeddingIncomplete")
	}
	var incErr *IncompleteEmbeddingError
	if !errors.As(err, &incErr) || incErr.Side != SideDocuments {
		t.Fatalf("expected documents side, got %v", err)
	}
}
