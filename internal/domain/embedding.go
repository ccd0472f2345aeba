package domain

import (
	"context"
	"errors"
	"fmt"
)

// ProgressFunc reports batch embedding progress. done counts items
// already embedded out of total. Implementations must tolerate a nil func.
type ProgressFunc func(done, total int)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts. Individual items may come back
// missing (nil vector) without failing the whole batch; callers decide how
// to treat partial results.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string, progress ProgressFunc) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries per-item vectors and aggregate token usage.
// A nil entry in Vectors marks an item the backend failed to embed.
type BatchEmbeddingResult struct {
	Vectors      [][]float32
	PromptTokens int
	TotalTokens  int
}

// Missing returns the number of items without a vector.
func (r BatchEmbeddingResult) Missing() int {
	n := 0
	for _, v := range r.Vectors {
		if v == nil {
			n++
		}
	}
	return n
}

// Complete reports whether every item has a vector.
func (r BatchEmbeddingResult) Complete() bool { return r.Missing() == 0 }

// BatchFallback embeds texts one by one through a plain Embedder. Provider
// errors on individual items become missing vectors; context cancellation
// aborts the whole batch.
func BatchFallback(ctx context.Context, e Embedder, texts []string, progress ProgressFunc) (BatchEmbeddingResult, error) {
	vectors := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}

		res, err := e.Embed(ctx, text)
		if err != nil {
			if errors.Is(err, ErrEmbeddingProviderError) {
				vectors[i] = nil
				continue
			}
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		vectors[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens

		if progress != nil {
			progress(i+1, len(texts))
		}
	}

	return BatchEmbeddingResult{
		Vectors:      vectors,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
