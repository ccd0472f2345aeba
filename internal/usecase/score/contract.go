package score

import (
	"context"

	"github.com/kailas-cloud/docscore/internal/domain"
)

// BatchEmbedder vectorizes texts in bulk. A nil entry in the returned
// vectors marks an item the provider could not embed.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string, progress domain.ProgressFunc) (domain.BatchEmbeddingResult, error)
}

// WordNormalizer applies the corpus preprocessing to a raw word list.
// Token filters and n-gram joining are deliberately not applied to words.
type WordNormalizer interface {
	NormalizeWords(words []string) []string
}
