package score

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/domain/corpus"
	"github.com/kailas-cloud/docscore/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterScoringMetrics()
	os.Exit(m.Run())
}

// mockBatchEmbedder resolves vectors from a fixed text→vector map.
// Texts absent from the map come back as nil (not embedded).
type mockBatchEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockBatchEmbedder) BatchEmbed(
	ctx context.Context, texts []string, progress domain.ProgressFunc,
) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		vectors[i] = m.vectors[text]
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	return domain.BatchEmbeddingResult{Vectors: vectors, TotalTokens: len(texts)}, nil
}

// blockingEmbedder parks BatchEmbed until released; used by runner tests.
type blockingEmbedder struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingEmbedder() *blockingEmbedder {
	return &blockingEmbedder{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

func (b *blockingEmbedder) BatchEmbed(
	ctx context.Context, texts []string, _ domain.ProgressFunc,
) (domain.BatchEmbeddingResult, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return domain.BatchEmbeddingResult{}, ctx.Err()
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Vectors: vectors}, nil
}

// mockNormalizer applies fn to every word; nil results are dropped by
// returning an empty string.
type mockNormalizer struct {
	fn func(string) string
}

func (m *mockNormalizer) NormalizeWords(words []string) []string {
	var out []string
	for _, w := range words {
		if n := m.fn(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// loremCorpus is the frequency fixture: three documents with known
// counts of "lorem", "ipsum", and "eu".
func loremCorpus(normalized bool) *corpus.Corpus {
	c := &corpus.Corpus{
		Documents: []corpus.Document{
			{
				Title:  "doc1",
				Text:   "Lorem ipsum dolor sit amet, lorem.",
				Tokens: []string{"lorem", "ipsum", "dolor", "sit", "amet", "lorem"},
			},
			{
				Title:  "doc2",
				Text:   "Lorem ipsum consectetur.",
				Tokens: []string{"lorem", "ipsum", "consectetur"},
			},
			{
				Title:  "doc3",
				Text:   "Lorem ipsum eu vulputate.",
				Tokens: []string{"lorem", "ipsum", "eu", "vulputate"},
			},
		},
		Applied: []corpus.StepKind{corpus.KindTokenizer},
	}
	if normalized {
		c.Applied = append(c.Applied, corpus.KindNormalizer)
	}
	return c
}

var loremWords = []string{"lorem", "ipsum", "eu"}

func newTestService(embed BatchEmbedder) *Service {
	return New(embed, zap.NewNop())
}

func floatsAlmostEqual(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v, want %v", got, want)
	}
	const eps = 1e-9
	for i := range want {
		diff := got[i] - want[i]
		if diff < -eps || diff > eps {
			t.Fatalf("value mismatch at %d: got %v, want %v", i, got, want)
		}
	}
}
