package score

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/domain/corpus"
	domscore "github.com/kailas-cloud/docscore/internal/domain/score"
	"github.com/kailas-cloud/docscore/internal/metrics"
)

// WarnCorpusNotNormalized is the advisory attached when the corpus was
// preprocessed without a token normalization step. Scoring proceeds.
const WarnCorpusNotNormalized = "Corpus is not normalized; apply a token normalizer for best results"

// Request describes one scoring run.
type Request struct {
	Corpus     *corpus.Corpus
	Words      []string
	Methods    []domscore.Method
	Aggregator domscore.Aggregator
	// Normalizer is usually the pipeline the corpus went through.
	// Nil means words are used as given (trimmed).
	Normalizer WordNormalizer
	Progress   domain.ProgressFunc
}

// Column is one scored column: a per-document matrix of per-word scores
// plus the per-document aggregate.
type Column struct {
	Method     domscore.Method
	Name       string
	Matrix     [][]float64
	Aggregated []float64
}

// Result carries scored columns in canonical method order. Warnings are
// advisory: a run with warnings still succeeded for the columns present.
type Result struct {
	Words    []string
	Columns  []Column
	Warnings []string
}

// Column returns the column computed by the given method, if present.
func (r *Result) Column(m domscore.Method) (Column, bool) {
	for _, c := range r.Columns {
		if c.Method == m {
			return c, true
		}
	}
	return Column{}, false
}

// Service computes document scores against a word list.
type Service struct {
	embed      BatchEmbedder
	defaultAgg domscore.Aggregator
	logger     *zap.Logger
}

// New creates a scoring service. embed may be nil if similarity scoring
// is never requested.
func New(embed BatchEmbedder, logger *zap.Logger) *Service {
	return &Service{embed: embed, defaultAgg: domscore.DefaultAggregator, logger: logger}
}

// WithDefaultAggregator sets the aggregator used when a request does not
// name one. Invalid values are ignored.
func (s *Service) WithDefaultAggregator(agg domscore.Aggregator) *Service {
	if agg.IsValid() {
		s.defaultAgg = agg
	}
	return s
}

// Score runs every requested method over the corpus and aggregates each
// per-word row into a per-document score.
//
// Fatal conditions (no result): empty corpus, empty word list, word list
// that normalizes to nothing, embedding provider/budget failures, and
// context cancellation. A partially failed similarity run is not fatal:
// the column is omitted and a warning names the incomplete side.
func (s *Service) Score(ctx context.Context, req *Request) (*Result, error) {
	if req.Corpus == nil || req.Corpus.Len() == 0 {
		return nil, domain.ErrNoDocuments
	}

	agg := req.Aggregator
	if agg == "" {
		agg = s.defaultAgg
	}
	if !agg.IsValid() {
		return nil, fmt.Errorf("unsupported aggregation %q", agg)
	}

	methods := domscore.OrderMethods(req.Methods)
	if len(methods) == 0 {
		methods = []domscore.Method{domscore.WordCount}
	}

	words, err := PrepareWords(req.Words, req.Normalizer)
	if err != nil {
		return nil, err
	}

	result := &Result{Words: words}
	if !req.Corpus.IsNormalized() {
		result.Warnings = append(result.Warnings, WarnCorpusNotNormalized)
	}

	for _, m := range methods {
		start := time.Now()

		matrix, err := s.computeMatrix(ctx, m, req.Corpus, words, req.Progress)

		duration := time.Since(start)

		if err != nil {
			var incomplete *domain.IncompleteEmbeddingError
			if errors.As(err, &incomplete) {
				s.observeRun(m, "incomplete", duration)
				result.Warnings = append(result.Warnings, incompleteWarning(incomplete.Side))
				s.logger.Warn("Similarity column omitted",
					zap.String("side", string(incomplete.Side)),
					zap.Int("documents", req.Corpus.Len()),
					zap.Int("words", len(words)),
				)
				continue
			}
			s.observeRun(m, "error", duration)
			return nil, fmt.Errorf("score %s: %w", m, err)
		}

		s.observeRun(m, "ok", duration)

		result.Columns = append(result.Columns, Column{
			Method:     m,
			Name:       m.ColumnName(),
			Matrix:     matrix,
			Aggregated: aggregateRows(agg, matrix),
		})

		s.logger.Debug("Scoring method completed",
			zap.String("method", string(m)),
			zap.Duration("duration", duration),
			zap.Int("documents", req.Corpus.Len()),
			zap.Int("words", len(words)),
		)
	}

	return result, nil
}

func (s *Service) computeMatrix(
	ctx context.Context, m domscore.Method,
	c *corpus.Corpus, words []string, progress domain.ProgressFunc,
) ([][]float64, error) {
	switch m {
	case domscore.WordCount:
		return frequencyMatrix(ctx, c, words, false)
	case domscore.WordPresence:
		return frequencyMatrix(ctx, c, words, true)
	case domscore.Similarity:
		return s.similarityMatrix(ctx, c, words, progress)
	default:
		return nil, fmt.Errorf("unsupported scoring method %q", m)
	}
}

func (s *Service) observeRun(m domscore.Method, status string, d time.Duration) {
	metrics.ScoringRunsTotal.WithLabelValues(string(m), status).Inc()
	metrics.ScoringRunDuration.WithLabelValues(string(m)).Observe(d.Seconds())
}

func incompleteWarning(side domain.IncompleteSide) string {
	return fmt.Sprintf("Similarity failed: Some %s not embedded; try to rerun scoring", side)
}

// frequencyMatrix counts exact token matches per document and word.
// presence caps each count at 1.
func frequencyMatrix(
	ctx context.Context, c *corpus.Corpus, words []string, presence bool,
) ([][]float64, error) {
	matrix := make([][]float64, c.Len())
	for i, doc := range c.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		counts := make(map[string]int, len(doc.Tokens))
		for _, tok := range doc.Tokens {
			counts[tok]++
		}

		row := make([]float64, len(words))
		for j, w := range words {
			n := counts[w]
			if presence && n > 1 {
				n = 1
			}
			row[j] = float64(n)
		}
		matrix[i] = row
	}
	return matrix, nil
}

// similarityMatrix embeds every word and every document (full text) and
// fills cosine similarities. Words are embedded first; a missing vector
// on either side aborts the whole column.
func (s *Service) similarityMatrix(
	ctx context.Context, c *corpus.Corpus, words []string, progress domain.ProgressFunc,
) ([][]float64, error) {
	if s.embed == nil {
		return nil, fmt.Errorf("%w: no embedder configured", domain.ErrEmbeddingProviderError)
	}

	total := len(words) + c.Len()
	offset := func(done int) domain.ProgressFunc {
		if progress == nil {
			return nil
		}
		return func(d, _ int) { progress(done+d, total) }
	}

	wordRes, err := s.embed.BatchEmbed(ctx, words, offset(0))
	if err != nil {
		return nil, fmt.Errorf("embed words: %w", err)
	}
	if wordRes.Missing() > 0 {
		return nil, domain.NewIncompleteEmbedding(domain.SideWords)
	}

	docRes, err := s.embed.BatchEmbed(ctx, c.Texts(), offset(len(words)))
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if docRes.Missing() > 0 {
		return nil, domain.NewIncompleteEmbedding(domain.SideDocuments)
	}

	// A vector whose dimension disagrees with the rest is as unusable as
	// a missing one; surface it the same way instead of scoring it.
	dim := len(wordRes.Vectors[0])
	for _, v := range wordRes.Vectors {
		if len(v) != dim {
			return nil, domain.NewIncompleteEmbedding(domain.SideWords)
		}
	}
	for _, v := range docRes.Vectors {
		if len(v) != dim {
			return nil, domain.NewIncompleteEmbedding(domain.SideDocuments)
		}
	}

	matrix := make([][]float64, c.Len())
	for i, docVec := range docRes.Vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make([]float64, len(words))
		for j, wordVec := range wordRes.Vectors {
			row[j] = cosineSimilarity(docVec, wordVec)
		}
		matrix[i] = row
	}
	return matrix, nil
}

func aggregateRows(agg domscore.Aggregator, matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		out[i] = agg.Apply(row)
	}
	return out
}
