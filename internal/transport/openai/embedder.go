// Package openai implements the embedding provider over the OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/metrics"
)

const defaultBatchConcurrency = 4

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client       *openai.Client
	model        openai.EmbeddingModel
	dimensions   int
	maxBatchSize int
	provider     string
	logger       *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Dimensions   int
	MaxBatchSize int
	Provider     string
	Logger       *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 64
	}

	return &Embedder{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        openai.EmbeddingModel(cfg.Model),
		dimensions:   cfg.Dimensions,
		maxBatchSize: maxBatch,
		provider:     cfg.Provider,
		logger:       cfg.Logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vectors, usagePrompt, usageTotal, err := e.createEmbeddings(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if vectors[0] == nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    vectors[0],
		PromptTokens: usagePrompt,
		TotalTokens:  usageTotal,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Texts are split into chunks of
// MaxBatchSize embedded concurrently; items the backend leaves out of a
// response come back as nil vectors. A failed chunk marks all of its items
// missing instead of failing the whole batch, so one flaky call degrades to
// a recoverable partial result.
func (e *Embedder) BatchEmbed(
	ctx context.Context, texts []string, progress domain.ProgressFunc,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{Vectors: [][]float32{}}, nil
	}

	vectors := make([][]float32, len(texts))

	var mu sync.Mutex
	var promptTokens, totalTokens, done int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)

	for start := 0; start < len(texts); start += e.maxBatchSize {
		start := start
		end := min(start+e.maxBatchSize, len(texts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			chunk, prompt, total, err := e.createEmbeddings(gctx, texts[start:end])
			if err != nil {
				if errors.Is(err, domain.ErrEmbeddingProviderError) {
					// Chunk items stay nil; the caller decides whether
					// a partial result is usable.
					if e.logger != nil {
						e.logger.Warn("Embedding chunk failed",
							zap.Int("start", start),
							zap.Int("end", end),
							zap.Error(err),
						)
					}
					return nil
				}
				return err
			}

			mu.Lock()
			copy(vectors[start:end], chunk)
			promptTokens += prompt
			totalTokens += total
			done += end - start
			doneNow := done
			mu.Unlock()

			if progress != nil {
				progress(doneNow, len(texts))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}

	return domain.BatchEmbeddingResult{
		Vectors:      vectors,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// createEmbeddings runs one API call, mapping response items back to their
// input positions. Missing positions stay nil.
func (e *Embedder) createEmbeddings(
	ctx context.Context, texts []string,
) (vectors [][]float32, promptTokens, totalTokens int, err error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
		return nil, 0, 0, parseAPIError(err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	promptTokens = resp.Usage.PromptTokens
	totalTokens = resp.Usage.TotalTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(totalTokens))
	}

	vectors = make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < len(vectors) && len(item.Embedding) > 0 {
			vectors[item.Index] = item.Embedding
		}
	}
	return vectors, promptTokens, totalTokens, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProviderError.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
