package docscore

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	openaiKey     string
	openaiBaseURL string
	model         string
	dimensions    int
	maxBatchSize  int

	embedder Embedder

	cacheAddrs    []string
	cachePassword string
	keyPrefix     string
	cacheTTL      time.Duration

	dailyTokenLimit   int64
	monthlyTokenLimit int64
	rejectOverBudget  bool

	logger *zap.Logger
}

// WithOpenAI configures an OpenAI-compatible embedding backend for
// similarity scoring.
func WithOpenAI(apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiKey = apiKey
		c.model = model
	})
}

// WithBaseURL points the embedding backend at an OpenAI-compatible
// endpoint (Azure, vLLM, Ollama and friends).
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openaiBaseURL = url
	})
}

// WithDimensions requests truncated embedding vectors from the backend.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithMaxBatchSize caps how many texts go to the backend per request.
func WithMaxBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = n
	})
}

// WithEmbedder sets a custom embedding provider. Takes precedence over
// WithOpenAI.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithRedisCache stores embedding vectors in Redis so repeated scoring
// runs skip the backend for texts it has already seen.
func WithRedisCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithCacheTTL bounds the lifetime of cached vectors. Zero means cached
// vectors never expire.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithKeyPrefix namespaces all cache and budget keys. Defaults to "docscore:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithBudget sets daily and monthly embedding token budgets. A limit of
// 0 is unlimited. When reject is false, crossing a limit only logs a
// warning.
func WithBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokenLimit = daily
		c.monthlyTokenLimit = monthly
		c.rejectOverBudget = reject
	})
}

// WithLogger sets the zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}
