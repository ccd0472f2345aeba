// Package docscore scores documents against a word list: per-word
// frequency, presence, and embedding similarity, aggregated into one
// score per document.
package docscore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/db"
	dbRedis "github.com/kailas-cloud/docscore/internal/db/redis"
	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/domain/corpus"
	domscore "github.com/kailas-cloud/docscore/internal/domain/score"
	"github.com/kailas-cloud/docscore/internal/metrics"
	"github.com/kailas-cloud/docscore/internal/preprocess"
	"github.com/kailas-cloud/docscore/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/docscore/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docscore/internal/usecase/embedding"
	scoreuc "github.com/kailas-cloud/docscore/internal/usecase/score"
	taguc "github.com/kailas-cloud/docscore/internal/usecase/tag"
)

const defaultReadinessTimeout = 10 * time.Second

// Embedder is the public embedding interface for custom backends.
// Vectors come back in input order; a nil vector marks a text the
// backend could not embed.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is one input document. Tokens may be pre-supplied; otherwise
// a Preprocess spec in the request tokenizes Text.
type Document struct {
	Title  string
	Text   string
	Tokens []string
}

// Preprocess describes the normalization pipeline applied to documents
// and, minus filters and n-grams, to the scored words.
type Preprocess struct {
	Lowercase     bool
	StripAccents  bool
	RemoveURLs    bool
	RemoveHTML    bool
	TokenPattern  string
	Stopwords     []string
	FilterPattern string
	Stem          bool
	NGramMin      int
	NGramMax      int
}

// ScoreRequest asks for documents scored against words.
type ScoreRequest struct {
	Documents []Document
	Words     []string
	// Methods selects scoring columns: "word_count", "word_presence",
	// "similarity". Defaults to word_count.
	Methods []string
	// Aggregation folds per-word scores into one per document: "sum",
	// "max", "min", "mean" (default), "median".
	Aggregation string
	Preprocess  *Preprocess
	// Progress receives (done, total) embedding progress during
	// similarity scoring.
	Progress func(done, total int)
}

// ScoreColumn is one scored column with an aggregated score per document.
type ScoreColumn struct {
	Method string
	Name   string
	Scores []float64
}

// ScoreResult carries the scored columns and any non-fatal warnings.
type ScoreResult struct {
	Words    []string
	Columns  []ScoreColumn
	Warnings []string
}

// Client is the docscore SDK entry point.
type Client struct {
	store  db.Store
	score  *scoreuc.Service
	runner *scoreuc.Runner
	tag    *taguc.Service
	logger *zap.Logger
}

// New creates a docscore Client. Without embedding options only count
// and presence scoring are available.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:    "docscore:",
		maxBatchSize: 64,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("docscore: create cache store: %w", err)
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("docscore: cache store not ready: %w", err)
		}
		store = s
	}

	embedder := buildEmbedder(cfg, store)

	svc := scoreuc.New(embedder, cfg.logger)
	return &Client{
		store:  store,
		score:  svc,
		runner: scoreuc.NewRunner(svc, cfg.logger),
		tag:    taguc.NewService(cfg.logger),
		logger: cfg.logger,
	}, nil
}

func buildEmbedder(cfg *clientConfig, store db.Store) scoreuc.BatchEmbedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.openaiKey == "" && cfg.openaiBaseURL == "" {
		return nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:       cfg.openaiKey,
		BaseURL:      cfg.openaiBaseURL,
		Model:        cfg.model,
		Dimensions:   cfg.dimensions,
		MaxBatchSize: cfg.maxBatchSize,
		Provider:     "openai",
		Logger:       cfg.logger,
	})

	var inner embeddinguc.Provider = base
	if store != nil {
		inner = embcache.New(base, store, cfg.keyPrefix, cfg.cacheTTL, metrics.EmbeddingCacheTotal, cfg.logger)
	}

	var budgetChecker embeddinguc.BudgetChecker
	if cfg.dailyTokenLimit > 0 || cfg.monthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.rejectOverBudget {
			action = embeddinguc.BudgetActionReject
		}
		budget := embeddinguc.NewBudgetTracker(
			"openai", cfg.keyPrefix,
			cfg.dailyTokenLimit, cfg.monthlyTokenLimit,
			action, cfg.logger,
		)
		if store != nil {
			budget.WithStore(context.Background(), store)
		}
		budgetChecker = budget
	}

	return embeddinguc.NewInstrumentedEmbedder(inner, "openai", cfg.model, budgetChecker, cfg.logger)
}

// Close releases all resources.
func (c *Client) Close() {
	c.runner.Cancel()
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks cache store connectivity. Without a cache it is a no-op.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Score runs a scoring request synchronously.
func (c *Client) Score(ctx context.Context, req *ScoreRequest) (*ScoreResult, error) {
	internalReq, err := c.toInternalRequest(req)
	if err != nil {
		return nil, err
	}
	res, err := c.score.Score(ctx, internalReq)
	if err != nil {
		return nil, err
	}
	return toResult(res), nil
}

// ScoreAsync starts a scoring run in the background. Submitting again
// before the previous run finishes cancels it; only the latest run's
// outcome reaches deliver.
func (c *Client) ScoreAsync(ctx context.Context, req *ScoreRequest, deliver func(*ScoreResult, error)) error {
	internalReq, err := c.toInternalRequest(req)
	if err != nil {
		return err
	}
	c.runner.Submit(ctx, internalReq, func(res *scoreuc.Result, err error) {
		if err != nil {
			deliver(nil, err)
			return
		}
		deliver(toResult(res), nil)
	})
	return nil
}

// CancelScoring cancels any in-flight asynchronous scoring run.
func (c *Client) CancelScoring() { c.runner.Cancel() }

// WaitScoring blocks until the latest asynchronous scoring run finishes.
func (c *Client) WaitScoring() { c.runner.Wait() }

// Preprocess runs the normalization pipeline over documents and
// returns them with tokens filled in.
func (c *Client) Preprocess(docs []Document, spec *Preprocess) ([]Document, error) {
	pipeline, err := pipelineFromSpec(spec)
	if err != nil {
		return nil, err
	}
	crp := pipeline.Run(documentsToCorpus(docs))
	out := make([]Document, len(crp.Documents))
	for i, d := range crp.Documents {
		out[i] = Document{Title: d.Title, Text: d.Text, Tokens: d.Tokens}
	}
	return out, nil
}

// Tag annotates document tokens with part-of-speech tags using the
// named tagger ("rule" is built in).
func (c *Client) Tag(ctx context.Context, tagger string, docs []Document) ([]Document, error) {
	in := &corpus.Corpus{
		Documents: documentsToCorpus(docs),
		Applied:   []corpus.StepKind{corpus.KindTokenizer},
	}
	tagged, err := c.tag.Tag(ctx, tagger, in)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(tagged.Documents))
	for i, d := range tagged.Documents {
		out[i] = Document{Title: d.Title, Text: d.Text, Tokens: d.Tokens}
	}
	return out, nil
}

// Taggers lists registered tagger names.
func (c *Client) Taggers() []string { return c.tag.Names() }

func (c *Client) toInternalRequest(req *ScoreRequest) (*scoreuc.Request, error) {
	methods := make([]domscore.Method, 0, len(req.Methods))
	for _, name := range req.Methods {
		m := domscore.Method(name)
		if !m.IsValid() {
			return nil, fmt.Errorf("docscore: unsupported scoring method %q", name)
		}
		methods = append(methods, m)
	}

	var (
		crp        *corpus.Corpus
		normalizer scoreuc.WordNormalizer
	)
	if req.Preprocess != nil {
		pipeline, err := pipelineFromSpec(req.Preprocess)
		if err != nil {
			return nil, err
		}
		crp = pipeline.Run(documentsToCorpus(req.Documents))
		normalizer = pipeline
	} else {
		crp = &corpus.Corpus{
			Documents: documentsToCorpus(req.Documents),
			Applied:   []corpus.StepKind{corpus.KindTokenizer},
		}
	}

	var progress domain.ProgressFunc
	if req.Progress != nil {
		progress = domain.ProgressFunc(req.Progress)
	}

	return &scoreuc.Request{
		Corpus:     crp,
		Words:      req.Words,
		Methods:    methods,
		Aggregator: domscore.Aggregator(req.Aggregation),
		Normalizer: normalizer,
		Progress:   progress,
	}, nil
}

func pipelineFromSpec(spec *Preprocess) (*preprocess.Pipeline, error) {
	var stages []preprocess.Stage

	if spec.Lowercase {
		stages = append(stages, preprocess.Lowercase{})
	}
	if spec.StripAccents {
		stages = append(stages, preprocess.StripAccents{})
	}
	if spec.RemoveURLs {
		stages = append(stages, preprocess.RemoveURLs{})
	}
	if spec.RemoveHTML {
		stages = append(stages, preprocess.RemoveHTML{})
	}

	if spec.TokenPattern != "" {
		tok, err := preprocess.NewRegexpTokenizer(spec.TokenPattern)
		if err != nil {
			return nil, fmt.Errorf("docscore: token pattern: %w", err)
		}
		stages = append(stages, tok)
	} else {
		stages = append(stages, preprocess.DefaultTokenizer())
	}

	if spec.Stem {
		stages = append(stages, preprocess.PorterStemmer{})
	}
	if len(spec.Stopwords) > 0 {
		stages = append(stages, preprocess.NewStopwordFilter(spec.Stopwords))
	}
	if spec.FilterPattern != "" {
		f, err := preprocess.NewRegexpFilter(spec.FilterPattern)
		if err != nil {
			return nil, fmt.Errorf("docscore: filter pattern: %w", err)
		}
		stages = append(stages, f)
	}
	if spec.NGramMin > 0 || spec.NGramMax > 0 {
		if spec.NGramMin < 1 || spec.NGramMax < spec.NGramMin {
			return nil, fmt.Errorf("docscore: invalid n-gram range [%d, %d]", spec.NGramMin, spec.NGramMax)
		}
		stages = append(stages, preprocess.NGrams{Min: spec.NGramMin, Max: spec.NGramMax})
	}

	return preprocess.NewPipeline(stages...), nil
}

func documentsToCorpus(docs []Document) []corpus.Document {
	out := make([]corpus.Document, len(docs))
	for i, d := range docs {
		out[i] = corpus.Document{Title: d.Title, Text: d.Text, Tokens: d.Tokens}
	}
	return out
}

func toResult(res *scoreuc.Result) *ScoreResult {
	out := &ScoreResult{
		Words:    res.Words,
		Columns:  make([]ScoreColumn, len(res.Columns)),
		Warnings: res.Warnings,
	}
	for i, col := range res.Columns {
		out.Columns[i] = ScoreColumn{
			Method: string(col.Method),
			Name:   col.Name,
			Scores: col.Aggregated,
		}
	}
	return out
}

// embedderAdapter wraps the public Embedder to satisfy the internal
// batch interface.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) BatchEmbed(
	ctx context.Context, texts []string, progress domain.ProgressFunc,
) (domain.BatchEmbeddingResult, error) {
	vectors, err := a.inner.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"embed: got %d vectors for %d texts", len(vectors), len(texts),
		)
	}
	if progress != nil {
		progress(len(texts), len(texts))
	}
	return domain.BatchEmbeddingResult{Vectors: vectors}, nil
}
