package tag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// Service dispatches tagging requests to registered taggers by name.
type Service struct {
	mu      sync.RWMutex
	taggers map[string]Tagger
	logger  *zap.Logger
}

// NewService creates a dispatcher with the built-in rule tagger registered.
func NewService(logger *zap.Logger) *Service {
	s := &Service{
		taggers: make(map[string]Tagger),
		logger:  logger,
	}
	s.Register(RuleTagger{})
	return s
}

// Register adds a tagger, replacing any previous one with the same name.
func (s *Service) Register(t Tagger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taggers[t.Name()] = t
}

// Names lists registered taggers in sorted order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.taggers))
	for name := range s.taggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tag runs the named tagger over the corpus. Each call is evaluated
// fresh; an earlier failure does not stick to later runs.
func (s *Service) Tag(ctx context.Context, name string, c *corpus.Corpus) (*corpus.Corpus, error) {
	if c == nil || c.Len() == 0 {
		return nil, domain.ErrNoDocuments
	}

	s.mu.RLock()
	tagger, ok := s.taggers[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTaggerNotFound, name)
	}

	start := time.Now()

	tagged, err := tagger.Tag(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("tag corpus with %s: %w", name, err)
	}

	s.logger.Debug("Corpus tagged",
		zap.String("tagger", name),
		zap.Int("documents", c.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return tagged, nil
}
