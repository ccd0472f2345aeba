package tag

import (
	"context"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// Tagger marks up corpus tokens with part-of-speech tags. The returned
// corpus carries annotated tokens ("word_TAG"); the input is not mutated.
type Tagger interface {
	Name() string
	Tag(ctx context.Context, c *corpus.Corpus) (*corpus.Corpus, error)
}
