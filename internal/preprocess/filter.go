package preprocess

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// TokenFilter decides which tokens survive. Filters apply to corpus tokens
// only; word-list normalization deliberately skips them so a word the corpus
// pipeline would drop can still be scored.
type TokenFilter interface {
	Stage
	Keep(string) bool
}

// StopwordFilter drops tokens found in a stopword set.
type StopwordFilter struct {
	words map[string]struct{}
}

// NewStopwordFilter builds a filter from a stopword list. Matching is
// case-insensitive against lowercased stopwords.
func NewStopwordFilter(stopwords []string) *StopwordFilter {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &StopwordFilter{words: set}
}

// Name implements Stage.
func (f *StopwordFilter) Name() string { return "stopword-filter" }

// Kind implements Stage.
func (f *StopwordFilter) Kind() corpus.StepKind { return corpus.KindFilter }

// Keep implements TokenFilter.
func (f *StopwordFilter) Keep(token string) bool {
	_, stop := f.words[strings.ToLower(token)]
	return !stop
}

// RegexpFilter drops tokens matching a pattern.
type RegexpFilter struct {
	re *regexp.Regexp
}

// NewRegexpFilter compiles a token removal pattern. The pattern must match
// the whole token for it to be dropped.
func NewRegexpFilter(pattern string) (*RegexpFilter, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, err
	}
	return &RegexpFilter{re: re}, nil
}

// Name implements Stage.
func (f *RegexpFilter) Name() string { return "regexp-filter" }

// Kind implements Stage.
func (f *RegexpFilter) Kind() corpus.StepKind { return corpus.KindFilter }

// Keep implements TokenFilter.
func (f *RegexpFilter) Keep(token string) bool {
	return !f.re.MatchString(token)
}
