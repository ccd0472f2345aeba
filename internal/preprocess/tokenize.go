package preprocess

import (
	"regexp"

	porterstemmer "github.com/blevesearch/go-porterstemmer"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// Tokenizer splits transformed text into tokens.
type Tokenizer interface {
	Stage
	Tokenize(string) []string
}

// RegexpTokenizer extracts tokens matching a pattern.
type RegexpTokenizer struct {
	re *regexp.Regexp
}

const defaultTokenPattern = `\w+`

// NewRegexpTokenizer compiles a tokenizer for the given pattern.
// An empty pattern falls back to word tokens.
func NewRegexpTokenizer(pattern string) (*RegexpTokenizer, error) {
	if pattern == "" {
		pattern = defaultTokenPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexpTokenizer{re: re}, nil
}

// DefaultTokenizer returns the word tokenizer.
func DefaultTokenizer() *RegexpTokenizer {
	t, _ := NewRegexpTokenizer(defaultTokenPattern)
	return t
}

// Name implements Stage.
func (t *RegexpTokenizer) Name() string { return "regexp-tokenizer" }

// Kind implements Stage.
func (t *RegexpTokenizer) Kind() corpus.StepKind { return corpus.KindTokenizer }

// Tokenize implements Tokenizer.
func (t *RegexpTokenizer) Tokenize(s string) []string {
	tokens := t.re.FindAllString(s, -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// TokenNormalizer maps tokens to canonical forms.
type TokenNormalizer interface {
	Stage
	NormalizeToken(string) string
}

// PorterStemmer reduces tokens to their stems.
type PorterStemmer struct{}

// Name implements Stage.
func (PorterStemmer) Name() string { return "porter-stemmer" }

// Kind implements Stage.
func (PorterStemmer) Kind() corpus.StepKind { return corpus.KindNormalizer }

// NormalizeToken implements TokenNormalizer.
func (PorterStemmer) NormalizeToken(token string) string {
	return porterstemmer.StemString(token)
}
