package preprocess

import (
	"strings"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// NGrams joins consecutive tokens into space-separated n-grams for every
// n in [Min, Max]. With Min=1 unigrams are kept alongside the n-grams.
// Word-list normalization skips this stage: the word list is matched
// against whatever granularity the corpus tokens already use.
type NGrams struct {
	Min, Max int
}

// Name implements Stage.
func (n NGrams) Name() string { return "ngrams" }

// Kind implements Stage.
func (n NGrams) Kind() corpus.StepKind { return corpus.KindNGrams }

// Span produces the n-gram token sequence for one document.
func (n NGrams) Span(tokens []string) []string {
	lo, hi := n.Min, n.Max
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}

	var out []string
	for size := lo; size <= hi; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+size], " "))
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}
