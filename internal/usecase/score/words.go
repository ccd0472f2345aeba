package score

import (
	"strings"

	"github.com/kailas-cloud/docscore/internal/domain"
)

// PrepareWords normalizes the raw word list the same way the corpus was
// preprocessed so that scored words match corpus tokens. Words that
// normalize to empty are dropped; an empty result is fatal.
func PrepareWords(words []string, normalizer WordNormalizer) ([]string, error) {
	if len(words) == 0 {
		return nil, domain.ErrNoWords
	}

	var prepared []string
	if normalizer != nil {
		prepared = normalizer.NormalizeWords(words)
	} else {
		prepared = make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				prepared = append(prepared, w)
			}
		}
	}

	if len(prepared) == 0 {
		return nil, domain.ErrEmptyWordList
	}
	return prepared, nil
}
