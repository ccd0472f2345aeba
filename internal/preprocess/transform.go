// Package preprocess implements the text preprocessing pipeline: string
// transformers, tokenization, token normalization, token filters, and
// n-gram joining. Stages are applied in order and recorded on the corpus
// so downstream consumers can tell what the tokens have been through.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// Stage is one preprocessing step. Kind drives both ordering checks and
// the applied-step record on the corpus.
type Stage interface {
	Name() string
	Kind() corpus.StepKind
}

// TextTransformer rewrites raw document text before tokenization.
type TextTransformer interface {
	Stage
	TransformText(string) string
}

// Lowercase lowercases text.
type Lowercase struct{}

// Name implements Stage.
func (Lowercase) Name() string { return "lowercase" }

// Kind implements Stage.
func (Lowercase) Kind() corpus.StepKind { return corpus.KindTransformer }

// TransformText implements TextTransformer.
func (Lowercase) TransformText(s string) string { return strings.ToLower(s) }

// StripAccents removes combining diacritical marks from text.
type StripAccents struct{}

// Name implements Stage.
func (StripAccents) Name() string { return "strip-accents" }

// Kind implements Stage.
func (StripAccents) Kind() corpus.StepKind { return corpus.KindTransformer }

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// TransformText implements TextTransformer.
func (StripAccents) TransformText(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

var urlRegex = regexp.MustCompile(`https?://\S+|www\.\S+`)

// RemoveURLs deletes URLs from text.
type RemoveURLs struct{}

// Name implements Stage.
func (RemoveURLs) Name() string { return "remove-urls" }

// Kind implements Stage.
func (RemoveURLs) Kind() corpus.StepKind { return corpus.KindTransformer }

// TransformText implements TextTransformer.
func (RemoveURLs) TransformText(s string) string {
	return urlRegex.ReplaceAllString(s, "")
}

var htmlTagRegex = regexp.MustCompile(`<[^>]+>`)

// RemoveHTML strips HTML tags from text.
type RemoveHTML struct{}

// Name implements Stage.
func (RemoveHTML) Name() string { return "remove-html" }

// Kind implements Stage.
func (RemoveHTML) Kind() corpus.StepKind { return corpus.KindTransformer }

// TransformText implements TextTransformer.
func (RemoveHTML) TransformText(s string) string {
	return htmlTagRegex.ReplaceAllString(s, "")
}
