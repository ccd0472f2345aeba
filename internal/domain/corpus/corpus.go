// Package corpus defines the document collection scored by the engine.
package corpus

// StepKind classifies a preprocessing stage by what it does to the corpus.
type StepKind string

// Preprocessing stage kinds recorded on a corpus.
const (
	// KindTransformer rewrites raw text (lowercasing, accent stripping, URL removal).
	KindTransformer StepKind = "transformer"
	// KindTokenizer splits text into tokens.
	KindTokenizer StepKind = "tokenizer"
	// KindNormalizer maps tokens to canonical forms (stemming).
	KindNormalizer StepKind = "normalizer"
	// KindFilter drops tokens (stopwords, regex).
	KindFilter StepKind = "filter"
	// KindNGrams joins consecutive tokens into n-grams.
	KindNGrams StepKind = "ngrams"
)

// Document is one scored record: the display title, the full natural-language
// text (fed to the embedding backend), and the token sequence produced by the
// preprocessing pipeline. Tokens may be multi-word n-grams; the scoring engine
// matches words against them as-is without re-splitting.
type Document struct {
	Title  string
	Text   string
	Tokens []string
}

// Corpus is an ordered document collection plus the record of preprocessing
// stage kinds already applied to it. Row order is significant: score matrices
// keep the same row order.
type Corpus struct {
	Documents []Document
	Applied   []StepKind
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.Documents) }

// HasApplied reports whether a stage of the given kind was applied.
func (c *Corpus) HasApplied(kind StepKind) bool {
	for _, k := range c.Applied {
		if k == kind {
			return true
		}
	}
	return false
}

// IsNormalized reports whether a token normalization stage was applied.
// Scoring proceeds on non-normalized corpora but surfaces an advisory.
func (c *Corpus) IsNormalized() bool { return c.HasApplied(KindNormalizer) }

// Titles returns document titles in row order.
func (c *Corpus) Titles() []string {
	titles := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		titles[i] = d.Title
	}
	return titles
}

// Texts returns full document texts in row order.
func (c *Corpus) Texts() []string {
	texts := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		texts[i] = d.Text
	}
	return texts
}
