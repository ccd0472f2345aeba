package preprocess

import (
	"strings"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// Pipeline applies preprocessing stages to a corpus in order: text
// transformers, tokenizer, token normalizer, token filters, n-grams.
type Pipeline struct {
	transformers []TextTransformer
	tokenizer    Tokenizer
	normalizer   TokenNormalizer
	filters      []TokenFilter
	ngrams       *NGrams
	stages       []Stage
}

// NewPipeline assembles a pipeline from stages. Stage order within each
// kind is preserved; at most one tokenizer, normalizer, and n-gram stage
// is honored (the last one wins, matching how a stage list is edited).
func NewPipeline(stages ...Stage) *Pipeline {
	p := &Pipeline{stages: stages}
	for _, s := range stages {
		switch st := s.(type) {
		case TextTransformer:
			p.transformers = append(p.transformers, st)
		case Tokenizer:
			p.tokenizer = st
		case TokenNormalizer:
			p.normalizer = st
		case TokenFilter:
			p.filters = append(p.filters, st)
		case NGrams:
			ng := st
			p.ngrams = &ng
		case *NGrams:
			p.ngrams = st
		}
	}
	return p
}

// Stages returns the configured stages in order.
func (p *Pipeline) Stages() []Stage { return p.stages }

// Run preprocesses raw documents into a scored-ready corpus. The returned
// corpus records the applied stage kinds; input documents are not mutated.
func (p *Pipeline) Run(docs []corpus.Document) *corpus.Corpus {
	tokenizer := p.tokenizer
	if tokenizer == nil {
		tokenizer = DefaultTokenizer()
	}

	out := &corpus.Corpus{Documents: make([]corpus.Document, len(docs))}
	for i, d := range docs {
		text := d.Text
		for _, tr := range p.transformers {
			text = tr.TransformText(text)
		}

		tokens := tokenizer.Tokenize(text)
		if p.normalizer != nil {
			normalized := make([]string, len(tokens))
			for j, tok := range tokens {
				normalized[j] = p.normalizer.NormalizeToken(tok)
			}
			tokens = normalized
		}
		for _, f := range p.filters {
			kept := tokens[:0]
			for _, tok := range tokens {
				if f.Keep(tok) {
					kept = append(kept, tok)
				}
			}
			tokens = kept
		}
		if p.ngrams != nil {
			tokens = p.ngrams.Span(tokens)
		}

		out.Documents[i] = corpus.Document{Title: d.Title, Text: text, Tokens: tokens}
	}

	out.Applied = p.appliedKinds()
	return out
}

// NormalizeWords passes candidate words through the pipeline's transformers,
// tokenizer, and normalizer, but not its filters or n-gram stage. Words that
// normalize to empty are dropped. This keeps a word like "eu" scorable even
// when the corpus pipeline filters it as a stopword.
func (p *Pipeline) NormalizeWords(words []string) []string {
	tokenizer := p.tokenizer
	if tokenizer == nil {
		tokenizer = DefaultTokenizer()
	}

	out := make([]string, 0, len(words))
	for _, w := range words {
		for _, tr := range p.transformers {
			w = tr.TransformText(w)
		}
		tokens := tokenizer.Tokenize(w)
		if p.normalizer != nil {
			for j, tok := range tokens {
				tokens[j] = p.normalizer.NormalizeToken(tok)
			}
		}
		if joined := strings.Join(tokens, " "); joined != "" {
			out = append(out, joined)
		}
	}
	return out
}

func (p *Pipeline) appliedKinds() []corpus.StepKind {
	kinds := make([]corpus.StepKind, 0, len(p.stages))
	seen := make(map[corpus.StepKind]struct{})
	record := func(k corpus.StepKind) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			kinds = append(kinds, k)
		}
	}
	for _, s := range p.stages {
		record(s.Kind())
	}
	// Tokenization always happens, configured or not.
	record(corpus.KindTokenizer)
	return kinds
}
