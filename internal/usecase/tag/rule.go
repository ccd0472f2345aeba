package tag

import (
	"context"
	"strconv"
	"strings"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
)

// RuleTagger assigns part-of-speech tags from token shape and common
// English suffixes. Tokens matching no rule default to NN.
type RuleTagger struct{}

// Name identifies the tagger in the registry.
func (RuleTagger) Name() string { return "rule" }

// Tag annotates every token as "word_TAG" in a fresh corpus copy.
func (RuleTagger) Tag(ctx context.Context, c *corpus.Corpus) (*corpus.Corpus, error) {
	out := &corpus.Corpus{
		Documents: make([]corpus.Document, len(c.Documents)),
		Applied:   append([]corpus.StepKind(nil), c.Applied...),
	}

	for i, doc := range c.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tagged := make([]string, len(doc.Tokens))
		for j, tok := range doc.Tokens {
			tagged[j] = tok + "_" + tagToken(tok)
		}

		out.Documents[i] = corpus.Document{
			Title:  doc.Title,
			Text:   doc.Text,
			Tokens: tagged,
		}
	}
	return out, nil
}

// tagToken applies suffix rules in priority order.
func tagToken(tok string) string {
	if _, err := strconv.ParseFloat(strings.TrimPrefix(tok, "-"), 64); err == nil && tok != "" {
		return "CD"
	}
	switch {
	case strings.HasSuffix(tok, "ing"):
		return "VBG"
	case strings.HasSuffix(tok, "ed"):
		return "VBD"
	case strings.HasSuffix(tok, "es"):
		return "VBZ"
	case strings.HasSuffix(tok, "ould"):
		return "MD"
	case strings.HasSuffix(tok, "'s"):
		return "NN$"
	case strings.HasSuffix(tok, "s"):
		return "NNS"
	default:
		return "NN"
	}
}
