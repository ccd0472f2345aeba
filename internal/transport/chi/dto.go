package chi

import (
	"fmt"

	"github.com/kailas-cloud/docscore/internal/domain/corpus"
	domscore "github.com/kailas-cloud/docscore/internal/domain/score"
	"github.com/kailas-cloud/docscore/internal/preprocess"
	scoreuc "github.com/kailas-cloud/docscore/internal/usecase/score"
	"github.com/kailas-cloud/docscore/internal/usecase/selection"
)

type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeEmptyWordList    errorCode = "empty_word_list"
	codeQuotaExceeded    errorCode = "embedding_quota_exceeded"
	codeProviderError    errorCode = "embedding_provider_error"
	codeTaggerNotFound   errorCode = "tagger_not_found"
	codeInternalError    errorCode = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// documentDTO is one input document. Tokens are optional: when a
// preprocess spec is present the server tokenizes Text itself.
type documentDTO struct {
	Title  string   `json:"title,omitempty"`
	Text   string   `json:"text"`
	Tokens []string `json:"tokens,omitempty"`
}

// ngramsDTO configures n-gram joining.
type ngramsDTO struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// preprocessDTO describes a server-side preprocessing pipeline.
type preprocessDTO struct {
	Lowercase     bool       `json:"lowercase"`
	StripAccents  bool       `json:"strip_accents"`
	RemoveURLs    bool       `json:"remove_urls"`
	RemoveHTML    bool       `json:"remove_html"`
	TokenPattern  string     `json:"token_pattern,omitempty"`
	Stopwords     []string   `json:"stopwords,omitempty"`
	FilterPattern string     `json:"filter_pattern,omitempty"`
	Stem          bool       `json:"stem"`
	NGrams        *ngramsDTO `json:"ngrams,omitempty"`
}

// selectionDTO picks documents out of the scored result.
type selectionDTO struct {
	Method  string `json:"method"`
	N       int    `json:"n,omitempty"`
	Indices []int  `json:"indices,omitempty"`
	Column  string `json:"column,omitempty"`
}

// scoreRequestDTO is the POST /v1/score body.
type scoreRequestDTO struct {
	Documents   []documentDTO  `json:"documents"`
	Words       []string       `json:"words"`
	Methods     []string       `json:"methods,omitempty"`
	Aggregation string         `json:"aggregation,omitempty"`
	Preprocess  *preprocessDTO `json:"preprocess,omitempty"`
	Selection   *selectionDTO  `json:"selection,omitempty"`
}

// columnDTO is one scored column: aggregated per-document scores in
// corpus order.
type columnDTO struct {
	Method string    `json:"method"`
	Name   string    `json:"name"`
	Scores []float64 `json:"scores"`
}

// scoreResponseDTO is the POST /v1/score response.
type scoreResponseDTO struct {
	Words        []string    `json:"words"`
	Columns      []columnDTO `json:"columns"`
	Warnings     []string    `json:"warnings,omitempty"`
	SelectedRows []int       `json:"selected_rows,omitempty"`
}

// tagRequestDTO is the POST /v1/tag body.
type tagRequestDTO struct {
	Documents []documentDTO `json:"documents"`
	Tagger    string        `json:"tagger,omitempty"`
}

// taggedDocumentDTO carries the annotated tokens of one document.
type taggedDocumentDTO struct {
	Title  string   `json:"title,omitempty"`
	Tokens []string `json:"tokens"`
}

// tagResponseDTO is the POST /v1/tag response.
type tagResponseDTO struct {
	Tagger    string              `json:"tagger"`
	Documents []taggedDocumentDTO `json:"documents"`
}

// healthResponseDTO mirrors the health report.
type healthResponseDTO struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func documentsFromDTO(dtos []documentDTO) []corpus.Document {
	docs := make([]corpus.Document, len(dtos))
	for i, d := range dtos {
		docs[i] = corpus.Document{Title: d.Title, Text: d.Text, Tokens: d.Tokens}
	}
	return docs
}

// corpusFromRequest builds the corpus and the word normalizer. With a
// preprocess spec the server runs the pipeline; without one the client
// must supply tokens.
func corpusFromRequest(req *scoreRequestDTO) (*corpus.Corpus, scoreuc.WordNormalizer, error) {
	docs := documentsFromDTO(req.Documents)

	if req.Preprocess != nil {
		pipeline, err := pipelineFromDTO(req.Preprocess)
		if err != nil {
			return nil, nil, err
		}
		return pipeline.Run(docs), pipeline, nil
	}

	for i, d := range docs {
		if len(d.Tokens) == 0 && d.Text != "" {
			return nil, nil, fmt.Errorf("document %d: tokens are required without a preprocess spec", i)
		}
	}
	return &corpus.Corpus{
		Documents: docs,
		Applied:   []corpus.StepKind{corpus.KindTokenizer},
	}, nil, nil
}

func pipelineFromDTO(dto *preprocessDTO) (*preprocess.Pipeline, error) {
	var stages []preprocess.Stage

	if dto.Lowercase {
		stages = append(stages, preprocess.Lowercase{})
	}
	if dto.StripAccents {
		stages = append(stages, preprocess.StripAccents{})
	}
	if dto.RemoveURLs {
		stages = append(stages, preprocess.RemoveURLs{})
	}
	if dto.RemoveHTML {
		stages = append(stages, preprocess.RemoveHTML{})
	}

	if dto.TokenPattern != "" {
		tok, err := preprocess.NewRegexpTokenizer(dto.TokenPattern)
		if err != nil {
			return nil, fmt.Errorf("token_pattern: %w", err)
		}
		stages = append(stages, tok)
	} else {
		stages = append(stages, preprocess.DefaultTokenizer())
	}

	if dto.Stem {
		stages = append(stages, preprocess.PorterStemmer{})
	}
	if len(dto.Stopwords) > 0 {
		stages = append(stages, preprocess.NewStopwordFilter(dto.Stopwords))
	}
	if dto.FilterPattern != "" {
		f, err := preprocess.NewRegexpFilter(dto.FilterPattern)
		if err != nil {
			return nil, fmt.Errorf("filter_pattern: %w", err)
		}
		stages = append(stages, f)
	}
	if dto.NGrams != nil {
		if dto.NGrams.Min < 1 || dto.NGrams.Max < dto.NGrams.Min {
			return nil, fmt.Errorf("ngrams: invalid range [%d, %d]", dto.NGrams.Min, dto.NGrams.Max)
		}
		stages = append(stages, preprocess.NGrams{Min: dto.NGrams.Min, Max: dto.NGrams.Max})
	}

	return preprocess.NewPipeline(stages...), nil
}

func methodsFromDTO(names []string) ([]domscore.Method, error) {
	methods := make([]domscore.Method, 0, len(names))
	for _, name := range names {
		m := domscore.Method(name)
		if !m.IsValid() {
			return nil, fmt.Errorf("unsupported scoring method %q", name)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func resultToDTO(res *scoreuc.Result) scoreResponseDTO {
	out := scoreResponseDTO{
		Words:    res.Words,
		Columns:  make([]columnDTO, len(res.Columns)),
		Warnings: res.Warnings,
	}
	for i, col := range res.Columns {
		out.Columns[i] = columnDTO{
			Method: string(col.Method),
			Name:   col.Name,
			Scores: col.Aggregated,
		}
	}
	return out
}

// applySelection resolves the selection spec against the scored result.
// The selection column defaults to the first scored column.
func applySelection(dto *selectionDTO, res *scoreuc.Result, total int) ([]int, error) {
	req := selection.Request{
		Method:  selection.Method(dto.Method),
		Total:   total,
		Indices: dto.Indices,
		N:       dto.N,
	}

	if req.Method == selection.TopN {
		col, ok := selectionColumn(dto.Column, res)
		if !ok {
			return nil, fmt.Errorf("selection column %q not in scored result", dto.Column)
		}
		req.Scores = col.Aggregated
	}

	return selection.Select(req)
}

func selectionColumn(name string, res *scoreuc.Result) (scoreuc.Column, bool) {
	if name == "" {
		if len(res.Columns) == 0 {
			return scoreuc.Column{}, false
		}
		return res.Columns[0], true
	}
	return res.Column(domscore.Method(name))
}
