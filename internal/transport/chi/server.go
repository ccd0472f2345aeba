package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docscore/internal/domain"
	"github.com/kailas-cloud/docscore/internal/domain/corpus"
	domscore "github.com/kailas-cloud/docscore/internal/domain/score"
	healthuc "github.com/kailas-cloud/docscore/internal/usecase/health"
	scoreuc "github.com/kailas-cloud/docscore/internal/usecase/score"
	taguc "github.com/kailas-cloud/docscore/internal/usecase/tag"
)

// emptyWordListMessage is shown when preprocessing eats the whole word list.
const emptyWordListMessage = "Empty word list after preprocessing. Please provide a valid set of words."

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the scoring engine over HTTP.
type Server struct {
	score         *scoreuc.Service
	tag           *taguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler

	maxDocuments int
	maxWords     int
}

// NewServer creates an HTTP API server.
func NewServer(
	score *scoreuc.Service,
	tag *taguc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		score:  score,
		tag:    tag,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		emptyWordListHandler,
		sentinelHandler(domain.ErrNoDocuments, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNoWords, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrTaggerNotFound, http.StatusNotFound, codeTaggerNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// WithLimits caps request size. A limit of 0 leaves that dimension
// unbounded.
func (s *Server) WithLimits(maxDocuments, maxWords int) *Server {
	s.maxDocuments = maxDocuments
	s.maxWords = maxWords
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", s.ScoreDocuments)
		r.Post("/tag", s.TagCorpus)
		r.Get("/taggers", s.ListTaggers)
	})
}

// ScoreDocuments handles POST /v1/score.
func (s *Server) ScoreDocuments(w http.ResponseWriter, r *http.Request) {
	var req scoreRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "documents are required")
		return
	}
	if len(req.Words) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "words are required")
		return
	}
	if s.maxDocuments > 0 && len(req.Documents) > s.maxDocuments {
		writeError(w, http.StatusRequestEntityTooLarge, codeValidationFailed,
			fmt.Sprintf("too many documents: %d exceeds limit %d", len(req.Documents), s.maxDocuments))
		return
	}
	if s.maxWords > 0 && len(req.Words) > s.maxWords {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("too many words: %d exceeds limit %d", len(req.Words), s.maxWords))
		return
	}

	methods, err := methodsFromDTO(req.Methods)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	c, normalizer, err := corpusFromRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	result, err := s.score.Score(r.Context(), &scoreuc.Request{
		Corpus:     c,
		Words:      req.Words,
		Methods:    methods,
		Aggregator: domscore.Aggregator(req.Aggregation),
		Normalizer: normalizer,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := resultToDTO(result)

	if req.Selection != nil {
		rows, err := applySelection(req.Selection, result, c.Len())
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		resp.SelectedRows = rows
	}

	writeJSON(w, http.StatusOK, resp)
}

// TagCorpus handles POST /v1/tag.
func (s *Server) TagCorpus(w http.ResponseWriter, r *http.Request) {
	var req tagRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tagger := req.Tagger
	if tagger == "" {
		tagger = "rule"
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "documents are required")
		return
	}

	in := &corpus.Corpus{
		Documents: documentsFromDTO(req.Documents),
		Applied:   []corpus.StepKind{corpus.KindTokenizer},
	}
	tagged, err := s.tag.Tag(r.Context(), tagger, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := tagResponseDTO{
		Tagger:    tagger,
		Documents: make([]taggedDocumentDTO, len(tagged.Documents)),
	}
	for i, doc := range tagged.Documents {
		resp.Documents[i] = taggedDocumentDTO{Title: doc.Title, Tokens: doc.Tokens}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListTaggers handles GET /v1/taggers.
func (s *Server) ListTaggers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"taggers": s.tag.Names()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, httpStatus, healthResponseDTO{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNoDocuments,
		domain.ErrNoWords,
		domain.ErrEmptyWordList,
		domain.ErrTaggerNotFound,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// emptyWordListHandler carries the user-facing remediation message.
func emptyWordListHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrEmptyWordList) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeEmptyWordList, emptyWordListMessage)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
