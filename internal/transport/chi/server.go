package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
	logpkg "github.com/kailas-cloud/wfassist/internal/logger"
	healthuc "github.com/kailas-cloud/wfassist/internal/usecase/health"
	"github.com/kailas-cloud/wfassist/internal/version"
)

const defaultMaxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers of the API.
type Server struct {
	retriever     Retriever
	checker       Checker
	generator     Generator
	health        HealthReporter
	logger        *zap.Logger
	defaultK      int
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retriever Retriever,
	checker Checker,
	generator Generator,
	health HealthReporter,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		retriever:    retriever,
		checker:      checker,
		generator:    generator,
		health:       health,
		logger:       logger,
		defaultK:     request.DefaultK,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		detailHandler(domain.ErrInvalidK, http.StatusBadRequest, ErrorCodeInvalidK),
		detailHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		detailHandler(domain.ErrInvalidSchema, http.StatusUnprocessableEntity, ErrorCodeInvalidSchema),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusUnprocessableEntity, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrEmptyCorpus, http.StatusInternalServerError, ErrorCodeEmptyCorpus),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, ErrorCodeNotReady),
		sentinelHandler(domain.ErrCompletionProvider, http.StatusBadGateway, ErrorCodeProviderError),
	}
	return s
}

// WithDefaultK sets the result count used when a request omits k.
func (s *Server) WithDefaultK(k int) *Server {
	if k > 0 {
		s.defaultK = k
	}
	return s
}

// WithMaxBodyBytes caps request bodies.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// ListExamples handles GET /v1/examples.
func (s *Server) ListExamples(w http.ResponseWriter, r *http.Request) {
	examples, err := s.retriever.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ExampleResponse, len(examples))
	for i, ex := range examples {
		items[i] = exampleToResponse(ex)
	}
	writeJSON(w, http.StatusOK, ExampleListResponse{Items: items, Total: len(items)})
}

// GetExample handles GET /v1/examples/{id}.
func (s *Server) GetExample(w http.ResponseWriter, r *http.Request) {
	ex, err := s.retriever.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exampleToResponse(ex))
}

// SearchExamples handles GET /v1/examples/search?q=&k=&min_score=.
func (s *Server) SearchExamples(w http.ResponseWriter, r *http.Request) {
	var (
		q        *string
		k        *int
		minScore *float64
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", params, &q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "k", params, &k); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter k: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_score", params, &minScore); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter min_score: "+err.Error())
		return
	}

	req, err := request.New(derefString(q), derefInt(k, s.defaultK), derefFloat(minScore), s.retriever.Limits())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	matches, err := s.retriever.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   req.Query(),
		K:       req.K(),
		Matches: matchesToResponse(matches),
	})
}

// GetSchema handles GET /v1/schema.
func (s *Server) GetSchema(w http.ResponseWriter, r *http.Request) {
	n, err := s.checker.Schema()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	raw, err := n.Raw().MarshalJSON()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	required := n.Required()
	if required == nil {
		required = []string{}
	}
	writeJSON(w, http.StatusOK, SchemaResponse{Schema: raw, Required: required})
}

// Validate handles POST /v1/validate. The body is the candidate document itself.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	report, err := s.checker.CheckJSON(r.Context(), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// Generate handles POST /v1/generate.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var in GenerateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(in.Query, derefInt(in.K, s.defaultK), 0, s.retriever.Limits())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	g, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	output, err := g.Output.MarshalJSON()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := GenerateResponse{
		ID:      g.ID,
		Query:   g.Query,
		Matches: matchesToResponse(g.Matches),
		Prompt:  g.Prompt,
		Completion: CompletionResponse{
			Provider:         g.Completion.Provider,
			Model:            g.Completion.Model,
			PromptTokens:     g.Completion.PromptTokens,
			CompletionTokens: g.Completion.CompletionTokens,
			Offline:          g.Completion.Offline,
			Cached:           g.Completion.Cached,
			Note:             g.Completion.Note,
			Text:             g.Completion.Text,
		},
		Output:     output,
		Validation: reportToResponse(g.Report),
		DurationMs: g.Duration.Milliseconds(),
	}
	if g.ParseError != nil {
		resp.ParseError = g.ParseError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reload handles POST /v1/admin/reload. Corpus and schema are re-read from disk;
// on failure the previously published versions keep serving.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	stats, err := s.retriever.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.checker.Reload(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		Documents:      stats.Documents,
		VocabularySize: stats.VocabularySize,
		Generation:     stats.Generation,
		BuiltAt:        stats.BuiltAt.UTC(),
	})
}

// HealthCheck handles GET /health. Degraded optional components still answer 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Checks:  checks,
	})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error
// and replies with the sentinel text only.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// detailHandler is like sentinelHandler but keeps the detail that follows the
// sentinel text, e.g. "invalid k: k must be >= 1, got 0". Wrapping prefixes
// added by inner layers are dropped.
func detailHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := err.Error()
		if i := strings.Index(msg, sentinel.Error()); i >= 0 {
			msg = msg[i:]
		} else {
			msg = sentinel.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func exampleToResponse(ex example.Example) ExampleResponse {
	cfg, err := ex.Config().MarshalJSON()
	if err != nil {
		cfg = json.RawMessage("{}")
	}
	return ExampleResponse{
		ID:          ex.ID(),
		Title:       ex.Title(),
		Description: ex.Description(),
		Config:      cfg,
	}
}

func matchesToResponse(matches []tfidf.Match) []MatchResponse {
	out := make([]MatchResponse, len(matches))
	for i, m := range matches {
		out[i] = MatchResponse{
			ID:          m.Example.ID(),
			Title:       m.Example.Title(),
			Description: m.Example.Description(),
			Score:       m.Score,
		}
	}
	return out
}

func reportToResponse(rep verdict.Report) ValidateResponse {
	violations := make([]ViolationResponse, len(rep.Violations))
	for i, v := range rep.Violations {
		violations[i] = ViolationResponse{
			Path:    v.Path.String(),
			Pointer: v.Path.Pointer(),
			Message: v.Message,
		}
	}
	return ValidateResponse{
		Valid:      rep.Valid,
		Errors:     rep.Messages(),
		Violations: violations,
		Coverage:   rep.Coverage,
	}
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
