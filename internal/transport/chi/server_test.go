package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/index"
	"github.com/kailas-cloud/wfassist/internal/metrics"
	"github.com/kailas-cloud/wfassist/internal/usecase/check"
	"github.com/kailas-cloud/wfassist/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/wfassist/internal/usecase/health"
	"github.com/kailas-cloud/wfassist/internal/usecase/retrieve"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

const testSchema = `{
  "type": "object",
  "required": ["id", "type", "action"],
  "properties": {
    "id": {"type": "string"},
    "type": {"type": "string", "enum": ["notification", "automation"]},
    "action": {
      "type": "object",
      "required": ["type"],
      "properties": {"type": {"type": "string"}}
    }
  }
}`

// --- Mocks ---

type stubCorpus struct {
	examples []example.Example
	err      error
}

func (s *stubCorpus) LoadExamples() ([]example.Example, error) { return s.examples, s.err }

type stubSchema struct {
	node *schema.Node
	err  error
}

func (s *stubSchema) LoadSchema() (*schema.Node, error) { return s.node, s.err }

type failingCompleter struct{}

func (failingCompleter) Complete(context.Context, string) (domain.CompletionResult, error) {
	return domain.CompletionResult{}, fmt.Errorf("%w: upstream 503", domain.ErrCompletionProvider)
}

// --- Helpers ---

func testExamples(t *testing.T) []example.Example {
	t.Helper()
	mk := func(id, title, desc, kind string) example.Example {
		ex, err := example.New(id, title, desc, value.MustFromAny(map[string]any{
			"id":     id,
			"type":   kind,
			"action": map[string]any{"type": "email"},
		}))
		if err != nil {
			t.Fatalf("example %s: %v", id, err)
		}
		return ex
	}
	return []example.Example{
		mk("ex-email", "Email alert on failure", "Send an email when a job fails", "notification"),
		mk("ex-slack", "Slack daily report", "Post a daily summary message to slack", "notification"),
		mk("ex-deploy", "Webhook on deploy", "Call a webhook after every deploy", "automation"),
	}
}

type testEnv struct {
	handler http.Handler
	server  *Server
	corpus  *stubCorpus
}

func newTestEnv(t *testing.T, completer domain.Completer) *testEnv {
	t.Helper()
	ctx := context.Background()

	sch, err := schema.ParseJSON([]byte(testSchema))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}

	corpus := &stubCorpus{examples: testExamples(t)}
	retrieveSvc := retrieve.New(index.NewHolder(), corpus, request.Limits{}, zap.NewNop())
	if _, err := retrieveSvc.Reload(ctx); err != nil {
		t.Fatalf("reload corpus: %v", err)
	}
	checkSvc := check.New(&stubSchema{node: sch}, zap.NewNop())
	if err := checkSvc.Reload(ctx); err != nil {
		t.Fatalf("reload schema: %v", err)
	}
	if completer == nil {
		completer = domain.NewOfflineCompleter("")
	}
	genSvc := generate.New(retrieveSvc, checkSvc, completer, zap.NewNop())
	healthSvc := healthuc.New(retrieveSvc, nil, nil)

	srv := NewServer(retrieveSvc, checkSvc, genSvc, healthSvc, zap.NewNop())
	return &testEnv{
		handler: NewRouter(srv, RouterConfig{Logger: zap.NewNop()}),
		server:  srv,
		corpus:  corpus,
	}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rr.Body.String())
	}
	return v
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["index"] != "ok" {
		t.Errorf("unexpected health: %+v", resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHealthCheck_IndexNotReady(t *testing.T) {
	retrieveSvc := retrieve.New(index.NewHolder(), &stubCorpus{}, request.Limits{}, nil)
	srv := NewServer(retrieveSvc, nil, nil, healthuc.New(retrieveSvc, nil, nil), nil)
	h := NewRouter(srv, RouterConfig{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestListExamples(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/v1/examples", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[ExampleListResponse](t, rr)
	if resp.Total != 3 || resp.Items[0].ID != "ex-email" {
		t.Errorf("unexpected list: %+v", resp)
	}
}

func TestGetExample(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodGet, "/v1/examples/ex-slack", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[ExampleResponse](t, rr)
	if resp.Title != "Slack daily report" {
		t.Errorf("unexpected title %q", resp.Title)
	}
	if !strings.Contains(string(resp.Config), `"notification"`) {
		t.Errorf("config not rendered: %s", resp.Config)
	}

	rr = env.do(t, http.MethodGet, "/v1/examples/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != ErrorCodeNotFound {
		t.Errorf("expected not_found, got %s", e.Code)
	}
}

func TestSearchExamples(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/v1/examples/search?q=email+when+job+fails&k=2", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[SearchResponse](t, rr)
	if len(resp.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(resp.Matches))
	}
	if resp.Matches[0].ID != "ex-email" {
		t.Errorf("expected ex-email first, got %s", resp.Matches[0].ID)
	}
	if resp.Matches[0].Score < resp.Matches[1].Score {
		t.Error("matches not sorted by score")
	}
}

func TestSearchExamples_DefaultAndClampedK(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := decode[SearchResponse](t, env.do(t, http.MethodGet, "/v1/examples/search?q=deploy", ""))
	if resp.K != request.DefaultK || len(resp.Matches) != 3 {
		t.Errorf("default k: got k=%d matches=%d", resp.K, len(resp.Matches))
	}

	resp = decode[SearchResponse](t, env.do(t, http.MethodGet, "/v1/examples/search?q=deploy&k=500", ""))
	if resp.K != request.MaxK || len(resp.Matches) != 3 {
		t.Errorf("clamped k: got k=%d matches=%d", resp.K, len(resp.Matches))
	}
}

func TestSearchExamples_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		target   string
		wantCode ErrorCode
		wantMsg  string
	}{
		{"k zero", "/v1/examples/search?q=email&k=0", ErrorCodeInvalidK, "invalid k: k must be >= 1, got 0"},
		{"k negative", "/v1/examples/search?q=email&k=-2", ErrorCodeInvalidK, "got -2"},
		{"k not a number", "/v1/examples/search?q=email&k=abc", ErrorCodeBadRequest, "parameter k"},
		{"missing query", "/v1/examples/search?k=2", ErrorCodeInvalidQuery, "query is required"},
		{"blank query", "/v1/examples/search?q=+++", ErrorCodeInvalidQuery, "query is required"},
		{"min score out of range", "/v1/examples/search?q=email&min_score=2", ErrorCodeInvalidQuery, "min_score"},
		{"min score NaN", "/v1/examples/search?q=email&min_score=NaN", ErrorCodeInvalidQuery, "min_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
			e := decode[ErrorResponse](t, rr)
			if e.Code != tt.wantCode {
				t.Errorf("code: got %s, want %s", e.Code, tt.wantCode)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestGetSchema(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/v1/schema", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[SchemaResponse](t, rr)
	if strings.Join(resp.Required, ",") != "id,type,action" {
		t.Errorf("unexpected required: %v", resp.Required)
	}
	if !strings.Contains(string(resp.Schema), `"properties"`) {
		t.Errorf("raw schema missing: %s", resp.Schema)
	}
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("valid", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/validate", `{"id":"a","type":"automation","action":{"type":"email"}}`)
		resp := decode[ValidateResponse](t, rr)
		if !resp.Valid || resp.Coverage != 1 || len(resp.Errors) != 0 {
			t.Errorf("unexpected verdict: %+v", resp)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/validate", `{"id":"a","type":"sms","action":{}}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		resp := decode[ValidateResponse](t, rr)
		if resp.Valid {
			t.Fatal("expected invalid")
		}
		if resp.Coverage != 1 {
			t.Errorf("coverage counts top-level presence only, got %v", resp.Coverage)
		}
		want := []string{
			"action.type: missing required property",
			`type: value "sms" is not one of the allowed values ["notification", "automation"]`,
		}
		if strings.Join(resp.Errors, "\n") != strings.Join(want, "\n") {
			t.Errorf("errors:\n got %q\nwant %q", resp.Errors, want)
		}
		if resp.Violations[0].Pointer != "/action/type" {
			t.Errorf("pointer: got %q", resp.Violations[0].Pointer)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/v1/validate", `{"id":`)
		resp := decode[ValidateResponse](t, rr)
		if resp.Valid || resp.Coverage != 0 || len(resp.Errors) != 1 {
			t.Errorf("unexpected verdict: %+v", resp)
		}
	})
}

func TestValidate_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.WithMaxBodyBytes(8)

	rr := env.do(t, http.MethodPost, "/v1/validate", `{"id":"far too long"}`)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestGenerate_Offline(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/v1/generate", `{"query":"email me when a job fails","k":2}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[GenerateResponse](t, rr)
	if !resp.Completion.Offline || resp.Completion.Note == "" {
		t.Errorf("expected offline completion, got %+v", resp.Completion)
	}
	if len(resp.Matches) != 2 {
		t.Errorf("expected 2 matches, got %d", len(resp.Matches))
	}
	if !strings.Contains(resp.Prompt, "Example 1 (ID: ex-email") {
		t.Errorf("prompt missing top example:\n%s", resp.Prompt)
	}
	if !resp.Validation.Valid {
		t.Errorf("placeholder should validate: %v", resp.Validation.Errors)
	}
	if resp.ParseError != "" {
		t.Errorf("unexpected parse error %q", resp.ParseError)
	}
	if resp.ID == "" {
		t.Error("expected generation id")
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewRouter(env.server, RouterConfig{GenerateRPS: 1.0 / 3600, GenerateBurst: 1, Logger: zap.NewNop()})

	post := func(target string) int {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{"query":"email"}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := post("/v1/generate"); code != http.StatusOK {
		t.Fatalf("first generate: got %d", code)
	}
	if code := post("/v1/generate"); code != http.StatusTooManyRequests {
		t.Fatalf("second generate: got %d, want 429", code)
	}
	// Only generation is throttled.
	if code := post("/v1/validate"); code != http.StatusOK {
		t.Errorf("validate: got %d, want 200", code)
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	env := newTestEnv(t, failingCompleter{})
	rr := env.do(t, http.MethodPost, "/v1/generate", `{"query":"slack report"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != ErrorCodeProviderError {
		t.Errorf("expected %s, got %s", ErrorCodeProviderError, e.Code)
	}
}

func TestGenerate_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	if rr := env.do(t, http.MethodPost, "/v1/generate", `not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/v1/generate", `{"query":""}`); rr.Code != http.StatusBadRequest {
		t.Errorf("empty query: expected 400, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/v1/generate", `{"query":"x","k":0}`); rr.Code != http.StatusBadRequest {
		t.Errorf("k=0: expected 400, got %d", rr.Code)
	}
}

func TestReload(t *testing.T) {
	env := newTestEnv(t, nil)
	env.corpus.examples = env.corpus.examples[:2]

	rr := env.do(t, http.MethodPost, "/v1/admin/reload", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[ReloadResponse](t, rr)
	if resp.Documents != 2 || resp.Generation != 2 {
		t.Errorf("unexpected reload stats: %+v", resp)
	}

	env.corpus.examples = nil
	rr = env.do(t, http.MethodPost, "/v1/admin/reload", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("empty corpus: expected 500, got %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != ErrorCodeEmptyCorpus {
		t.Errorf("expected empty_corpus, got %s", e.Code)
	}

	list := decode[ExampleListResponse](t, env.do(t, http.MethodGet, "/v1/examples", ""))
	if list.Total != 2 {
		t.Errorf("previous snapshot should keep serving, got %d examples", list.Total)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/v2/nothing", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %q", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	_ = env.do(t, http.MethodGet, "/v1/examples/search?q=email", "")

	rr := env.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "wfassist_retrieval_requests_total") {
		t.Error("expected retrieval metrics in exposition")
	}
}
