package chi

import (
	"encoding/json"
	"time"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeBadRequest      ErrorCode = "bad_request"
	ErrorCodeUnauthorized    ErrorCode = "unauthorized"
	ErrorCodeInvalidK        ErrorCode = "invalid_k"
	ErrorCodeInvalidQuery    ErrorCode = "invalid_query"
	ErrorCodeNotFound        ErrorCode = "not_found"
	ErrorCodeInvalidSchema   ErrorCode = "invalid_schema"
	ErrorCodeEmptyCorpus     ErrorCode = "empty_corpus"
	ErrorCodeNotReady        ErrorCode = "not_ready"
	ErrorCodeProviderError   ErrorCode = "completion_provider_error"
	ErrorCodePayloadTooLarge ErrorCode = "payload_too_large"
	ErrorCodeRateLimited     ErrorCode = "rate_limited"
	ErrorCodeInternalError   ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ExampleResponse is one corpus entry.
type ExampleResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
}

// ExampleListResponse lists the indexed corpus.
type ExampleListResponse struct {
	Items []ExampleResponse `json:"items"`
	Total int               `json:"total"`
}

// MatchResponse is one ranked search hit.
type MatchResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// SearchResponse holds ranked matches for a query.
type SearchResponse struct {
	Query   string          `json:"query"`
	K       int             `json:"k"`
	Matches []MatchResponse `json:"matches"`
}

// SchemaResponse exposes the active output schema.
type SchemaResponse struct {
	Schema   json.RawMessage `json:"schema"`
	Required []string        `json:"required"`
}

// ViolationResponse is one validation problem.
type ViolationResponse struct {
	Path    string `json:"path"`
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

// ValidateResponse is the verdict for a candidate document.
type ValidateResponse struct {
	Valid      bool                `json:"valid"`
	Errors     []string            `json:"errors"`
	Violations []ViolationResponse `json:"violations"`
	Coverage   float64             `json:"coverage"`
}

// GenerateRequest asks for a workflow config built from a free-text query.
type GenerateRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

// CompletionResponse describes how the model answer was produced.
type CompletionResponse struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Offline          bool   `json:"offline"`
	Cached           bool   `json:"cached"`
	Note             string `json:"note,omitempty"`
	Text             string `json:"text"`
}

// GenerateResponse is the full pipeline result.
type GenerateResponse struct {
	ID         string             `json:"id"`
	Query      string             `json:"query"`
	Matches    []MatchResponse    `json:"matches"`
	Prompt     string             `json:"prompt"`
	Completion CompletionResponse `json:"completion"`
	Output     json.RawMessage    `json:"output"`
	ParseError string             `json:"parse_error,omitempty"`
	Validation ValidateResponse   `json:"validation"`
	DurationMs int64              `json:"duration_ms"`
}

// ReloadResponse describes the index published by a reload.
type ReloadResponse struct {
	Documents      int       `json:"documents"`
	VocabularySize int       `json:"vocabulary_size"`
	Generation     uint64    `json:"generation"`
	BuiltAt        time.Time `json:"built_at"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
