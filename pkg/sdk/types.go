package sdk

import (
	"encoding/json"
	"time"
)

// Example is one corpus entry.
type Example struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
}

// Match is one ranked search hit.
type Match struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// SearchResult holds ranked matches for a query.
type SearchResult struct {
	Query   string  `json:"query"`
	K       int     `json:"k"`
	Matches []Match `json:"matches"`
}

// Violation is one validation problem.
type Violation struct {
	Path    string `json:"path"`
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

// Validation is the verdict for a candidate document.
type Validation struct {
	Valid      bool        `json:"valid"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations"`
	Coverage   float64     `json:"coverage"`
}

// Schema is the server's active output schema.
type Schema struct {
	Schema   json.RawMessage `json:"schema"`
	Required []string        `json:"required"`
}

// Completion describes how the model answer was produced.
type Completion struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	Offline          bool   `json:"offline"`
	Cached           bool   `json:"cached"`
	Note             string `json:"note,omitempty"`
	Text             string `json:"text"`
}

// Generation is the full pipeline result for one query.
type Generation struct {
	ID         string          `json:"id"`
	Query      string          `json:"query"`
	Matches    []Match         `json:"matches"`
	Prompt     string          `json:"prompt"`
	Completion Completion      `json:"completion"`
	Output     json.RawMessage `json:"output"`
	ParseError string          `json:"parse_error,omitempty"`
	Validation Validation      `json:"validation"`
	DurationMs int64           `json:"duration_ms"`
}

// ReloadResult describes the index published by a reload.
type ReloadResult struct {
	Documents      int       `json:"documents"`
	VocabularySize int       `json:"vocabulary_size"`
	Generation     uint64    `json:"generation"`
	BuiltAt        time.Time `json:"built_at"`
}

// Health reports component health.
type Health struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

type exampleList struct {
	Items []Example `json:"items"`
	Total int       `json:"total"`
}

type generateRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
