package sdk

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/wfassist/internal/domain"
)

// Sentinel errors matched by *APIError. Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidK           = domain.ErrInvalidK
	ErrInvalidQuery       = domain.ErrInvalidQuery
	ErrInvalidSchema      = domain.ErrInvalidSchema
	ErrEmptyCorpus        = domain.ErrEmptyCorpus
	ErrNotReady           = domain.ErrIndexNotReady
	ErrCompletionProvider = domain.ErrCompletionProvider
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPayloadTooLarge    = errors.New("payload too large")
)

var codeSentinels = map[string]error{
	"not_found":                 ErrNotFound,
	"invalid_k":                 ErrInvalidK,
	"invalid_query":             ErrInvalidQuery,
	"invalid_schema":            ErrInvalidSchema,
	"empty_corpus":              ErrEmptyCorpus,
	"not_ready":                 ErrNotReady,
	"completion_provider_error": ErrCompletionProvider,
	"unauthorized":              ErrUnauthorized,
	"payload_too_large":         ErrPayloadTooLarge,
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("wfassist: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wfassist: http %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is matches the sentinel for the reply's error code.
func (e *APIError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}
