package wfassist

import "github.com/kailas-cloud/wfassist/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrAlreadyExists = domain.ErrAlreadyExists
	ErrEmptyCorpus   = domain.ErrEmptyCorpus
	ErrInvalidK      = domain.ErrInvalidK
	ErrInvalidQuery  = domain.ErrInvalidQuery
	ErrInvalidSchema = domain.ErrInvalidSchema
)

// InvalidKError carries the rejected k. Returned wrapped; use errors.As.
type InvalidKError = domain.InvalidKError

// SchemaError locates a malformed schema node. Returned wrapped; use errors.As.
type SchemaError = domain.SchemaError
