package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyCorpus signals an attempt to index zero examples.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrInvalidK signals a non-positive result count.
	ErrInvalidK = errors.New("invalid k")
	// ErrInvalidQuery signals an empty or oversized query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrIndexNotReady signals that no index has been published yet.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrCompletionProvider signals a completion provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
	// ErrUnparseableOutput signals model output that is not a JSON object.
	ErrUnparseableOutput = errors.New("unparseable output")
)

// InvalidKError wraps ErrInvalidK with the rejected value.
type InvalidKError struct {
	K int
}

func (e *InvalidKError) Error() string {
	return fmt.Sprintf("%s: k must be >= 1, got %d", ErrInvalidK.Error(), e.K)
}

func (e *InvalidKError) Unwrap() error { return ErrInvalidK }

// NewInvalidK creates an invalid k error.
func NewInvalidK(k int) error {
	return &InvalidKError{K: k}
}

// SchemaError wraps ErrInvalidSchema with the location of the malformed node.
type SchemaError struct {
	Path   []string
	Reason string
}

func (e *SchemaError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidSchema.Error(), e.Reason)
	}
	return fmt.Sprintf("%s at %s: %s", ErrInvalidSchema.Error(), strings.Join(e.Path, "."), e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrInvalidSchema }

// NewSchemaError creates a schema error at the given node path.
func NewSchemaError(path []string, reason string) error {
	p := make([]string, len(path))
	copy(p, path)
	return &SchemaError{Path: p, Reason: reason}
}

// OutputParseError wraps ErrUnparseableOutput with the parser's reason.
type OutputParseError struct {
	Reason string
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnparseableOutput.Error(), e.Reason)
}

func (e *OutputParseError) Unwrap() error { return ErrUnparseableOutput }

// NewOutputParseError creates an output parse error.
func NewOutputParseError(reason string) error {
	return &OutputParseError{Reason: reason}
}
