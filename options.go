package wfassist

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	examples   []Example
	schemaDoc  any
	schemaJSON []byte

	maxK           int
	maxQueryLength int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithExamples sets the reference corpus. Repeated calls append.
func WithExamples(examples ...Example) Option {
	return optionFunc(func(c *clientConfig) {
		c.examples = append(c.examples, examples...)
	})
}

// WithSchema sets the output schema from a decoded JSON document,
// e.g. map[string]any.
func WithSchema(doc any) Option {
	return optionFunc(func(c *clientConfig) {
		c.schemaDoc = doc
		c.schemaJSON = nil
	})
}

// WithSchemaJSON sets the output schema from raw JSON.
func WithSchemaJSON(data []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.schemaJSON = data
		c.schemaDoc = nil
	})
}

// WithMaxK caps the number of results a search may return. Default: 20.
func WithMaxK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxK = k
	})
}

// WithMaxQueryLength caps query length in characters. Default: 4096.
func WithMaxQueryLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQueryLength = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
