package check

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/metrics"
	"github.com/kailas-cloud/wfassist/internal/validation"
)

// Service validates candidate outputs against the active schema.
type Service struct {
	schema atomic.Pointer[schema.Node]
	loader SchemaLoader
	logger *zap.Logger
}

// New creates a check service. Call Reload before checking candidates.
func New(loader SchemaLoader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, logger: logger}
}

// Reload re-reads the schema. A malformed schema is rejected and the previous one kept.
func (s *Service) Reload(_ context.Context) error {
	n, err := s.loader.LoadSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	s.schema.Store(n)
	s.logger.Info("schema published", zap.Strings("required", n.Required()))
	return nil
}

// Schema returns the active schema.
func (s *Service) Schema() (*schema.Node, error) {
	n := s.schema.Load()
	if n == nil {
		return nil, fmt.Errorf("schema: %w", domain.ErrIndexNotReady)
	}
	return n, nil
}

// Check validates candidate and scores its coverage. An invalid candidate is a
// normal result, not an error.
func (s *Service) Check(_ context.Context, candidate value.Value) (verdict.Report, error) {
	n, err := s.Schema()
	if err != nil {
		return verdict.Report{}, err
	}

	rep := validation.Check(candidate, n)
	result := "valid"
	if !rep.Valid {
		result = "invalid"
	}
	metrics.ValidationTotal.WithLabelValues(result).Inc()
	metrics.ValidationCoverage.Observe(rep.Coverage)
	return rep, nil
}

// CheckJSON parses raw JSON and checks it. Unparseable input yields an invalid
// report with a single root violation, with coverage scored as for {}.
func (s *Service) CheckJSON(ctx context.Context, raw []byte) (verdict.Report, error) {
	candidate, err := value.ParseJSON(raw)
	if err != nil {
		n, serr := s.Schema()
		if serr != nil {
			return verdict.Report{}, serr
		}
		// Coverage is scored as for an empty object, matching generation.
		cov := validation.Coverage(value.FromObject(nil), n)
		metrics.ValidationTotal.WithLabelValues("invalid").Inc()
		metrics.ValidationCoverage.Observe(cov)
		return verdict.Report{
			Result: verdict.Result{
				Valid:      false,
				Violations: []verdict.Violation{{Message: fmt.Sprintf("invalid JSON: %v", err)}},
			},
			Coverage: cov,
		}, nil
	}
	return s.Check(ctx, candidate)
}
