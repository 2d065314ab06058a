package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the index cannot serve queries.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as keys in Report.Checks.
const (
	ComponentIndex = "index"
	ComponentCache = "cache"
	ComponentLLM   = "llm"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index IndexReadiness
	cache CachePinger
	llm   CompletionChecker
}

// New creates a Service. cache and llm can be nil.
func New(index IndexReadiness, cache CachePinger, llm CompletionChecker) *Service {
	return &Service{index: index, cache: cache, llm: llm}
}

// Check runs health checks against all components.
// A missing index is fatal; cache or provider failures only degrade.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentIndex] = result(s.index.Ready(ctx))
	if s.cache != nil {
		checks[ComponentCache] = result(s.cache.Ping(ctx))
	}
	if s.llm != nil {
		checks[ComponentLLM] = result(s.llm.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentIndex] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
