package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
	"github.com/kailas-cloud/wfassist/internal/prompt"
)

// Generation is the outcome of one pipeline run. A model answer that is not a
// JSON object still produces a Generation with ParseError set.
type Generation struct {
	// ID correlates the run across logs and API responses.
	ID         string
	Query      string
	Matches    []tfidf.Match
	Prompt     string
	Completion domain.CompletionResult
	Output     value.Value
	ParseError error
	Report     verdict.Report
	Duration   time.Duration
}

// Service runs retrieve, prompt, complete, parse and check in sequence.
type Service struct {
	retriever Retriever
	checker   Checker
	completer domain.Completer
	logger    *zap.Logger
}

// New creates a generation service.
func New(retriever Retriever, checker Checker, completer domain.Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{retriever: retriever, checker: checker, completer: completer, logger: logger}
}

// Generate runs the pipeline for req.
func (s *Service) Generate(ctx context.Context, req request.Request) (Generation, error) {
	start := time.Now()

	sch, err := s.checker.Schema()
	if err != nil {
		return Generation{}, fmt.Errorf("schema: %w", err)
	}

	matches, err := s.retriever.Search(ctx, req)
	if err != nil {
		return Generation{}, fmt.Errorf("retrieve: %w", err)
	}

	g := Generation{
		ID:      uuid.NewString(),
		Query:   req.Query(),
		Matches: matches,
		Prompt:  prompt.Build(req.Query(), matches, sch),
	}

	g.Completion, err = s.completer.Complete(ctx, g.Prompt)
	if err != nil {
		return Generation{}, fmt.Errorf("complete: %w", err)
	}

	candidate, perr := ParseOutput(g.Completion.Text)
	if perr != nil {
		g.ParseError = perr
		candidate = value.FromObject(nil)
		s.logger.Warn("model output is not a JSON object",
			zap.String("generation_id", g.ID),
			zap.String("provider", g.Completion.Provider),
			zap.Error(perr),
		)
	}
	g.Output = candidate

	g.Report, err = s.checker.Check(ctx, candidate)
	if err != nil {
		return Generation{}, fmt.Errorf("check: %w", err)
	}

	g.Duration = time.Since(start)
	s.logger.Info("generation finished",
		zap.String("generation_id", g.ID),
		zap.Int("matches", len(matches)),
		zap.Bool("offline", g.Completion.Offline),
		zap.Bool("cached", g.Completion.Cached),
		zap.Bool("valid", g.Report.Valid),
		zap.Float64("coverage", g.Report.Coverage),
		zap.Duration("duration", g.Duration),
	)
	return g, nil
}
