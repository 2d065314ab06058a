package chi

import (
	"context"

	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
	"github.com/kailas-cloud/wfassist/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/wfassist/internal/usecase/health"
	"github.com/kailas-cloud/wfassist/internal/usecase/retrieve"
)

// Retriever serves corpus listing, search and reloads.
type Retriever interface {
	Limits() request.Limits
	Search(ctx context.Context, req request.Request) ([]tfidf.Match, error)
	List(ctx context.Context) ([]example.Example, error)
	Get(ctx context.Context, id string) (example.Example, error)
	Reload(ctx context.Context) (retrieve.Stats, error)
}

// Checker validates candidate documents.
type Checker interface {
	Schema() (*schema.Node, error)
	CheckJSON(ctx context.Context, raw []byte) (verdict.Report, error)
	Reload(ctx context.Context) error
}

// Generator runs the generation pipeline.
type Generator interface {
	Generate(ctx context.Context, req request.Request) (generate.Generation, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
