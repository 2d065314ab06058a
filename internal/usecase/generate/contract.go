package generate

import (
	"context"

	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
)

// Retriever ranks reference examples for a request.
type Retriever interface {
	Search(ctx context.Context, req request.Request) ([]tfidf.Match, error)
}

// Checker validates generated output against the active schema.
type Checker interface {
	Schema() (*schema.Node, error)
	Check(ctx context.Context, candidate value.Value) (verdict.Report, error)
}
