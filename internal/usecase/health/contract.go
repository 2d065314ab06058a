package health

import "context"

// IndexReadiness reports whether a searchable index has been published.
type IndexReadiness interface {
	Ready(ctx context.Context) error
}

// CachePinger checks completion cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// CompletionChecker checks completion provider availability.
type CompletionChecker interface {
	HealthCheck(ctx context.Context) error
}
