package retrieve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
	"github.com/kailas-cloud/wfassist/internal/metrics"
)

// Stats describes the published index.
type Stats struct {
	Documents      int
	VocabularySize int
	Generation     uint64
	BuiltAt        time.Time
}

// Service ranks corpus examples against free-text queries.
type Service struct {
	index  Publisher
	corpus CorpusLoader
	limits request.Limits
	logger *zap.Logger
}

// New creates a retrieval service. Call Reload before serving queries.
func New(idx Publisher, corpus CorpusLoader, limits request.Limits, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: idx, corpus: corpus, limits: limits, logger: logger}
}

// Limits returns the request bounds the service was configured with.
func (s *Service) Limits() request.Limits { return s.limits }

// Search ranks the current snapshot against the request.
func (s *Service) Search(_ context.Context, req request.Request) ([]tfidf.Match, error) {
	snap, err := s.index.Current()
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("current index: %w", err)
	}

	matches, err := snap.Rank(req.Query(), req.K())
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("rank: %w", err)
	}

	if req.MinScore() > 0 {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Score >= req.MinScore() {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	metrics.RetrievalRequestsTotal.WithLabelValues("ok").Inc()
	if len(matches) > 0 {
		metrics.RetrievalTopScore.Observe(matches[0].Score)
	}
	return matches, nil
}

// Reload re-reads the corpus and publishes a fresh index. The previous
// snapshot keeps serving if anything fails.
func (s *Service) Reload(_ context.Context) (Stats, error) {
	examples, err := s.corpus.LoadExamples()
	if err != nil {
		metrics.IndexReloadsTotal.WithLabelValues("error").Inc()
		return Stats{}, fmt.Errorf("load corpus: %w", err)
	}

	snap, err := s.index.Rebuild(examples)
	if err != nil {
		metrics.IndexReloadsTotal.WithLabelValues("error").Inc()
		return Stats{}, err
	}

	st := statsOf(snap.Index, snap.Generation, snap.BuiltAt)
	metrics.IndexReloadsTotal.WithLabelValues("ok").Inc()
	metrics.IndexDocuments.Set(float64(st.Documents))
	metrics.IndexVocabularySize.Set(float64(st.VocabularySize))

	s.logger.Info("index published",
		zap.Int("documents", st.Documents),
		zap.Int("vocabulary_size", st.VocabularySize),
		zap.Uint64("generation", st.Generation),
	)
	return st, nil
}

// Stats reports on the current snapshot.
func (s *Service) Stats(_ context.Context) (Stats, error) {
	snap, err := s.index.Current()
	if err != nil {
		return Stats{}, fmt.Errorf("current index: %w", err)
	}
	return statsOf(snap.Index, snap.Generation, snap.BuiltAt), nil
}

// List returns the indexed examples in corpus order.
func (s *Service) List(_ context.Context) ([]example.Example, error) {
	snap, err := s.index.Current()
	if err != nil {
		return nil, fmt.Errorf("current index: %w", err)
	}
	return snap.Examples(), nil
}

// Get returns one indexed example.
func (s *Service) Get(_ context.Context, id string) (example.Example, error) {
	snap, err := s.index.Current()
	if err != nil {
		return example.Example{}, fmt.Errorf("current index: %w", err)
	}
	ex, ok := snap.Example(id)
	if !ok {
		return example.Example{}, fmt.Errorf("example %q: %w", id, domain.ErrNotFound)
	}
	return ex, nil
}

// Ready reports whether a snapshot has been published.
func (s *Service) Ready(_ context.Context) error {
	_, err := s.index.Current()
	return err
}

func statsOf(ix *tfidf.Index, gen uint64, builtAt time.Time) Stats {
	return Stats{
		Documents:      ix.Len(),
		VocabularySize: ix.Vocabulary().Size(),
		Generation:     gen,
		BuiltAt:        builtAt,
	}
}
