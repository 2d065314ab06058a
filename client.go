package wfassist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/search/request"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
	"github.com/kailas-cloud/wfassist/internal/index"
	"github.com/kailas-cloud/wfassist/internal/repository/corpus"
	"github.com/kailas-cloud/wfassist/internal/usecase/check"
	"github.com/kailas-cloud/wfassist/internal/usecase/retrieve"
	"github.com/kailas-cloud/wfassist/internal/validation"
)

// Client is the in-process workflow assistant. It is safe for concurrent use;
// searches keep running against the previous corpus while Reload builds a new one.
type Client struct {
	retrieve *retrieve.Service
	check    *check.Service
	corpus   *memoryCorpus
	limits   request.Limits
	obs      *observer
	reloadMu sync.Mutex
}

// New builds a Client from the configured corpus and schema.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	examples := corpus.FallbackExamples()
	if cfg.examples != nil {
		var err error
		if examples, err = toDomainExamples(cfg.examples); err != nil {
			return nil, fmt.Errorf("wfassist: %w", err)
		}
	}

	sch, err := buildSchema(cfg)
	if err != nil {
		return nil, fmt.Errorf("wfassist: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	limits := request.Limits{MaxK: cfg.maxK, MaxQueryLength: cfg.maxQueryLength}
	mc := &memoryCorpus{examples: examples}

	c := &Client{
		retrieve: retrieve.New(index.NewHolder(), mc, limits, zap.NewNop()),
		check:    check.New(staticSchema{node: sch}, zap.NewNop()),
		corpus:   mc,
		limits:   limits,
		obs:      obs,
	}

	ctx := context.Background()
	if _, err := c.retrieve.Reload(ctx); err != nil {
		return nil, fmt.Errorf("wfassist: build index: %w", err)
	}
	if err := c.check.Reload(ctx); err != nil {
		return nil, fmt.Errorf("wfassist: load schema: %w", err)
	}
	obs.corpusLoaded(len(examples))
	return c, nil
}

// Search returns the k examples most similar to query, best first.
// k < 1 fails with ErrInvalidK; k above the configured maximum is clamped.
func (c *Client) Search(ctx context.Context, query string, k int) (out []Match, err error) {
	defer func(start time.Time) { c.obs.searched(ctx, start, k, out, err) }(time.Now())

	req, err := request.New(query, k, 0, c.limits)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	matches, err := c.retrieve.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out = make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{Example: fromDomainExample(m.Example), Score: m.Score}
	}
	return out, nil
}

// Example returns one corpus entry by id.
func (c *Client) Example(ctx context.Context, id string) (Example, error) {
	ex, err := c.retrieve.Get(ctx, id)
	if err != nil {
		return Example{}, fmt.Errorf("example: %w", err)
	}
	return fromDomainExample(ex), nil
}

// Examples returns the indexed corpus in order.
func (c *Client) Examples(ctx context.Context) ([]Example, error) {
	list, err := c.retrieve.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("examples: %w", err)
	}
	out := make([]Example, len(list))
	for i, ex := range list {
		out[i] = fromDomainExample(ex)
	}
	return out, nil
}

// Validate checks doc against the schema. doc may be a decoded JSON value
// (map[string]any, []any, ...), raw JSON as []byte or json.RawMessage, or any
// value encoding/json can marshal.
func (c *Client) Validate(ctx context.Context, doc any) (Verdict, error) {
	rep, err := c.Check(ctx, doc)
	if err != nil {
		return Verdict{}, err
	}
	return rep.Verdict, nil
}

// Coverage returns the fraction of required top-level fields present in doc.
func (c *Client) Coverage(_ context.Context, doc any) (float64, error) {
	v, err := toValue(doc)
	if err != nil {
		return 0, fmt.Errorf("coverage: %w", err)
	}
	sch, err := c.check.Schema()
	if err != nil {
		return 0, fmt.Errorf("coverage: %w", err)
	}
	return validation.Coverage(v, sch), nil
}

// Check validates doc and scores its coverage in one pass.
func (c *Client) Check(ctx context.Context, doc any) (rep Report, err error) {
	defer func(start time.Time) { c.obs.checked(ctx, start, rep, err) }(time.Now())

	v, err := toValue(doc)
	if err != nil {
		return Report{}, fmt.Errorf("check: %w", err)
	}
	dr, err := c.check.Check(ctx, v)
	if err != nil {
		return Report{}, fmt.Errorf("check: %w", err)
	}
	return fromDomainReport(dr), nil
}

// Reload replaces the corpus and rebuilds the index. On error the previous
// corpus keeps serving.
func (c *Client) Reload(ctx context.Context, examples []Example) (err error) {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	defer func(start time.Time) {
		c.obs.reloaded(ctx, start, len(examples), c.corpus.size(), err)
	}(time.Now())

	converted, err := toDomainExamples(examples)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	prev := c.corpus.swap(converted)
	if _, err := c.retrieve.Reload(ctx); err != nil {
		c.corpus.swap(prev)
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// memoryCorpus feeds the retrieval service from memory.
type memoryCorpus struct {
	mu       sync.Mutex
	examples []example.Example
}

func (m *memoryCorpus) LoadExamples() ([]example.Example, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.examples, nil
}

func (m *memoryCorpus) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.examples)
}

func (m *memoryCorpus) swap(examples []example.Example) []example.Example {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.examples
	m.examples = examples
	return prev
}

type staticSchema struct {
	node *schema.Node
}

func (s staticSchema) LoadSchema() (*schema.Node, error) { return s.node, nil }

func buildSchema(cfg *clientConfig) (*schema.Node, error) {
	switch {
	case cfg.schemaJSON != nil:
		return schema.ParseJSON(cfg.schemaJSON)
	case cfg.schemaDoc != nil:
		v, err := toValue(cfg.schemaDoc)
		if err != nil {
			return nil, fmt.Errorf("schema document: %w", err)
		}
		return schema.Parse(v)
	default:
		return corpus.FallbackSchema(), nil
	}
}

func toValue(doc any) (value.Value, error) {
	switch d := doc.(type) {
	case []byte:
		return value.ParseJSON(d)
	case json.RawMessage:
		return value.ParseJSON(d)
	}
	if v, err := value.FromAny(doc); err == nil {
		return v, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return value.Value{}, fmt.Errorf("encode document: %w", err)
	}
	return value.ParseJSON(raw)
}

func toDomainExamples(in []Example) ([]example.Example, error) {
	out := make([]example.Example, len(in))
	for i, e := range in {
		cfg := value.NullValue()
		if e.Config != nil {
			v, err := toValue(e.Config)
			if err != nil {
				return nil, fmt.Errorf("example %q config: %w", e.ID, err)
			}
			cfg = v
		}
		ex, err := example.New(e.ID, e.Title, e.Description, cfg)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		out[i] = ex
	}
	return out, nil
}

func fromDomainExample(ex example.Example) Example {
	cfg, _ := ex.Config().ToAny().(map[string]any)
	return Example{
		ID:          ex.ID(),
		Title:       ex.Title(),
		Description: ex.Description(),
		Config:      cfg,
	}
}

func fromDomainReport(rep verdict.Report) Report {
	violations := make([]Violation, len(rep.Violations))
	for i, v := range rep.Violations {
		violations[i] = Violation{Path: v.Path.String(), Pointer: v.Path.Pointer(), Message: v.Message}
	}
	return Report{
		Verdict: Verdict{
			Valid:      rep.Valid,
			Errors:     rep.Messages(),
			Violations: violations,
		},
		Coverage: rep.Coverage,
	}
}
