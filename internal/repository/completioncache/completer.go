// Package completioncache memoizes LLM completions in a key-value store.
package completioncache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/db"
	"github.com/kailas-cloud/wfassist/internal/domain"
)

const keySpace = "completion:"

// store is the consumer interface for the completion cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedCompleter caches completions keyed by model and prompt.
type CachedCompleter struct {
	inner      domain.Completer
	store      store
	prefix     string
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Options configures the cache decorator.
type Options struct {
	// Prefix namespaces keys, e.g. "wfassist:".
	Prefix string
	// Model participates in the key so switching models never serves stale output.
	Model string
	// TTL bounds entry lifetime. Zero keeps entries until the store evicts them.
	TTL time.Duration
	// CacheTotal is a counter vec with label "result" ("hit"/"miss"). Optional.
	CacheTotal *prometheus.CounterVec
}

// New creates a caching decorator around inner.
func New(inner domain.Completer, s store, opts Options, logger *zap.Logger) *CachedCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCompleter{
		inner:      inner,
		store:      s,
		prefix:     opts.Prefix,
		model:      opts.Model,
		ttl:        opts.TTL,
		cacheTotal: opts.CacheTotal,
		logger:     logger,
	}
}

// Complete returns a cached completion or calls the inner completer.
// Hits report zero token usage. Offline placeholders are never stored.
func (c *CachedCompleter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	key := c.cacheKey(prompt)

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}

	c.incCache("miss")

	result, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete prompt: %w", err)
	}

	if !result.Offline {
		c.putToCache(ctx, key, result)
	}
	return result, nil
}

// HealthCheck delegates to the inner completer when it supports health checks.
func (c *CachedCompleter) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedCompleter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedCompleter) cacheKey(prompt string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	return c.prefix + keySpace + hex.EncodeToString(h[:])
}

type cachedEntry struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (c *CachedCompleter) getFromCache(ctx context.Context, key string) (domain.CompletionResult, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
		}
		return domain.CompletionResult{}, false
	}
	var e cachedEntry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached completion", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return domain.CompletionResult{}, false
	}

	return domain.CompletionResult{
		Text:     e.Text,
		Provider: e.Provider,
		Model:    e.Model,
		Cached:   true,
	}, true
}

func (c *CachedCompleter) putToCache(ctx context.Context, key string, res domain.CompletionResult) {
	data, err := json.Marshal(cachedEntry{Text: res.Text, Provider: res.Provider, Model: res.Model})
	if err != nil {
		c.logger.Warn("Failed to encode completion", zap.String("key", key), zap.Error(err))
		return
	}
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
	}
}

// evict drops an undecodable entry so the fresh completion can replace it.
func (c *CachedCompleter) evict(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.logger.Warn("Failed to evict cached completion", zap.String("key", key), zap.Error(err))
	}
}
