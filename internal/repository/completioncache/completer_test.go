package completioncache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/db"
	"github.com/kailas-cloud/wfassist/internal/db/redis"
	"github.com/kailas-cloud/wfassist/internal/domain"
)

func TestComplete_CacheMiss(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{
		Text:         `{"id":"x"}`,
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		PromptTokens: 42,
	}}
	cc, ms := newTestCachedCompleter(t, inner)

	var setKey string
	var setTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		return nil
	}

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cached {
		t.Error("miss must not be marked cached")
	}
	if res.PromptTokens != 42 {
		t.Errorf("expected PromptTokens=42, got %d", res.PromptTokens)
	}
	if !strings.HasPrefix(setKey, "wfassist:completion:") {
		t.Errorf("unexpected key %q", setKey)
	}
	if setTTL != time.Hour {
		t.Errorf("expected ttl 1h, got %v", setTTL)
	}
}

func TestComplete_CacheHit(t *testing.T) {
	inner := &mockCompleter{}
	cc, ms := newTestCachedCompleter(t, inner)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte(`{"text":"cached","provider":"openai","model":"gpt-4o-mini"}`), nil
	}

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Cached || res.Text != "cached" {
		t.Fatalf("expected cached result, got %+v", res)
	}
	if res.PromptTokens != 0 || res.CompletionTokens != 0 {
		t.Error("cache hit must report zero tokens")
	}
	if inner.calls != 0 {
		t.Errorf("inner should not be called on hit, got %d calls", inner.calls)
	}
}

func TestComplete_InnerError(t *testing.T) {
	inner := &mockCompleter{err: domain.ErrCompletionProvider}
	cc, _ := newTestCachedCompleter(t, inner)

	_, err := cc.Complete(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrCompletionProvider) {
		t.Fatalf("expected ErrCompletionProvider, got %v", err)
	}
}

func TestComplete_OfflineNotStored(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "{}", Offline: true}}
	cc, ms := newTestCachedCompleter(t, inner)

	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("offline output must not be cached")
		return nil
	}

	if _, err := cc.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_StoreErrorsDegradeGracefully(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "ok"}}
	cc, ms := newTestCachedCompleter(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return nil, errors.New("conn refused") }
	ms.setFn = func(context.Context, string, []byte, time.Duration) error { return errors.New("conn refused") }

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("store errors must not fail completion: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestComplete_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "fresh"}}
	cc, ms := newTestCachedCompleter(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte("not json"), nil }
	var deleted, stored string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}
	ms.setFn = func(_ context.Context, key string, _ []byte, _ time.Duration) error {
		stored = key
		return nil
	}

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "fresh" || inner.calls != 1 {
		t.Errorf("expected fall-through to inner, got %+v (calls=%d)", res, inner.calls)
	}
	if deleted == "" || deleted != stored {
		t.Errorf("corrupt entry should be evicted and replaced: del=%q set=%q", deleted, stored)
	}
}

func TestComplete_EvictErrorDegradesGracefully(t *testing.T) {
	inner := &mockCompleter{result: domain.CompletionResult{Text: "fresh"}}
	cc, ms := newTestCachedCompleter(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) { return []byte("{"), nil }
	ms.delFn = func(context.Context, string) error { return errors.New("conn refused") }

	if res, err := cc.Complete(context.Background(), "prompt"); err != nil || res.Text != "fresh" {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	a := New(&mockCompleter{}, &mockKVStore{}, Options{Model: "a"}, nil)
	b := New(&mockCompleter{}, &mockKVStore{}, Options{Model: "b"}, nil)
	if a.cacheKey("p") == b.cacheKey("p") {
		t.Error("keys for different models must differ")
	}
	if a.cacheKey("p") != a.cacheKey("p") {
		t.Error("key must be deterministic")
	}
}

func TestComplete_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	inner := &mockCompleter{result: domain.CompletionResult{Text: "x"}}
	stored := map[string][]byte{}
	ms := &mockKVStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if v, ok := stored[key]; ok {
				return v, nil
			}
			return nil, db.ErrKeyNotFound
		},
		setFn: func(_ context.Context, key string, v []byte, _ time.Duration) error {
			stored[key] = v
			return nil
		},
	}
	cc := New(inner, ms, Options{CacheTotal: counter}, zap.NewNop())

	for range 3 {
		if _, err := cc.Complete(context.Background(), "same prompt"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit = %v, want 2", got)
	}
}

func TestHealthCheck_Delegates(t *testing.T) {
	inner := &mockCompleter{health: errors.New("down")}
	cc, _ := newTestCachedCompleter(t, inner)
	if err := cc.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected delegated error")
	}
}

func TestComplete_WithRedisStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "GET" && strings.HasPrefix(cmd[1], "wf:completion:")
		})).
		Return(mock.Result(mock.RedisNil()))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && strings.HasPrefix(cmd[1], "wf:completion:")
		})).
		Return(mock.Result(mock.RedisString("OK")))

	inner := &mockCompleter{result: domain.CompletionResult{Text: "generated", Provider: "openai"}}
	cc := New(inner, redis.NewStoreForTest(c), Options{Prefix: "wf:", TTL: time.Minute}, zap.NewNop())

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "generated" {
		t.Errorf("unexpected text %q", res.Text)
	}
}

func TestComplete_WithRedisStore_NoExpiry(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "GET" })).
		Return(mock.Result(mock.RedisNil()))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			// No EX argument without a TTL.
			return cmd[0] == "SET" && len(cmd) == 3
		})).
		Return(mock.Result(mock.RedisString("OK")))

	inner := &mockCompleter{result: domain.CompletionResult{Text: "generated", Provider: "openai"}}
	cc := New(inner, redis.NewStoreForTest(c), Options{Prefix: "wf:"}, zap.NewNop())

	if _, err := cc.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_WithRedisStore_EvictsCorruptEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "GET" })).
			Return(mock.Result(mock.RedisString("garbage"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "DEL" && strings.HasPrefix(cmd[1], "wf:completion:")
			})).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SET" })).
			Return(mock.Result(mock.RedisString("OK"))),
	)

	inner := &mockCompleter{result: domain.CompletionResult{Text: "generated", Provider: "openai"}}
	cc := New(inner, redis.NewStoreForTest(c), Options{Prefix: "wf:", TTL: time.Minute}, zap.NewNop())

	res, err := cc.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cached || res.Text != "generated" {
		t.Errorf("unexpected result %+v", res)
	}
}
