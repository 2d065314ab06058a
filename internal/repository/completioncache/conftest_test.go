package completioncache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/db"
	"github.com/kailas-cloud/wfassist/internal/domain"
)

type mockCompleter struct {
	result domain.CompletionResult
	err    error
	calls  int
	health error
}

func (m *mockCompleter) Complete(_ context.Context, _ string) (domain.CompletionResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockCompleter) HealthCheck(context.Context) error { return m.health }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, key string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

// Set reports a zero ttl to setFn.
func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	return m.SetWithTTL(ctx, key, value, 0)
}

func (m *mockKVStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedCompleter(t *testing.T, inner *mockCompleter) (*CachedCompleter, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cc := New(inner, ms, Options{Prefix: "wfassist:", Model: "gpt-4o-mini", TTL: time.Hour}, zap.NewNop())
	return cc, ms
}
