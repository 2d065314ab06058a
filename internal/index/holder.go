// Package index publishes the current retrieval index to concurrent readers.
package index

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
)

// Snapshot is an index together with its publication metadata.
type Snapshot struct {
	*tfidf.Index
	Generation uint64
	BuiltAt    time.Time
}

// Holder owns the published snapshot. Readers never block; a rebuild is
// constructed off to the side and swapped in atomically.
type Holder struct {
	current atomic.Pointer[Snapshot]
	// mu serializes rebuilds so generations stay monotonic.
	mu  sync.Mutex
	gen uint64
	now func() time.Time
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{now: time.Now}
}

// Current returns the published snapshot.
func (h *Holder) Current() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, domain.ErrIndexNotReady
	}
	return s, nil
}

// Rebuild indexes examples and publishes the result. On failure the previous
// snapshot stays in place.
func (h *Holder) Rebuild(examples []example.Example) (*Snapshot, error) {
	ix, err := tfidf.NewIndex(examples)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	s := &Snapshot{Index: ix, Generation: h.gen, BuiltAt: h.now()}
	h.current.Store(s)
	return s, nil
}
