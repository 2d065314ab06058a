package request

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/wfassist/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the default maximum query length in characters.
	MaxQueryLength = 4096
	DefaultK       = 3
	MaxK           = 20
)

// Limits bounds request parameters; zero fields fall back to package defaults.
type Limits struct {
	MaxK           int
	MaxQueryLength int
}

func (l Limits) withDefaults() Limits {
	if l.MaxK <= 0 {
		l.MaxK = MaxK
	}
	if l.MaxQueryLength <= 0 {
		l.MaxQueryLength = MaxQueryLength
	}
	return l
}

// Request is a validated retrieval query.
type Request struct {
	query    string
	k        int
	minScore float64
}

// New validates and normalizes retrieval parameters.
// k < 1 is rejected with *domain.InvalidKError; k above the limit is clamped.
func New(query string, k int, minScore float64, limits Limits) (Request, error) {
	limits = limits.withDefaults()

	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if n := utf8.RuneCountInString(query); n > limits.MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (%d chars, max %d)", domain.ErrInvalidQuery, n, limits.MaxQueryLength)
	}
	if k < 1 {
		return Request{}, domain.NewInvalidK(k)
	}
	if k > limits.MaxK {
		k = limits.MaxK
	}
	if math.IsNaN(minScore) || minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidQuery)
	}
	return Request{query: query, k: k, minScore: minScore}, nil
}

// Query returns the trimmed query text.
func (r Request) Query() string { return r.query }

// K returns the requested result count after clamping.
func (r Request) K() int { return r.k }

// MinScore returns the post-ranking score floor.
func (r Request) MinScore() float64 { return r.minScore }
