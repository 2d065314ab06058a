package tfidf

import (
	"math"
	"sort"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
)

// ScorePrecision is the number of decimals kept in returned scores.
const ScorePrecision = 4

// Match is one ranked example.
type Match struct {
	Example example.Example
	Score   float64
	// Position is the example's place in corpus order.
	Position int
}

// Rank scores query against every example and returns the best min(k, Len()) matches,
// highest score first. Equal scores keep corpus order.
func (ix *Index) Rank(query string, k int) ([]Match, error) {
	if k < 1 {
		return nil, domain.NewInvalidK(k)
	}
	if k > len(ix.examples) {
		k = len(ix.examples)
	}

	q := ix.vocab.Encode(query)
	qn := q.Norm()

	type scored struct {
		pos   int
		score float64
	}
	all := make([]scored, len(ix.vectors))
	for i, d := range ix.vectors {
		s := 0.0
		if qn != 0 && ix.norms[i] != 0 {
			s = q.Dot(d) / (qn * ix.norms[i])
		}
		all[i] = scored{pos: i, score: s}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].score > all[b].score })

	out := make([]Match, k)
	for i := 0; i < k; i++ {
		out[i] = Match{
			Example:  ix.examples[all[i].pos],
			Score:    Round(all[i].score, ScorePrecision),
			Position: all[i].pos,
		}
	}
	return out, nil
}

// Round rounds x to the given number of decimals, halves away from zero.
func Round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
