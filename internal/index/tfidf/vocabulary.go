// Package tfidf implements term-weighted sparse vectors and cosine ranking
// over a small, immutable corpus.
package tfidf

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/wfassist/internal/domain"
)

// Tokenize lowercases text and splits it on every rune that is not a letter or digit.
// It is used unchanged at index and query time.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Vocabulary maps terms to positions and holds one IDF weight per position.
type Vocabulary struct {
	positions map[string]int
	terms     []string
	idf       []float64
}

// Build tokenizes texts and derives the vocabulary. It also returns each
// text's token list in input order.
func Build(texts []string) (*Vocabulary, [][]string, error) {
	if len(texts) == 0 {
		return nil, nil, domain.ErrEmptyCorpus
	}

	tokens := make([][]string, len(texts))
	df := make(map[string]int)
	for i, t := range texts {
		toks := Tokenize(t)
		tokens[i] = toks
		seen := make(map[string]struct{}, len(toks))
		for _, tok := range toks {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(texts))
	v := &Vocabulary{
		positions: make(map[string]int, len(terms)),
		terms:     terms,
		idf:       make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.positions[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v, tokens, nil
}

// Size returns the number of distinct terms.
func (v *Vocabulary) Size() int { return len(v.terms) }

// Position returns the index assigned to term.
func (v *Vocabulary) Position(term string) (int, bool) {
	p, ok := v.positions[term]
	return p, ok
}

// Term returns the term at position p.
func (v *Vocabulary) Term(p int) string { return v.terms[p] }

// IDF returns the weight for position p.
func (v *Vocabulary) IDF(p int) float64 { return v.idf[p] }
