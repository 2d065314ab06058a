package tfidf

import (
	"fmt"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
)

// Index is an immutable TF-IDF index over a fixed list of examples.
// It is safe for concurrent use.
type Index struct {
	examples []example.Example
	byID     map[string]int
	vocab    *Vocabulary
	vectors  []Vector
	norms    []float64
}

// NewIndex builds the vocabulary and one vector per example, in input order.
func NewIndex(examples []example.Example) (*Index, error) {
	if len(examples) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	texts := make([]string, len(examples))
	byID := make(map[string]int, len(examples))
	for i, ex := range examples {
		if _, dup := byID[ex.ID()]; dup {
			return nil, fmt.Errorf("example %q: %w", ex.ID(), domain.ErrAlreadyExists)
		}
		byID[ex.ID()] = i
		texts[i] = ex.Text()
	}

	vocab, tokens, err := Build(texts)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}

	vectors := make([]Vector, len(tokens))
	norms := make([]float64, len(tokens))
	for i, toks := range tokens {
		vectors[i] = vocab.EncodeTokens(toks)
		norms[i] = vectors[i].Norm()
	}

	cp := make([]example.Example, len(examples))
	copy(cp, examples)
	return &Index{examples: cp, byID: byID, vocab: vocab, vectors: vectors, norms: norms}, nil
}

// Len returns the number of indexed examples.
func (ix *Index) Len() int { return len(ix.examples) }

// Vocabulary returns the shared vocabulary.
func (ix *Index) Vocabulary() *Vocabulary { return ix.vocab }

// Examples returns a copy of the indexed examples in corpus order.
func (ix *Index) Examples() []example.Example {
	cp := make([]example.Example, len(ix.examples))
	copy(cp, ix.examples)
	return cp
}

// Example looks up an example by ID.
func (ix *Index) Example(id string) (example.Example, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return example.Example{}, false
	}
	return ix.examples[i], true
}

// Vector returns the stored vector of the i-th example.
func (ix *Index) Vector(i int) Vector { return ix.vectors[i] }
