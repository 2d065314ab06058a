package tfidf

import "math"

// Vector is a sparse term-weight vector keyed by vocabulary position.
type Vector map[int]float64

// Norm returns the L2 magnitude.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product, iterating the smaller operand.
func (v Vector) Dot(o Vector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for p, w := range v {
		sum += w * o[p]
	}
	return sum
}

// Cosine returns dot/(|v|*|o|), or 0 when either vector is empty.
func Cosine(v, o Vector) float64 {
	nv, no := v.Norm(), o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	return v.Dot(o) / (nv * no)
}

// Encode tokenizes text and weights it against the vocabulary.
func (v *Vocabulary) Encode(text string) Vector {
	return v.EncodeTokens(Tokenize(text))
}

// EncodeTokens weights pre-tokenized text: raw term count times IDF.
// Terms outside the vocabulary are dropped.
func (v *Vocabulary) EncodeTokens(tokens []string) Vector {
	vec := make(Vector)
	for _, tok := range tokens {
		if p, ok := v.positions[tok]; ok {
			vec[p]++
		}
	}
	for p, tf := range vec {
		vec[p] = tf * v.idf[p]
	}
	return vec
}
