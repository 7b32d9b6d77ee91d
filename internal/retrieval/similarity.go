// Package retrieval ranks corpus chunks against a question and assembles the
// grounding context handed to the generator.
package retrieval

import "math"

// Cosine returns dot(a,b) / (|a|*|b|). A zero norm on either side uses a
// denominator of 1 so the score is 0 instead of NaN. Vectors of different
// length are compared over the shorter prefix.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		denom = 1
	}
	return dot / denom
}
