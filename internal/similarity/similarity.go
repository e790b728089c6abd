package similarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/teemow/inboxtriage/internal/features"
)

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("invalid distance weights")

// Weights sets the contribution of each distance component.
type Weights struct {
	Domain    float64 `yaml:"domain"`
	Bulk      float64 `yaml:"bulk"`
	Subject   float64 `yaml:"subject"`
	Embedding float64 `yaml:"embedding"`
}

// DefaultWeights gives the sender domain and the embedding equal say, with
// the bulk flag and subject overlap as tie-breakers.
func DefaultWeights() Weights {
	return Weights{Domain: 1.0, Bulk: 0.5, Subject: 0.5, Embedding: 1.0}
}

// Validate rejects negative, non-finite or all-zero weights.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"domain": w.Domain, "bulk": w.Bulk, "subject": w.Subject, "embedding": w.Embedding,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight must be a finite non-negative number, got %v", ErrInvalidWeights, name, v)
		}
	}
	if w.Domain+w.Bulk+w.Subject+w.Embedding == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return nil
}

// Engine computes blended distances. It is stateless and safe for
// concurrent use.
type Engine struct {
	w Weights
}

// NewEngine returns an Engine using w.
func NewEngine(w Weights) *Engine {
	return &Engine{w: w}
}

// Weights returns the configured weights.
func (e *Engine) Weights() Weights {
	return e.w
}

// Distance returns the blended distance between a and b.
func (e *Engine) Distance(a, b features.FeatureVector) float64 {
	var d float64
	if a.SenderDomain != b.SenderDomain {
		d += e.w.Domain
	}
	if a.Bulk() != b.Bulk() {
		d += e.w.Bulk
	}
	d += e.w.Subject * JaccardDistance(a.SubjectTokens, b.SubjectTokens)
	d += e.w.Embedding * CosineDistance(a.Embedding, b.Embedding)
	return d
}

// Matrix returns the symmetric pairwise distance matrix of vs. Only the
// upper triangle is computed; the diagonal is zero.
func (e *Engine) Matrix(vs []features.FeatureVector) *mat.SymDense {
	n := len(vs)
	if n == 0 {
		return nil
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, e.Distance(vs[i], vs[j]))
		}
	}
	return m
}

// CosineDistance returns 1 - cos(a, b) clamped to [0, 2]. Two zero vectors
// are at distance 0; a zero vector is at distance 1 from anything else.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	switch {
	case na == 0 && nb == 0:
		return 0
	case na == 0 || nb == 0:
		return 1
	}
	d := 1 - floats.Dot(a, b)/(na*nb)
	// Rounding can leave identical vectors a few ulps away from zero.
	if d < 1e-12 {
		return 0
	}
	return math.Min(d, 2)
}

// JaccardDistance returns 1 - |A∩B|/|A∪B| over the distinct tokens of a and
// b. Two empty sets are at distance 0.
func JaccardDistance(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	inter := 0
	for _, bits := range set {
		if bits == 3 {
			inter++
		}
	}
	return 1 - float64(inter)/float64(len(set))
}
