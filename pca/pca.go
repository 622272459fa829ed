// Package pca fits a principal component decomposition over an image corpus.
package pca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultComponents is the component budget used when none is given.
const DefaultComponents = 10

// ErrDimensionality signals a component budget the corpus cannot support.
var ErrDimensionality = errors.New("dimensionality error")

// ComponentSet holds principal components ranked by descending explained
// variance. Vectors[i] pairs with Ratios[i].
type ComponentSet struct {
	Vectors [][]float64
	Ratios  []float64
}

// Len returns the number of components in the set
func (s *ComponentSet) Len() int {
	return len(s.Ratios)
}

// Cumulative returns the running totals of the explained variance ratios.
func (s *ComponentSet) Cumulative() []float64 {
	out := make([]float64, len(s.Ratios))
	var total float64
	for i, r := range s.Ratios {
		total += r
		out[i] = total
	}
	return out
}

// Fit mean-centres the rows of corpus (one observation per row) and returns
// the first n principal components. Ratios are relative to the variance of
// all components, so they sum to at most 1. Each component's sign is chosen
// so that its largest-magnitude entry is positive, which makes the result
// reproducible for a fixed corpus.
func Fit(corpus mat.Matrix, n int) (*ComponentSet, error) {
	rows, cols := corpus.Dims()
	rank := min(rows, cols)

	if n < 1 {
		return nil, fmt.Errorf("%w: component budget must be positive, got %d", ErrDimensionality, n)
	}
	if n > rank {
		return nil, fmt.Errorf("%w: %d components requested but corpus of %d images x %d pixels supports at most %d",
			ErrDimensionality, n, rows, cols, rank)
	}
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 images to estimate variance, got %d", ErrDimensionality, rows)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(corpus, nil); !ok {
		return nil, fmt.Errorf("%w: singular value decomposition did not converge", ErrDimensionality)
	}

	vars := pc.VarsTo(nil)
	var total float64
	for _, v := range vars {
		total += v
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	set := &ComponentSet{
		Vectors: make([][]float64, n),
		Ratios:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		vec := mat.Col(nil, i, &vecs)
		flipSign(vec)
		set.Vectors[i] = vec
		if total > 0 {
			set.Ratios[i] = vars[i] / total
		}
	}

	return set, nil
}

// flipSign negates v in place when its largest-magnitude entry is negative
func flipSign(v []float64) {
	var maxAbs float64
	idx := -1
	for i, x := range v {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
			idx = i
		}
	}
	if idx >= 0 && v[idx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
