// Package eigen turns ranked principal components into a single eigenimage
// vector and scores it.
package eigen

import (
	"errors"
	"fmt"

	"eigenimages/pca"
	"eigenimages/types"
)

// DefaultThreshold is the cumulative explained variance at which selection stops.
const DefaultThreshold = 0.8

var (
	// ErrEmptyVector signals a composite without elements.
	ErrEmptyVector = errors.New("empty composite vector")
	// ErrNoComponents signals an empty component set.
	ErrNoComponents = errors.New("no components to select from")
)

// Selection is the prefix of components summed into the eigenimage
type Selection struct {
	Count             int       // components summed
	ExplainedVariance float64   // cumulative ratio of the selected components
	Composite         []float64 // element-wise sum of the selected vectors
}

// SelectCount walks ratios in rank order. Before adding component i it checks
// the running total: once that has reached threshold the walk stops and
// component i is left out. A budget exhausted below threshold selects all.
func SelectCount(ratios []float64, threshold float64) (int, float64) {
	var cumulative float64
	count := 0
	for _, r := range ratios {
		if cumulative >= threshold {
			break
		}
		cumulative += r
		count++
	}
	return count, cumulative
}

// Aggregate sums the first n vectors element-wise
func Aggregate(vectors [][]float64, n int) ([]float64, error) {
	if n < 1 || n > len(vectors) {
		return nil, fmt.Errorf("cannot aggregate %d of %d components", n, len(vectors))
	}

	out := make([]float64, len(vectors[0]))
	for i := 0; i < n; i++ {
		if len(vectors[i]) != len(out) {
			return nil, fmt.Errorf("component %d has length %d, want %d", i, len(vectors[i]), len(out))
		}
		for j, v := range vectors[i] {
			out[j] += v
		}
	}
	return out, nil
}

// Compose selects components from set and sums them into the eigenimage.
func Compose(set *pca.ComponentSet, threshold float64) (*Selection, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrNoComponents
	}

	count, explained := SelectCount(set.Ratios, threshold)
	composite, err := Aggregate(set.Vectors, count)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Count:             count,
		ExplainedVariance: explained,
		Composite:         composite,
	}, nil
}

// Score returns the sum of all elements and the sum of the positive ones.
func Score(v []float64) (types.ScorePair, error) {
	if len(v) == 0 {
		return types.ScorePair{}, ErrEmptyVector
	}

	var scores types.ScorePair
	for _, x := range v {
		scores.All += x
		if x > 0 {
			scores.NonNegative += x
		}
	}
	return scores, nil
}

// PositiveOnly returns a copy of v with every element <= 0 set to 0.
func PositiveOnly(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}
