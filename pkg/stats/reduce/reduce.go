// Package reduce combines partial results computed by independent workers.
//
// Partial results travel as an Aggregate, the sum form of a variance state
// flattened to float64 columns. Adding aggregates is associative and
// commutative, so participants can be combined in any order or topology.
package reduce

import (
	"context"
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned when aggregates of different shapes are added.
var ErrSizeMismatch = errors.New("reduce: aggregate size mismatch")

// Aggregate is a sample count plus the sum columns of a variance state.
type Aggregate struct {
	Count uint64
	Data  []float64
	Data2 []float64
}

// Empty reports whether a is the zero Aggregate a participant without
// samples hands in.
func (a Aggregate) Empty() bool {
	return a.Count == 0 && len(a.Data) == 0 && len(a.Data2) == 0
}

// Add returns the element-wise sum of a and b. Neither is modified. An
// empty aggregate is the identity, whatever the shape of the other side.
func (a Aggregate) Add(b Aggregate) (Aggregate, error) {
	switch {
	case b.Empty():
		return clone(a), nil
	case a.Empty():
		return clone(b), nil
	}
	if len(a.Data) != len(b.Data) || len(a.Data2) != len(b.Data2) {
		return Aggregate{}, fmt.Errorf("add aggregate of %d/%d values to %d/%d: %w",
			len(b.Data), len(b.Data2), len(a.Data), len(a.Data2), ErrSizeMismatch)
	}
	out := Aggregate{
		Count: a.Count + b.Count,
		Data:  make([]float64, len(a.Data)),
		Data2: make([]float64, len(a.Data2)),
	}
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	for i := range a.Data2 {
		out.Data2[i] = a.Data2[i] + b.Data2[i]
	}
	return out, nil
}

// Reducer is a group-combine collective. Every participant hands in its
// local aggregate and receives the pooled aggregate of the whole group.
type Reducer interface {
	Combine(ctx context.Context, local Aggregate) (Aggregate, error)
}

// Reducible is anything that can pool a peer of its own type into itself.
type Reducible[R any] interface {
	Reduce(peer R) error
}
