package variance

import (
	"context"
	"fmt"

	"github.com/shashank-93rao/varstats/pkg/stats/reduce"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

// VarResult is a finalized mean and naive variance estimate. It shares no
// storage with the accumulator that produced it.
type VarResult[T strategy.Scalar, V strategy.Element] struct {
	state *ValueAccumState[T, V]
}

// NewVarResult adopts state, converting it to MeanMode if it holds sums.
// The caller must not use state afterwards.
func NewVarResult[T strategy.Scalar, V strategy.Element](state *ValueAccumState[T, V]) (*VarResult[T, V], error) {
	if state.Mode() == SumMode {
		if err := state.ConvertToMean(); err != nil {
			return nil, err
		}
	}
	return &VarResult[T, V]{state: state}, nil
}

func (r *VarResult[T, V]) Size() int { return r.state.Size() }

func (r *VarResult[T, V]) Count() uint64 { return r.state.Count() }

func (r *VarResult[T, V]) Strategy() strategy.Strategy[T, V] { return r.state.strategy }

// Mean returns a copy of the sample mean.
func (r *VarResult[T, V]) Mean() []T {
	out := make([]T, r.state.Size())
	copy(out, r.state.data)
	return out
}

// Var returns a copy of the sample variance.
func (r *VarResult[T, V]) Var() []V {
	out := make([]V, r.state.Size())
	copy(out, r.state.data2)
	return out
}

// StdError is the standard error of the mean, sqrt(var/count) per
// component, without any correction for autocorrelation.
func (r *VarResult[T, V]) StdError() []V {
	out := make([]V, r.state.Size())
	for i, v := range r.state.data2 {
		out[i] = r.state.strategy.StdError(v, r.state.count)
	}
	return out
}

// State returns a copy of the underlying mean-state storage.
func (r *VarResult[T, V]) State() *ValueAccumState[T, V] {
	return r.state.Clone()
}

// Reduce pools peer into r as if both sample sets had been accumulated
// together. peer is not modified.
func (r *VarResult[T, V]) Reduce(peer *VarResult[T, V]) error {
	if r.state.strategy.Kind() != peer.state.strategy.Kind() {
		return fmt.Errorf("reduce %s result with %s result: %w",
			r.state.strategy.Kind(), peer.state.strategy.Kind(), ErrStrategyMismatch)
	}
	if r.Size() != peer.Size() {
		return fmt.Errorf("reduce result of size %d with size %d: %w", r.Size(), peer.Size(), ErrSizeMismatch)
	}
	n1, n2 := r.state.count, peer.state.count
	switch {
	case n2 == 0:
		return nil
	case n1 == 0:
		r.state = peer.state.Clone()
		return nil
	}

	s := r.state.strategy
	n := float64(n1 + n2)
	f1, f2 := float64(n1), float64(n2)
	for i := range r.state.data {
		m1, m2 := r.state.data[i], peer.state.data[i]
		d := m1 - m2
		m2sum := s.AddVar(s.ScaleVar(r.state.data2[i], f1), s.ScaleVar(peer.state.data2[i], f2))
		m2sum = s.AddVar(m2sum, s.ScaleVar(s.Term(d, d), f1*f2/n))
		r.state.data[i] = strategy.Scale(m1, f1/n) + strategy.Scale(m2, f2/n)
		r.state.data2[i] = s.ScaleVar(m2sum, 1/n)
	}
	r.state.count = n1 + n2
	return nil
}

// Aggregate returns the sufficient statistics of r in sum form, the shape
// exchanged with reduction collaborators.
func (r *VarResult[T, V]) Aggregate() (reduce.Aggregate, error) {
	sums := r.state.Clone()
	if err := sums.ConvertToSum(); err != nil {
		return reduce.Aggregate{}, err
	}
	return reduce.Aggregate{
		Count: sums.count,
		Data:  strategy.Flatten(sums.data),
		Data2: strategy.Flatten(sums.data2),
	}, nil
}

// ReduceWith pools r with the results of every other participant of the
// reducer. Errors from the reducer are returned as is, wrapped.
func (r *VarResult[T, V]) ReduceWith(ctx context.Context, reducer reduce.Reducer) error {
	local, err := r.Aggregate()
	if err != nil {
		return err
	}
	pooled, err := reducer.Combine(ctx, local)
	if err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	state, err := stateFromColumns(r.state.strategy, pooled.Count, pooled.Data, pooled.Data2, SumMode)
	if err != nil {
		return fmt.Errorf("reduce: %w", err)
	}
	if state.Size() != r.Size() {
		return fmt.Errorf("reduce: pooled size %d, local size %d: %w", state.Size(), r.Size(), ErrSizeMismatch)
	}
	if err := state.ConvertToMean(); err != nil {
		return err
	}
	r.state = state
	return nil
}

// stateFromColumns rebuilds a state from flattened columns.
func stateFromColumns[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], count uint64, flat, flat2 []float64, mode Mode) (*ValueAccumState[T, V], error) {
	data, err := strategy.Unflatten[T](flat)
	if err != nil {
		return nil, err
	}
	data2, err := strategy.Unflatten[V](flat2)
	if err != nil {
		return nil, err
	}
	if len(data) != len(data2) {
		return nil, fmt.Errorf("columns of size %d and %d: %w", len(data), len(data2), ErrSizeMismatch)
	}
	return &ValueAccumState[T, V]{
		strategy: s,
		count:    count,
		data:     data,
		data2:    data2,
		mode:     mode,
	}, nil
}
