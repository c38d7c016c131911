// Package varstats estimates means and error bars of serially correlated
// samples, such as the observables of a Markov-chain simulation.
//
// The accumulators themselves live in pkg/stats/variance and are meant to be
// owned by a single goroutine. Statistics is the interface of the wrappers
// in pkg/stats/async that can be shared between goroutines.
package varstats

import (
	"context"

	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats/pkg/stats/metrics"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

type Statistics[T strategy.Scalar, V strategy.Element] interface {
	Event(ctx context.Context, sample []T) error

	Count(ctx context.Context) (uint64, error)

	Mean(ctx context.Context) ([]T, error)

	Variance(ctx context.Context) ([]V, error)

	StdError(ctx context.Context) ([]V, error)

	Result(ctx context.Context) (*variance.VarResult[T, V], error)

	Reset(ctx context.Context) error
}

// Options are shared by the Statistics implementations.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// WithDefaults fills in a no-op logger and unregistered metrics.
func (o Options) WithDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Discard()
	}
	return o
}
