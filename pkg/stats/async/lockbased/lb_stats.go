package lockbased

// Synchronous event push with lock based computation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats"
	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// Embeds the accumulator along with the lock guarding it.
type lockBasedStats[T strategy.Scalar, V strategy.Element] struct {
	lock sync.RWMutex
	acc  *variance.VarAcc[T, V]
	opts varstats.Options
}

// Event accumulates the sample under the write lock. Errors from the
// accumulator are returned directly.
func (stats *lockBasedStats[T, V]) Event(ctx context.Context, sample []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stats.lock.Lock()
	defer stats.lock.Unlock()
	if err := stats.acc.Accumulate(computed.Vector[T](sample)); err != nil {
		stats.opts.Metrics.ObserveFailure()
		stats.opts.Logger.Debug("sample rejected", zap.Error(err))
		return err
	}
	stats.opts.Metrics.ObserveSample(stats.acc.Levels())
	return nil
}

// Result takes a snapshot under the read lock.
func (stats *lockBasedStats[T, V]) Result(ctx context.Context) (*variance.VarResult[T, V], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats.lock.RLock()
	defer stats.lock.RUnlock()
	return stats.acc.Result()
}

func (stats *lockBasedStats[T, V]) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stats.lock.Lock()
	defer stats.lock.Unlock()
	stats.acc.Reset()
	return nil
}

func (stats *lockBasedStats[T, V]) Count(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stats.lock.RLock()
	defer stats.lock.RUnlock()
	return stats.acc.Count()
}

func (stats *lockBasedStats[T, V]) Mean(ctx context.Context) ([]T, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.Mean(), nil
}

func (stats *lockBasedStats[T, V]) Variance(ctx context.Context) ([]V, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.Var(), nil
}

func (stats *lockBasedStats[T, V]) StdError(ctx context.Context) ([]V, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.StdError(), nil
}

// NewStats wraps acc so that it can be shared between goroutines. The
// caller must not use acc directly afterwards.
func NewStats[T strategy.Scalar, V strategy.Element](acc *variance.VarAcc[T, V], opts varstats.Options) varstats.Statistics[T, V] {
	return &lockBasedStats[T, V]{
		acc:  acc,
		opts: opts.WithDefaults(),
	}
}
