// Package parallel runs independent accumulators over disjoint partitions of
// a sample stream and pools their results.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/metrics"
	"github.com/shashank-93rao/varstats/pkg/stats/reduce"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// Mode selects how worker results are pooled.
type Mode string

const (
	// GroupMode pools through a reduce.Group: every worker hands its
	// aggregate to the collective and receives the pooled one.
	GroupMode Mode = "group"
	// TreeMode pools finalized results pairwise with reduce.Tree.
	TreeMode Mode = "tree"
)

// ParseMode accepts "group" and "tree".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case GroupMode, TreeMode:
		return m, nil
	default:
		return "", fmt.Errorf("unknown reduction mode %q", s)
	}
}

var errPanicked = errors.New("parallel: worker panicked")

// ErrNoSamples is returned by Run when no partition produced a sample.
var ErrNoSamples = errors.New("parallel: no worker accumulated samples")

// Config configures Run.
type Config struct {
	Workers int
	Mode    Mode
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Source produces the samples of one partition by calling emit once per
// sample. It must stop and return the error if emit fails.
type Source[T strategy.Scalar] func(ctx context.Context, worker int, emit func(computed.Computed[T]) error) error

// NewAcc creates the accumulator of one worker.
type NewAcc[T strategy.Scalar, V strategy.Element] func() (*variance.VarAcc[T, V], error)

// Outcome is the pooled result of a run.
type Outcome[T strategy.Scalar, V strategy.Element] struct {
	// Result pools the raw series of all workers.
	Result *variance.VarResult[T, V]

	// Levels[k] pools binning level k of all workers, for the levels every
	// worker reached. Levels[0] equals Result.
	Levels []*variance.VarResult[T, V]
}

type workerOutcome[T strategy.Scalar, V strategy.Element] struct {
	// empty partitions contribute nothing to the pooled result
	empty  bool
	result *variance.VarResult[T, V]
	levels []*variance.VarResult[T, V]
	err    error
}

// Run drives one accumulator per worker on an ants pool, each fed by its own
// partition of src, and pools the results according to cfg.Mode.
func Run[T strategy.Scalar, V strategy.Element](ctx context.Context, cfg Config, newAcc NewAcc[T, V], src Source[T]) (*Outcome[T, V], error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("parallel: need at least one worker, got %d", cfg.Workers)
	}
	if cfg.Mode == "" {
		cfg.Mode = TreeMode
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("worker panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	// a failed worker never reaches the group, so it cancels the others
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var group *reduce.Group
	if cfg.Mode == GroupMode {
		group = reduce.NewGroup(runCtx, cfg.Workers, logger.Named("reduce"))
	}

	outcomes := make([]workerOutcome[T, V], cfg.Workers)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		outcomes[w].err = errPanicked
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if outcomes[w].err != nil {
					cancel()
				}
			}()
			outcomes[w] = runWorker(runCtx, w, cfg, group, newAcc, src)
		})
		if submitErr != nil {
			wg.Done()
			outcomes[w].err = submitErr
			cancel()
		}
	}
	wg.Wait()

	var errs error
	for w, out := range outcomes {
		if out.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("worker %d: %w", w, out.err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	logger.Debug("all workers finished", zap.Int("workers", cfg.Workers), zap.String("mode", string(cfg.Mode)))
	return poolOutcomes(ctx, cfg, outcomes)
}

func runWorker[T strategy.Scalar, V strategy.Element](ctx context.Context, w int, cfg Config, group *reduce.Group, newAcc NewAcc[T, V], src Source[T]) workerOutcome[T, V] {
	acc, err := newAcc()
	if err != nil {
		return workerOutcome[T, V]{err: err}
	}
	emit := func(c computed.Computed[T]) error {
		if err := acc.Accumulate(c); err != nil {
			cfg.Metrics.ObserveFailure()
			return err
		}
		cfg.Metrics.ObserveSample(acc.Levels())
		return nil
	}
	if err := src(ctx, w, emit); err != nil {
		return workerOutcome[T, V]{err: err}
	}
	if empty(acc) {
		if group != nil {
			// the round only completes once every participant has joined
			if _, err := group.Combine(ctx, reduce.Aggregate{}); err != nil {
				cfg.Metrics.ObserveFailure()
				return workerOutcome[T, V]{err: fmt.Errorf("reduce: %w", err)}
			}
			cfg.Metrics.ObserveReduction()
		}
		return workerOutcome[T, V]{empty: true}
	}

	levels := make([]*variance.VarResult[T, V], acc.Levels())
	for k := range levels {
		if levels[k], err = acc.LevelResult(k); err != nil {
			return workerOutcome[T, V]{err: err}
		}
	}
	res, err := acc.Finalize()
	if err != nil {
		return workerOutcome[T, V]{err: err}
	}
	if group != nil {
		if err := res.ReduceWith(ctx, group); err != nil {
			cfg.Metrics.ObserveFailure()
			return workerOutcome[T, V]{err: err}
		}
		cfg.Metrics.ObserveReduction()
	}
	return workerOutcome[T, V]{result: res, levels: levels}
}

// empty reports whether acc never saw a sample. An accumulator built
// without a size is still uninitialized in that case.
func empty[T strategy.Scalar, V strategy.Element](acc *variance.VarAcc[T, V]) bool {
	if !acc.Initialized() {
		return true
	}
	n, err := acc.Count()
	return err == nil && n == 0
}

// poolOutcomes combines the worker outcomes: the raw results unless a group
// already did, and every binning level all workers share.
func poolOutcomes[T strategy.Scalar, V strategy.Element](ctx context.Context, cfg Config, all []workerOutcome[T, V]) (*Outcome[T, V], error) {
	outcomes := make([]workerOutcome[T, V], 0, len(all))
	for _, out := range all {
		if !out.empty {
			outcomes = append(outcomes, out)
		}
	}
	if len(outcomes) == 0 {
		return nil, ErrNoSamples
	}

	var result *variance.VarResult[T, V]
	if cfg.Mode == GroupMode {
		result = outcomes[0].result
	} else {
		results := make([]*variance.VarResult[T, V], len(outcomes))
		for i, out := range outcomes {
			results[i] = out.result
		}
		var err error
		if result, err = reduce.Tree(ctx, results); err != nil {
			cfg.Metrics.ObserveFailure()
			return nil, err
		}
		cfg.Metrics.ObserveReduction()
	}

	shared := len(outcomes[0].levels)
	for _, out := range outcomes[1:] {
		shared = min(shared, len(out.levels))
	}
	levels := make([]*variance.VarResult[T, V], shared)
	for k := range levels {
		perWorker := make([]*variance.VarResult[T, V], len(outcomes))
		for i, out := range outcomes {
			perWorker[i] = out.levels[k]
		}
		pooled, err := reduce.Tree(ctx, perWorker)
		if err != nil {
			return nil, fmt.Errorf("pool binning level %d: %w", k, err)
		}
		levels[k] = pooled
	}
	return &Outcome[T, V]{Result: result, Levels: levels}, nil
}
