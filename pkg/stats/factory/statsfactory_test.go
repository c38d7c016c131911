package factory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-93rao/varstats"
	"github.com/shashank-93rao/varstats/pkg/stats/async/chbased"
	"github.com/shashank-93rao/varstats/pkg/stats/metrics"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

func TestParseStatsType(t *testing.T) {
	tp, err := ParseStatsType(" ch")
	require.NoError(t, err)
	assert.Equal(t, CH, tp)
	tp, err = ParseStatsType("lb")
	require.NoError(t, err)
	assert.Equal(t, LB, tp)
	_, err = ParseStatsType("mpi")
	assert.Error(t, err)
}

func TestUnknownType(t *testing.T) {
	_, err := GetStats[float64, float64](context.Background(), "XX", strategy.Real{}, varstats.Options{})
	assert.Error(t, err)
	_, err = GetStats[float64, float64](context.Background(), LB, strategy.Real{}, varstats.Options{}, variance.WithBundleSize(0))
	assert.ErrorIs(t, err, variance.ErrBundleSize)
}

func TestConcurrentEvents(t *testing.T) {
	for _, tp := range []StatsType{CH, LB} {
		t.Run(string(tp), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			m, err := metrics.New(prometheus.NewRegistry(), string(tp))
			require.NoError(t, err)
			stats, err := GetStats[float64, float64](ctx, tp, strategy.Real{},
				varstats.Options{Metrics: m}, variance.WithSize(2))
			require.NoError(t, err)

			const threads, perThread = 8, 50
			var wg sync.WaitGroup
			wg.Add(threads)
			for i := 0; i < threads; i++ {
				go func(id int) {
					defer wg.Done()
					for j := 0; j < perThread; j++ {
						x := float64(id*perThread + j)
						assert.NoError(t, stats.Event(ctx, []float64{x, -x}))
					}
				}(i)
			}
			wg.Wait()

			n, err := stats.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(threads*perThread), n)

			// values 0..399
			mean, err := stats.Mean(ctx)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{199.5, -199.5}, mean, 1e-9)
			vars, err := stats.Variance(ctx)
			require.NoError(t, err)
			want := (400.0*400.0 - 1) / 12
			assert.InDeltaSlice(t, []float64{want, want}, vars, 1e-6)
			se, err := stats.StdError(ctx)
			require.NoError(t, err)
			assert.InDelta(t, math.Sqrt(want/400), se[0], 1e-9)

			require.NoError(t, stats.Reset(ctx))
			n, err = stats.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), n)
		})
	}
}

func TestRejectedSamples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lb, err := GetStats[complex128, float64](ctx, LB, strategy.Circular{}, varstats.Options{})
	require.NoError(t, err)
	require.NoError(t, lb.Event(ctx, []complex128{1}))
	assert.ErrorIs(t, lb.Event(ctx, []complex128{1, 2}), variance.ErrSizeMismatch)

	ch, err := GetStats[complex128, float64](ctx, CH, strategy.Circular{}, varstats.Options{})
	require.NoError(t, err)
	require.NoError(t, ch.Event(ctx, []complex128{1}))
	require.NoError(t, ch.Event(ctx, []complex128{1, 2}))
	_, err = ch.Result(ctx)
	assert.ErrorIs(t, err, variance.ErrSizeMismatch)
	n, err := ch.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestStoppedDispatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stats, err := GetStats[float64, float64](ctx, CH, strategy.Real{}, varstats.Options{})
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool {
		_, err := stats.Result(context.Background())
		return errors.Is(err, chbased.ErrStopped)
	}, time.Second, time.Millisecond)

	// no sample is silently buffered once the dispatcher is gone
	for i := 0; i < 100; i++ {
		assert.ErrorIs(t, stats.Event(context.Background(), []float64{1}), chbased.ErrStopped)
	}
}
