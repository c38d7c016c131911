package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats"
	"github.com/shashank-93rao/varstats/internal/logutil"
	"github.com/shashank-93rao/varstats/pkg/stats/factory"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// streamCommand feeds one shared accumulator from several goroutines and
// queries it while they write.
func streamCommand() *cobra.Command {
	var (
		calculator  string
		writers     int
		events      int
		correlation float64
		interval    time.Duration
		level       string
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Share one accumulator between concurrent writers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tp, err := factory.ParseStatsType(calculator)
			if err != nil {
				return err
			}
			logger, err := logutil.New(level, "console")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stats, err := factory.GetStats(ctx, tp, strategy.Real{}, varstats.Options{Logger: logger.Named("stats")}, variance.WithSize(1))
			if err != nil {
				return err
			}

			var wg sync.WaitGroup
			for id := 0; id < writers; id++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					writeAndQuery(ctx, logger, id, events, correlation, interval, stats)
				}()
			}
			wg.Wait()

			res, err := stats.Result(ctx)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), fmt.Sprintf("stream-%s", tp), res, nil)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&calculator, "type", string(factory.CH), "CH (channel based) or LB (lock based)")
	f.IntVar(&writers, "writers", 5, "concurrent writers")
	f.IntVar(&events, "events", 1000, "events per writer")
	f.Float64Var(&correlation, "correlation", 0.5, "lag-one autocorrelation of each writer's chain")
	f.DurationVar(&interval, "interval", 0, "pause between events")
	f.StringVar(&level, "log-level", "info", "log level")
	return cmd
}

// writeAndQuery writes the samples of one chain and logs the running
// estimate every hundred events.
func writeAndQuery(ctx context.Context, logger *zap.Logger, id, count int, rho float64, interval time.Duration, stats varstats.Statistics[float64, float64]) {
	c := newChain(1, rho, 1, int64(id), id)
	buf := make([]float64, 1)
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			logger.Debug("writer exiting", zap.Int("writer", id))
			return
		case <-time.After(interval):
		}
		c.step()
		sample(c, buf)
		if err := stats.Event(ctx, buf); err != nil {
			logger.Warn("event rejected", zap.Int("writer", id), zap.Error(err))
			return
		}
		if (i+1)%100 != 0 {
			continue
		}
		mean, err := stats.Mean(ctx)
		if err != nil {
			logger.Warn("query failed", zap.Int("writer", id), zap.Error(err))
			continue
		}
		stderr, _ := stats.StdError(ctx)
		logger.Info("running estimate",
			zap.Int("writer", id),
			zap.Int("written", i+1),
			zap.Float64s("mean", mean),
			zap.Float64s("stderror", stderr))
	}
}
