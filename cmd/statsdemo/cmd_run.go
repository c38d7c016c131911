package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats/internal/config"
	"github.com/shashank-93rao/varstats/internal/logutil"
	"github.com/shashank-93rao/varstats/pkg/stats/archive"
	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/metrics"
	"github.com/shashank-93rao/varstats/pkg/stats/parallel"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// kind codes stored next to a result so show can pick the right types.
var kindCodes = []strategy.Kind{strategy.RealKind, strategy.CircularKind, strategy.EllipticKind}

const (
	kindKey   = "strategy"
	levelsKey = "levels"
)

func runCommand() *cobra.Command {
	var (
		path string
		o    overrides
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the chains and store the pooled result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			o.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "TOML config file")
	o.register(cmd)
	return cmd
}

// overrides are flags taking precedence over the config file.
type overrides struct {
	name, strategy, reducer, archivePath string
	workers, samples, size, bundleSize   int
	correlation                          float64
	inMemory                             bool
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "archive key of the result")
	f.StringVar(&o.strategy, "strategy", "", "real, circular or elliptic")
	f.StringVar(&o.reducer, "reducer", "", "group or tree")
	f.StringVar(&o.archivePath, "archive", "", "Badger directory")
	f.IntVar(&o.workers, "workers", 0, "number of chains")
	f.IntVar(&o.samples, "samples", 0, "samples per chain")
	f.IntVar(&o.size, "size", 0, "components per sample")
	f.IntVar(&o.bundleSize, "bundle-size", 0, "samples per bundle")
	f.Float64Var(&o.correlation, "correlation", 0, "lag-one autocorrelation")
	f.BoolVar(&o.inMemory, "in-memory", false, "do not keep the archive on disk")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("name") {
		cfg.Name = o.name
	}
	if f.Changed("strategy") {
		cfg.Strategy = o.strategy
	}
	if f.Changed("reducer") {
		cfg.Reducer = o.reducer
	}
	if f.Changed("archive") {
		cfg.Archive.Path = o.archivePath
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("samples") {
		cfg.Samples = o.samples
	}
	if f.Changed("size") {
		cfg.Size = o.size
	}
	if f.Changed("bundle-size") {
		cfg.BundleSize = o.bundleSize
	}
	if f.Changed("correlation") {
		cfg.Correlation = o.correlation
	}
	if f.Changed("in-memory") {
		cfg.Archive.InMemory = o.inMemory
	}
}

func run(ctx context.Context, out io.Writer, cfg config.Config) (err error) {
	kind, err := strategy.ParseKind(cfg.Strategy)
	if err != nil {
		return err
	}
	mode, err := parallel.ParseMode(cfg.Reducer)
	if err != nil {
		return err
	}
	logger, err := logutil.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	m := metrics.Discard()
	if cfg.Metrics.Enabled {
		if m, err = metrics.New(reg, cfg.Name); err != nil {
			return err
		}
	}

	store, err := archive.OpenBadger(archive.BadgerConfig{Path: cfg.Archive.Path, InMemory: cfg.Archive.InMemory}, logger.Named("archive"))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	pc := parallel.Config{Workers: cfg.Workers, Mode: mode, Logger: logger.Named("parallel"), Metrics: m}
	logger.Info("starting chains",
		zap.String("name", cfg.Name),
		zap.Stringer("strategy", kind),
		zap.Int("workers", cfg.Workers),
		zap.Int("samples", cfg.Samples),
		zap.Float64("tau", tau(cfg.Correlation)))

	switch kind {
	case strategy.RealKind:
		err = runKind(ctx, out, cfg, pc, strategy.Real{}, store)
	case strategy.CircularKind:
		err = runKind(ctx, out, cfg, pc, strategy.Circular{}, store)
	case strategy.EllipticKind:
		err = runKind(ctx, out, cfg, pc, strategy.Elliptic{}, store)
	}
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		logMetrics(logger, reg)
	}
	return nil
}

func runKind[T strategy.Scalar, V strategy.Element](ctx context.Context, out io.Writer, cfg config.Config, pc parallel.Config, s strategy.Strategy[T, V], store archive.Archive) error {
	newAcc := func() (*variance.VarAcc[T, V], error) {
		return variance.NewVarAcc(s, variance.WithSize(cfg.Size), variance.WithBundleSize(cfg.BundleSize))
	}
	aspect := aspectFor(s.Kind())
	src := func(ctx context.Context, worker int, emit func(computed.Computed[T]) error) error {
		c := newChain(cfg.Size, cfg.Correlation, aspect, cfg.Seed, worker)
		buf := make(computed.Vector[T], cfg.Size)
		for i := 0; i < cfg.Samples; i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			c.step()
			sample(c, buf)
			if err := emit(buf); err != nil {
				return err
			}
		}
		return nil
	}

	outcome, err := parallel.Run(ctx, pc, newAcc, src)
	if err != nil {
		return err
	}
	printOutcome(out, cfg.Name, outcome.Result, outcome.Levels)
	return save(store, cfg.Name, s.Kind(), outcome.Result, outcome.Levels)
}

func printOutcome[T strategy.Scalar, V strategy.Element](out io.Writer, name string, res *variance.VarResult[T, V], levels []*variance.VarResult[T, V]) {
	fmt.Fprintf(out, "%s (%s): %d samples\n", name, res.Strategy().Kind(), res.Count())
	fmt.Fprintf(out, "  mean      %v\n", res.Mean())
	fmt.Fprintf(out, "  variance  %v\n", res.Var())
	fmt.Fprintf(out, "  stderror  %v\n", res.StdError())
	for k, lvl := range levels {
		fmt.Fprintf(out, "  level %2d  %8d bins  stderror %v\n", k, lvl.Count(), lvl.StdError())
	}
}

func save[T strategy.Scalar, V strategy.Element](store archive.Archive, name string, kind strategy.Kind, res *variance.VarResult[T, V], levels []*variance.VarResult[T, V]) error {
	store.Enter(name)
	defer store.Leave()
	for code, k := range kindCodes {
		if k == kind {
			if err := store.WriteUint(kindKey, uint64(code)); err != nil {
				return err
			}
		}
	}
	if err := res.Serialize(store); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := store.WriteUint(levelsKey, uint64(len(levels))); err != nil {
		return err
	}
	for k, lvl := range levels {
		store.Enter(fmt.Sprintf("level/%d", k))
		err := lvl.Serialize(store)
		store.Leave()
		if err != nil {
			return fmt.Errorf("save %s level %d: %w", name, k, err)
		}
	}
	return nil
}

func logMetrics(logger *zap.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				logger.Info("metric", zap.String("name", mf.GetName()), zap.Float64("value", metric.GetCounter().GetValue()))
			case metric.GetGauge() != nil:
				logger.Info("metric", zap.String("name", mf.GetName()), zap.Float64("value", metric.GetGauge().GetValue()))
			}
		}
	}
}
