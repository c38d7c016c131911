package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats/pkg/stats/archive"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

func showCommand() *cobra.Command {
	var path, key string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored result",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			store, err := archive.OpenBadger(archive.BadgerConfig{Path: path}, zap.NewNop())
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, store.Close()) }()
			return show(cmd.OutOrStdout(), store, key)
		},
	}
	cmd.Flags().StringVar(&path, "archive", "statsdemo.db", "Badger directory")
	cmd.Flags().StringVar(&key, "key", "observable", "name the result was stored under")
	return cmd
}

func show(out io.Writer, store archive.Reader, key string) error {
	store.Enter(key)
	defer store.Leave()
	code, err := store.ReadUint(kindKey)
	if err != nil {
		return fmt.Errorf("show %s: %w", key, err)
	}
	if code >= uint64(len(kindCodes)) {
		return fmt.Errorf("show %s: unknown strategy code %d", key, code)
	}
	switch kindCodes[code] {
	case strategy.RealKind:
		return showKind(out, store, key, strategy.Real{})
	case strategy.CircularKind:
		return showKind(out, store, key, strategy.Circular{})
	default:
		return showKind(out, store, key, strategy.Elliptic{})
	}
}

func showKind[T strategy.Scalar, V strategy.Element](out io.Writer, store archive.Reader, key string, s strategy.Strategy[T, V]) error {
	res, err := variance.DeserializeVarResult(s, store)
	if err != nil {
		return fmt.Errorf("show %s: %w", key, err)
	}
	n, err := store.ReadUint(levelsKey)
	if err != nil {
		return fmt.Errorf("show %s: %w", key, err)
	}
	levels := make([]*variance.VarResult[T, V], n)
	for k := range levels {
		store.Enter(fmt.Sprintf("level/%d", k))
		levels[k], err = variance.DeserializeVarResult(s, store)
		store.Leave()
		if err != nil {
			return fmt.Errorf("show %s level %d: %w", key, k, err)
		}
	}
	printOutcome(out, key, res, levels)
	return nil
}
