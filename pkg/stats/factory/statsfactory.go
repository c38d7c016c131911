package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shashank-93rao/varstats"
	"github.com/shashank-93rao/varstats/pkg/stats/async/chbased"
	"github.com/shashank-93rao/varstats/pkg/stats/async/lockbased"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// StatsType is enum of various stats implementation
type StatsType string

const (
	CH StatsType = "CH"
	LB StatsType = "LB"
)

// ParseStatsType accepts the type names case-insensitively.
func ParseStatsType(s string) (StatsType, error) {
	switch tp := StatsType(strings.ToUpper(strings.TrimSpace(s))); tp {
	case CH, LB:
		return tp, nil
	default:
		return "", fmt.Errorf("unknown stats calculator %q", s)
	}
}

// GetStats builds a concurrent Statistics around a new accumulator using s.
// For CH the dispatcher goroutine lives until ctx is cancelled.
func GetStats[T strategy.Scalar, V strategy.Element](ctx context.Context, tp StatsType, s strategy.Strategy[T, V], opts varstats.Options, accOpts ...variance.Option) (varstats.Statistics[T, V], error) {
	acc, err := variance.NewVarAcc(s, accOpts...)
	if err != nil {
		return nil, err
	}
	switch tp {
	case LB:
		return lockbased.NewStats(acc, opts), nil
	case CH:
		return chbased.NewStats(ctx, acc, opts), nil
	default:
		return nil, fmt.Errorf("unknown stats calculator %q", tp)
	}
}
