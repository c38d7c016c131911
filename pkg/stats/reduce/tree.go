package reduce

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Tree pools items pairwise, level by level, reducing the pairs of one
// level concurrently. The result is items[0], holding the pooled value; the
// other items are left in an unspecified state.
func Tree[R Reducible[R]](ctx context.Context, items []R) (R, error) {
	var zero R
	if len(items) == 0 {
		return zero, errors.New("reduce: nothing to reduce")
	}
	work := append([]R(nil), items...)
	for len(work) > 1 {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		g, _ := errgroup.WithContext(ctx)
		half := (len(work) + 1) / 2
		for i := 0; i+half < len(work); i++ {
			left, right := work[i], work[i+half]
			g.Go(func() error {
				return left.Reduce(right)
			})
		}
		if err := g.Wait(); err != nil {
			return zero, err
		}
		work = work[:half]
	}
	return work[0], nil
}

// Fold pools items sequentially into items[0].
func Fold[R Reducible[R]](items []R) (R, error) {
	var zero R
	if len(items) == 0 {
		return zero, errors.New("reduce: nothing to reduce")
	}
	for _, peer := range items[1:] {
		if err := items[0].Reduce(peer); err != nil {
			return zero, err
		}
	}
	return items[0], nil
}
