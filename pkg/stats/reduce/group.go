package reduce

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrClosed is returned by Combine once the group's context is done.
var ErrClosed = errors.New("reduce: group is closed")

type answer struct {
	agg Aggregate
	err error
}

type submission struct {
	agg   Aggregate
	reply chan answer
}

// Group is an in-process Reducer for a fixed number of participants,
// typically goroutines each owning one accumulator. Combine blocks until
// all participants of the current round have handed in their aggregate;
// afterwards the group is ready for the next round.
type Group struct {
	participants int
	submitChan   chan submission
	done         <-chan struct{}
	logger       *zap.Logger
}

var _ Reducer = (*Group)(nil)

// NewGroup starts the dispatcher goroutine of a group of participants. The
// goroutine runs until ctx is cancelled; the caller must cancel it.
func NewGroup(ctx context.Context, participants int, logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Group{
		participants: participants,
		submitChan:   make(chan submission, participants),
		done:         ctx.Done(),
		logger:       logger,
	}
	go g.runDispatcher(ctx)
	return g
}

func (g *Group) Participants() int { return g.participants }

func (g *Group) Combine(ctx context.Context, local Aggregate) (Aggregate, error) {
	reply := make(chan answer, 1)
	select {
	case g.submitChan <- submission{agg: local, reply: reply}:
	case <-ctx.Done():
		return Aggregate{}, ctx.Err()
	case <-g.done:
		return Aggregate{}, ErrClosed
	}
	select {
	case ans := <-reply:
		return ans.agg, ans.err
	case <-ctx.Done():
		return Aggregate{}, ctx.Err()
	case <-g.done:
		return Aggregate{}, ErrClosed
	}
}

func (g *Group) runDispatcher(ctx context.Context) {
	g.logger.Debug("reduce group started", zap.Int("participants", g.participants))
	var (
		pending []submission
		total   Aggregate
		err     error
		round   int
	)
	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("reduce group stopped", zap.Int("rounds", round), zap.Int("pending", len(pending)))
			return
		case sub := <-g.submitChan:
			if len(pending) == 0 {
				total, err = sub.agg, nil
			} else if err == nil {
				total, err = total.Add(sub.agg)
			}
			pending = append(pending, sub)
			if len(pending) < g.participants {
				continue
			}
			for _, p := range pending {
				p.reply <- answer{agg: clone(total), err: err}
			}
			if err != nil {
				g.logger.Warn("reduce round failed", zap.Int("round", round), zap.Error(err))
			} else {
				g.logger.Debug("reduce round complete", zap.Int("round", round), zap.Uint64("count", total.Count))
			}
			pending = pending[:0]
			round++
		}
	}
}

func clone(a Aggregate) Aggregate {
	return Aggregate{
		Count: a.Count,
		Data:  append([]float64(nil), a.Data...),
		Data2: append([]float64(nil), a.Data2...),
	}
}
