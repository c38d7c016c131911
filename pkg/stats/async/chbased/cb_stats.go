package chbased

// Async event push with channel based request dispatcher

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/shashank-93rao/varstats"
	"github.com/shashank-93rao/varstats/pkg/stats/computed"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
	"github.com/shashank-93rao/varstats/pkg/stats/variance"
)

// ErrStopped is returned once the dispatcher goroutine has exited.
var ErrStopped = errors.New("chbased: statistics dispatcher stopped")

type requestKind int

const (
	resultRequest requestKind = iota
	resetRequest
)

type answer[T strategy.Scalar, V strategy.Element] struct {
	result *variance.VarResult[T, V]
	err    error
}

type request[T strategy.Scalar, V strategy.Element] struct {
	kind  requestKind
	reply chan answer[T, V]
}

// Holds the communication channels. The accumulator itself is owned by the
// dispatcher goroutine and never touched by anything else.
type channelBasedStats[T strategy.Scalar, V strategy.Element] struct {
	eventChan chan []T
	reqChan   chan request[T, V]
	done      chan struct{}
	opts      varstats.Options
}

// Event hands a sample to the dispatcher. The sample is copied, so the
// caller may reuse the slice. Samples the accumulator rejects are reported
// by the next Count or Result call.
func (stats *channelBasedStats[T, V]) Event(ctx context.Context, sample []T) error {
	// eventChan can still accept sends after the dispatcher stopped
	select {
	case <-stats.done:
		return ErrStopped
	default:
	}
	cp := make([]T, len(sample))
	copy(cp, sample)
	select {
	case stats.eventChan <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stats.done:
		return ErrStopped
	}
}

func (stats *channelBasedStats[T, V]) ask(ctx context.Context, kind requestKind) (*variance.VarResult[T, V], error) {
	responseChan := make(chan answer[T, V], 1)
	select {
	case stats.reqChan <- request[T, V]{kind: kind, reply: responseChan}: // Send request
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stats.done:
		return nil, ErrStopped
	}
	select {
	case response := <-responseChan: // Wait for response
		return response.result, response.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stats.done:
		return nil, ErrStopped
	}
}

// Result returns a snapshot including every sample whose Event call
// returned before Result was called.
func (stats *channelBasedStats[T, V]) Result(ctx context.Context) (*variance.VarResult[T, V], error) {
	return stats.ask(ctx, resultRequest)
}

// Reset discards all samples and any pending errors.
func (stats *channelBasedStats[T, V]) Reset(ctx context.Context) error {
	_, err := stats.ask(ctx, resetRequest)
	return err
}

func (stats *channelBasedStats[T, V]) Count(ctx context.Context) (uint64, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return 0, err
	}
	return res.Count(), nil
}

func (stats *channelBasedStats[T, V]) Mean(ctx context.Context) ([]T, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.Mean(), nil
}

func (stats *channelBasedStats[T, V]) Variance(ctx context.Context) ([]V, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.Var(), nil
}

func (stats *channelBasedStats[T, V]) StdError(ctx context.Context) ([]V, error) {
	res, err := stats.Result(ctx)
	if err != nil {
		return nil, err
	}
	return res.StdError(), nil
}

// NewStats returns statistics whose accumulator is driven by a dispatcher
// goroutine. Calling this function starts that goroutine; it runs until ctx
// is cancelled, so the caller must cancel ctx when done.
func NewStats[T strategy.Scalar, V strategy.Element](ctx context.Context, acc *variance.VarAcc[T, V], opts varstats.Options) varstats.Statistics[T, V] {
	statsObj := &channelBasedStats[T, V]{
		reqChan:   make(chan request[T, V], 100),
		eventChan: make(chan []T, 100),
		done:      make(chan struct{}),
		opts:      opts.WithDefaults(),
	}
	go statsObj.runDispatcherThread(ctx, acc)
	return statsObj
}

// Starts the dispatcher thread
func (stats *channelBasedStats[T, V]) runDispatcherThread(ctx context.Context, acc *variance.VarAcc[T, V]) {
	logger := stats.opts.Logger
	logger.Debug("starting statistics dispatcher")
	defer close(stats.done)

	var pending error
	accumulate := func(sample []T) {
		if err := acc.Accumulate(computed.Vector[T](sample)); err != nil {
			stats.opts.Metrics.ObserveFailure()
			logger.Warn("sample rejected", zap.Error(err))
			pending = multierr.Append(pending, err)
			return
		}
		stats.opts.Metrics.ObserveSample(acc.Levels())
	}

	for {
		select {
		case <-ctx.Done(): // If caller chain cancelled
			logger.Debug("context cancelled, stopping statistics dispatcher")
			return
		case sample := <-stats.eventChan:
			accumulate(sample)
		case req := <-stats.reqChan:
			// Events sent before the request are already buffered
			for drained := false; !drained; {
				select {
				case sample := <-stats.eventChan:
					accumulate(sample)
				default:
					drained = true
				}
			}
			switch req.kind {
			case resetRequest:
				acc.Reset()
				pending = nil
				req.reply <- answer[T, V]{}
			case resultRequest:
				if pending != nil {
					req.reply <- answer[T, V]{err: pending}
					pending = nil
					continue
				}
				res, err := acc.Result()
				req.reply <- answer[T, V]{result: res, err: err}
			}
		}
	}
}
