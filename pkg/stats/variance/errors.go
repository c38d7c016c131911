package variance

import "errors"

var (
	// ErrUninitialized is returned when an accumulator whose size is not yet
	// known is asked for its count or result.
	ErrUninitialized = errors.New("variance: accumulator is uninitialized")

	// ErrInvalid is returned when an accumulator is used after Finalize.
	ErrInvalid = errors.New("variance: accumulator was finalized")

	// ErrWrongMode is returned by a state conversion or append applied to a
	// state in the other mode.
	ErrWrongMode = errors.New("variance: state is in the wrong mode")

	// ErrSizeMismatch is returned when samples, states or results of
	// different sizes are combined.
	ErrSizeMismatch = errors.New("variance: size mismatch")

	// ErrStrategyMismatch is returned when results built with different
	// strategies are reduced.
	ErrStrategyMismatch = errors.New("variance: strategy mismatch")

	// ErrNoLevel is returned when a binning level that was never reached is
	// requested.
	ErrNoLevel = errors.New("variance: no such binning level")

	// ErrBundleSize is returned for a bundle capacity below 2.
	ErrBundleSize = errors.New("variance: bundle size must be at least 2")
)
