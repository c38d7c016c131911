package strategy

import "math"

// Real is ordinary variance of real samples.
type Real struct{}

var _ Strategy[float64, float64] = Real{}

func (Real) Kind() Kind { return RealKind }

func (Real) Term(x, y float64) float64 { return x * y }

func (Real) AddVar(a, b float64) float64 { return a + b }

func (Real) SubVar(a, b float64) float64 { return a - b }

func (Real) ScaleVar(v float64, f float64) float64 { return v * f }

func (Real) StdError(v float64, count uint64) float64 {
	return stdError(v, count)
}

func stdError(v float64, count uint64) float64 {
	if count <= 1 {
		return 0
	}
	// rounding in the mean-state conversion can leave a tiny negative variance
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v / float64(count))
}
