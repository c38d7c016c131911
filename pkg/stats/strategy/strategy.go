// Package strategy defines how the second moment of a sample type is
// accumulated and turned into a variance.
//
// A strategy is chosen once, when an accumulator or result is constructed,
// and never changes afterwards. Three are provided:
//
//	Real      float64 samples, float64 variance
//	Circular  complex128 samples, float64 variance <|x - mean|^2>
//	Elliptic  complex128 samples, ComplexOp (2x2 covariance of Re and Im)
//
// For real samples the circular and elliptic variances coincide with Real.
package strategy

import (
	"fmt"
	"strings"
)

// Scalar is the set of sample component types.
type Scalar interface {
	float64 | complex128
}

// Element is the set of types stored in accumulator columns.
type Element interface {
	float64 | complex128 | ComplexOp
}

// Kind names a strategy.
type Kind string

const (
	RealKind     Kind = "real"
	CircularKind Kind = "circular"
	EllipticKind Kind = "elliptic"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the strategy names used in config files and flags.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case RealKind, CircularKind, EllipticKind:
		return k, nil
	default:
		return "", fmt.Errorf("unknown variance strategy %q", s)
	}
}

// Strategy is the arithmetic of the variance type V for samples of type T.
type Strategy[T Scalar, V Element] interface {
	Kind() Kind

	// Term is the second-moment contribution of the pair (x, y). Term(x, x)
	// is what gets added to the squared-deviation column for a sample x.
	Term(x, y T) V

	AddVar(a, b V) V

	SubVar(a, b V) V

	ScaleVar(v V, f float64) V

	// StdError is the standard error of a mean with variance v over count
	// samples. It is zero for count 0 and 1.
	StdError(v V, count uint64) V
}

// Scale multiplies a sample component by a real factor.
func Scale[T Scalar](x T, f float64) T {
	switch v := any(x).(type) {
	case float64:
		return any(v * f).(T)
	case complex128:
		return any(v * complex(f, 0)).(T)
	}
	panic("unreachable")
}
