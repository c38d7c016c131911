package strategy

import "fmt"

// Width is the number of float64 values one element occupies once flattened.
func Width[E Element]() int {
	var e E
	switch any(e).(type) {
	case complex128:
		return 2
	case ComplexOp:
		return 4
	default:
		return 1
	}
}

// Flatten lays a column out as plain float64 values, the representation used
// by archives and reducers.
func Flatten[E Element](col []E) []float64 {
	switch c := any(col).(type) {
	case []float64:
		out := make([]float64, len(c))
		copy(out, c)
		return out
	case []complex128:
		out := make([]float64, 0, 2*len(c))
		for _, z := range c {
			out = append(out, real(z), imag(z))
		}
		return out
	case []ComplexOp:
		out := make([]float64, 0, 4*len(c))
		for _, o := range c {
			out = append(out, o.RR, o.RI, o.IR, o.II)
		}
		return out
	}
	panic("unreachable")
}

// Unflatten is the inverse of Flatten.
func Unflatten[E Element](flat []float64) ([]E, error) {
	w := Width[E]()
	if len(flat)%w != 0 {
		return nil, fmt.Errorf("column of %d values is not a multiple of element width %d", len(flat), w)
	}
	out := make([]E, len(flat)/w)
	switch c := any(out).(type) {
	case []float64:
		copy(c, flat)
	case []complex128:
		for i := range c {
			c[i] = complex(flat[2*i], flat[2*i+1])
		}
	case []ComplexOp:
		for i := range c {
			c[i] = ComplexOp{flat[4*i], flat[4*i+1], flat[4*i+2], flat[4*i+3]}
		}
	}
	return out, nil
}
