package main

import (
	"math"
	"math/rand/v2"

	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

// chain is a vector of independent AR(1) processes
//
//	x[t+1] = rho*x[t] + sqrt(1-rho^2)*noise
//
// with unit stationary variance and integrated autocorrelation time
// (1+rho)/(1-rho). The imaginary parts are scaled by aspect.
type chain struct {
	rho    float64
	noise  float64
	aspect float64
	re, im []float64
	rng    *rand.Rand
}

func newChain(size int, rho, aspect float64, seed int64, worker int) *chain {
	c := &chain{
		rho:    rho,
		noise:  math.Sqrt(1 - rho*rho),
		aspect: aspect,
		re:     make([]float64, size),
		im:     make([]float64, size),
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(worker))),
	}
	// start in equilibrium
	for i := range c.re {
		c.re[i] = c.rng.NormFloat64()
		c.im[i] = c.rng.NormFloat64()
	}
	return c
}

func (c *chain) step() {
	for i := range c.re {
		c.re[i] = c.rho*c.re[i] + c.noise*c.rng.NormFloat64()
		c.im[i] = c.rho*c.im[i] + c.noise*c.rng.NormFloat64()
	}
}

// sample writes the current state into dst.
func sample[T strategy.Scalar](c *chain, dst []T) {
	switch d := any(dst).(type) {
	case []float64:
		copy(d, c.re)
	case []complex128:
		for i := range d {
			d[i] = complex(c.re[i], c.aspect*c.im[i])
		}
	}
}

// aspectFor makes the elliptic demo anisotropic; the others stay circular.
func aspectFor(kind strategy.Kind) float64 {
	if kind == strategy.EllipticKind {
		return 0.5
	}
	return 1
}

// tau is the integrated autocorrelation time of an AR(1) chain.
func tau(rho float64) float64 {
	return (1 + rho) / (1 - rho)
}
