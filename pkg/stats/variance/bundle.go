package variance

import "github.com/shashank-93rao/varstats/pkg/stats/strategy"

// Bundle collects a fixed number of consecutive samples and emits their
// mean once it is full. Only the running sum is kept.
type Bundle[T strategy.Scalar] struct {
	sum      []T
	out      []T
	count    int
	capacity int
}

func NewBundle[T strategy.Scalar](size, capacity int) *Bundle[T] {
	return &Bundle[T]{
		sum:      make([]T, size),
		out:      make([]T, size),
		capacity: capacity,
	}
}

// Push adds a sample. When this fills the bundle it returns the mean of the
// bundled samples and true, and the bundle starts over. The returned slice
// is reused by the next completed Push.
func (b *Bundle[T]) Push(sample []T) ([]T, bool) {
	for i, x := range sample {
		b.sum[i] += x
	}
	b.count++
	if b.count < b.capacity {
		return nil, false
	}
	inv := 1 / float64(b.capacity)
	for i := range b.sum {
		b.out[i] = strategy.Scale(b.sum[i], inv)
	}
	b.Reset()
	return b.out, true
}

func (b *Bundle[T]) Reset() {
	var zero T
	for i := range b.sum {
		b.sum[i] = zero
	}
	b.count = 0
}

// Count is the number of samples in the current, incomplete bundle.
func (b *Bundle[T]) Count() int { return b.count }

func (b *Bundle[T]) Capacity() int { return b.capacity }

func (b *Bundle[T]) Size() int { return len(b.sum) }

func (b *Bundle[T]) clone() *Bundle[T] {
	c := NewBundle[T](len(b.sum), b.capacity)
	copy(c.sum, b.sum)
	c.count = b.count
	return c
}
