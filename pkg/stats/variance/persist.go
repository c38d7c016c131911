package variance

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shashank-93rao/varstats/pkg/stats/archive"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

const (
	keyCount      = "count"
	keyMean       = "mean"
	keyVar        = "var"
	keyData       = "data"
	keyData2      = "data2"
	keySize       = "size"
	keyBundleSize = "bundle_size"
	keyLevels     = "levels"
	keyLevel      = "level"
	keyBundleFill = "bundle_fill"
	keyBundleSum  = "bundle_sum"
)

// Serialize writes count, mean and var under the current context of w.
func (r *VarResult[T, V]) Serialize(w archive.Writer) error {
	if err := w.WriteUint(keyCount, r.state.count); err != nil {
		return err
	}
	if err := w.WriteColumn(keyMean, strategy.Flatten(r.state.data)); err != nil {
		return err
	}
	return w.WriteColumn(keyVar, strategy.Flatten(r.state.data2))
}

// DeserializeVarResult reads a result written by Serialize from the current
// context of rd.
func DeserializeVarResult[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], rd archive.Reader) (*VarResult[T, V], error) {
	count, err := rd.ReadUint(keyCount)
	if err != nil {
		return nil, err
	}
	mean, err := rd.ReadColumn(keyMean)
	if err != nil {
		return nil, err
	}
	vars, err := rd.ReadColumn(keyVar)
	if err != nil {
		return nil, err
	}
	state, err := stateFromColumns(s, count, mean, vars, MeanMode)
	if err != nil {
		return nil, fmt.Errorf("deserialize result at %q: %w", rd.Path(), err)
	}
	return &VarResult[T, V]{state: state}, nil
}

// Serialize writes the accumulator, every binning level and its partially
// filled bundle included, under the current context of w. Level k is stored
// in the sub-context "level/k" as {count, data, data2, bundle_fill,
// bundle_sum}, with data and data2 in sum form.
func (a *VarAcc[T, V]) Serialize(w archive.Writer) error {
	if err := a.check(); err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if err := w.WriteUint(keySize, uint64(a.size)); err != nil {
		return err
	}
	if err := w.WriteUint(keyBundleSize, uint64(a.bundleSize)); err != nil {
		return err
	}
	if err := w.WriteUint(keyLevels, uint64(len(a.levels))); err != nil {
		return err
	}
	w.Enter(keyLevel)
	defer w.Leave()
	for k, lvl := range a.levels {
		if err := writeLevel(w, strconv.Itoa(k), lvl); err != nil {
			return err
		}
	}
	return nil
}

func writeLevel[T strategy.Scalar, V strategy.Element](w archive.Writer, key string, lvl level[T, V]) error {
	w.Enter(key)
	defer w.Leave()
	if err := w.WriteUint(keyCount, lvl.state.count); err != nil {
		return err
	}
	if err := w.WriteColumn(keyData, strategy.Flatten(lvl.state.data)); err != nil {
		return err
	}
	if err := w.WriteColumn(keyData2, strategy.Flatten(lvl.state.data2)); err != nil {
		return err
	}
	if err := w.WriteUint(keyBundleFill, uint64(lvl.bundle.count)); err != nil {
		return err
	}
	return w.WriteColumn(keyBundleSum, strategy.Flatten(lvl.bundle.sum))
}

// DeserializeVarAcc restores an accumulator written by VarAcc.Serialize. The
// restored accumulator continues exactly where the original left off. It is
// presized, so Reset keeps the restored size.
func DeserializeVarAcc[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], rd archive.Reader) (*VarAcc[T, V], error) {
	size, err := rd.ReadUint(keySize)
	if err != nil {
		return nil, err
	}
	bundleSize, err := rd.ReadUint(keyBundleSize)
	if err != nil {
		return nil, err
	}
	nlevels, err := rd.ReadUint(keyLevels)
	if err != nil {
		return nil, err
	}
	if nlevels == 0 {
		return nil, errors.New("deserialize accumulator: no levels stored")
	}
	a, err := NewVarAcc(s, WithSize(int(size)), WithBundleSize(int(bundleSize)))
	if err != nil {
		return nil, err
	}
	a.levels = a.levels[:0]

	rd.Enter(keyLevel)
	defer rd.Leave()
	for k := 0; k < int(nlevels); k++ {
		lvl, err := readLevel(s, rd, strconv.Itoa(k), int(bundleSize))
		if err != nil {
			return nil, err
		}
		if lvl.state.Size() != int(size) || lvl.bundle.Size() != int(size) {
			return nil, fmt.Errorf("deserialize level %d of size %d into size %d: %w", k, lvl.state.Size(), size, ErrSizeMismatch)
		}
		a.levels = append(a.levels, lvl)
	}
	return a, nil
}

func readLevel[T strategy.Scalar, V strategy.Element](s strategy.Strategy[T, V], rd archive.Reader, key string, bundleSize int) (level[T, V], error) {
	rd.Enter(key)
	defer rd.Leave()
	count, err := rd.ReadUint(keyCount)
	if err != nil {
		return level[T, V]{}, err
	}
	data, err := rd.ReadColumn(keyData)
	if err != nil {
		return level[T, V]{}, err
	}
	data2, err := rd.ReadColumn(keyData2)
	if err != nil {
		return level[T, V]{}, err
	}
	fill, err := rd.ReadUint(keyBundleFill)
	if err != nil {
		return level[T, V]{}, err
	}
	flatSum, err := rd.ReadColumn(keyBundleSum)
	if err != nil {
		return level[T, V]{}, err
	}
	state, err := stateFromColumns(s, count, data, data2, SumMode)
	if err != nil {
		return level[T, V]{}, fmt.Errorf("deserialize level at %q: %w", rd.Path(), err)
	}
	sum, err := strategy.Unflatten[T](flatSum)
	if err != nil {
		return level[T, V]{}, fmt.Errorf("deserialize bundle at %q: %w", rd.Path(), err)
	}
	if int(fill) >= bundleSize {
		return level[T, V]{}, fmt.Errorf("deserialize bundle at %q: fill %d exceeds capacity %d", rd.Path(), fill, bundleSize)
	}
	b := NewBundle[T](len(sum), bundleSize)
	copy(b.sum, sum)
	b.count = int(fill)
	return level[T, V]{state: state, bundle: b}, nil
}
