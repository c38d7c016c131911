package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseArchive(t *testing.T, a Archive) {
	a.Enter("energy")
	require.Equal(t, "energy", a.Path())
	require.NoError(t, a.WriteUint("count", 42))
	require.NoError(t, a.WriteColumn("mean", []float64{1.5, -2.25}))
	require.NoError(t, a.WriteColumn("empty", nil))

	a.Enter("/level/0/")
	require.Equal(t, "energy/level/0", a.Path())
	require.NoError(t, a.WriteUint("count", 7))
	a.Leave()
	a.Leave()
	a.Leave()
	require.Equal(t, "", a.Path())

	a.Enter("energy")
	n, err := a.ReadUint("count")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	col, err := a.ReadColumn("mean")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2.25}, col)

	col, err = a.ReadColumn("empty")
	require.NoError(t, err)
	assert.Empty(t, col)

	_, err = a.ReadUint("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.ReadColumn("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	a.Leave()

	n, err = a.ReadUint("energy/level/0/count")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseArchive(t, m)
	assert.Equal(t, []string{"energy/count", "energy/empty", "energy/level/0/count", "energy/mean"}, m.Keys("energy/"))
}

func TestBadgerInMemory(t *testing.T) {
	b, err := OpenBadger(BadgerConfig{InMemory: true}, nil)
	require.NoError(t, err)
	defer b.Close()

	exerciseArchive(t, b)
	keys, err := b.Keys("energy/level")
	require.NoError(t, err)
	assert.Equal(t, []string{"energy/level/0/count"}, keys)
}

func TestBadgerOnDisk(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenBadger(BadgerConfig{Path: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, b.WriteColumn("x", []float64{3}))
	require.NoError(t, b.Close())

	b, err = OpenBadger(BadgerConfig{Path: dir}, nil)
	require.NoError(t, err)
	defer b.Close()
	col, err := b.ReadColumn("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, col)
}

func TestBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{}, nil)
	assert.Error(t, err)
}
