// Package archive is the path-addressed key/value store that results and
// accumulators are persisted into.
//
// An archive keeps a current context, a stack of path segments changed with
// Enter and Leave. Keys passed to reads and writes are relative to it, so
//
//	a.Enter("energy")
//	a.WriteUint("count", 10)
//
// stores the value under "energy/count". Values are encoded with
// kelindar/binary; the byte layout is private to this package.
package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelindar/binary"
)

// ErrNotFound is returned when a key does not exist in the current context.
var ErrNotFound = errors.New("archive: key not found")

const separator = "/"

// Writer stores scalars and columns under the current context.
type Writer interface {
	Enter(key string)
	Leave()
	Path() string
	WriteUint(key string, v uint64) error
	WriteColumn(key string, col []float64) error
}

// Reader loads scalars and columns from the current context.
type Reader interface {
	Enter(key string)
	Leave()
	Path() string
	ReadUint(key string) (uint64, error)
	ReadColumn(key string) ([]float64, error)
}

// Archive is both a Reader and a Writer.
type Archive interface {
	Writer
	Reader
}

// cursor tracks the current context.
type cursor struct {
	segments []string
}

func (c *cursor) Enter(key string) {
	c.segments = append(c.segments, strings.Trim(key, separator))
}

// Leave pops the innermost context. Leaving the root is a no-op.
func (c *cursor) Leave() {
	if len(c.segments) > 0 {
		c.segments = c.segments[:len(c.segments)-1]
	}
}

func (c *cursor) Path() string {
	return strings.Join(c.segments, separator)
}

func (c *cursor) key(rel string) string {
	rel = strings.Trim(rel, separator)
	if len(c.segments) == 0 {
		return rel
	}
	return c.Path() + separator + rel
}

func encodeUint(v uint64) ([]byte, error) {
	return binary.Marshal(v)
}

func decodeUint(key string, b []byte) (uint64, error) {
	var v uint64
	if err := binary.Unmarshal(b, &v); err != nil {
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func encodeColumn(col []float64) ([]byte, error) {
	if col == nil {
		col = []float64{}
	}
	return binary.Marshal(col)
}

func decodeColumn(key string, b []byte) ([]float64, error) {
	var col []float64
	if err := binary.Unmarshal(b, &col); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if col == nil {
		col = []float64{}
	}
	return col, nil
}
