package archive

import (
	"fmt"
	"sort"
	"strings"
)

// Memory is an Archive held in a map. It is not safe for concurrent use.
type Memory struct {
	cursor
	values map[string][]byte
}

var _ Archive = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) WriteUint(key string, v uint64) error {
	b, err := encodeUint(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.key(key), err)
	}
	m.values[m.key(key)] = b
	return nil
}

func (m *Memory) WriteColumn(key string, col []float64) error {
	b, err := encodeColumn(col)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.key(key), err)
	}
	m.values[m.key(key)] = b
	return nil
}

func (m *Memory) ReadUint(key string) (uint64, error) {
	full := m.key(key)
	b, ok := m.values[full]
	if !ok {
		return 0, fmt.Errorf("%s: %w", full, ErrNotFound)
	}
	return decodeUint(full, b)
}

func (m *Memory) ReadColumn(key string) ([]float64, error) {
	full := m.key(key)
	b, ok := m.values[full]
	if !ok {
		return nil, fmt.Errorf("%s: %w", full, ErrNotFound)
	}
	return decodeColumn(full, b)
}

// Keys lists the stored keys below prefix in lexical order.
func (m *Memory) Keys(prefix string) []string {
	var keys []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
