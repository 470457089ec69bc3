package util

import (
	"cmp"
	"slices"

	"github.com/agenium-scale/nsconfig/log"
)

// OrderedMap is a map whose iteration follows the order of its keys. Build files are written by walking such maps,
// so that the same description always yields the same bytes.
//
// A key is inserted once: inserting it again aborts the program.
type OrderedMap[K cmp.Ordered, V any] struct {
	data map[K]V
}

// OrderedMapEntry is one key and its value.
type OrderedMapEntry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

func NewOrderedMap[K cmp.Ordered, V any]() OrderedMap[K, V] {
	return OrderedMap[K, V]{data: map[K]V{}}
}

// Insert adds a new key. Callers updating a key check Has or Lookup first.
func (m *OrderedMap[K, V]) Insert(key K, value V) {
	if old, ok := m.data[key]; ok {
		log.Fatal("Key %v inserted twice, old value: %v, new value: %v\n", key, old, value)
	}
	m.data[key] = value
}

func (m *OrderedMap[K, V]) Lookup(key K) (V, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *OrderedMap[K, V]) Has(key K) bool {
	_, ok := m.data[key]
	return ok
}

func (m *OrderedMap[K, V]) Len() int {
	return len(m.data)
}

// Keys returns the sorted keys.
func (m *OrderedMap[K, V]) Keys() []K {
	return OrderedKeys(m.data)
}

// Values returns the values sorted by key.
func (m *OrderedMap[K, V]) Values() []V {
	return MappedSlice(m.Keys(), func(k K) V { return m.data[k] })
}

// Entries returns the pairs sorted by key.
func (m *OrderedMap[K, V]) Entries() []OrderedMapEntry[K, V] {
	return MappedSlice(m.Keys(), func(k K) OrderedMapEntry[K, V] { return OrderedMapEntry[K, V]{k, m.data[k]} })
}

// OrderedSlice returns a sorted copy of values.
func OrderedSlice[V cmp.Ordered](values []V) []V {
	result := slices.Clone(values)
	slices.Sort(result)
	return result
}

// OrderedKeys returns the sorted keys of m.
func OrderedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
