package wikidata

import "iter"

// OrderedMap is a map that remembers insertion order. Keys are unique; setting
// an existing key replaces its value in place. The zero value is ready to use.
type OrderedMap[K comparable, V any] struct {
	keys  []K
	vals  []V
	index map[K]int
}

// Set inserts or replaces the value for k.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if i, ok := m.index[k]; ok {
		m.vals[i] = v
		return
	}
	if m.index == nil {
		m.index = make(map[K]int)
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Get returns the value for k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	i, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Has reports whether k is present.
func (m *OrderedMap[K, V]) Has(k K) bool {
	if m == nil {
		return false
	}
	_, ok := m.index[k]
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order. The slice is a copy.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	return append([]K(nil), m.keys...)
}

// All iterates entries in order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// MultilingualText maps a language code to a text; used for labels and descriptions.
type MultilingualText = OrderedMap[string, string]

// AliasMap maps a language code to its aliases in input order.
type AliasMap = OrderedMap[string, []string]

// SnakGroups maps a property to its snaks, in qualifiers-order/snaks-order or encounter order.
type SnakGroups = OrderedMap[EntityID, []Snak]

// ClaimMap maps a property to its claims in input order.
type ClaimMap = OrderedMap[EntityID, []Claim]

// SitelinkMap maps a site key such as "enwiki" to its sitelink.
type SitelinkMap = OrderedMap[string, Sitelink]
