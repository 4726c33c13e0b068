// Package compact implements associative containers backed by sorted dense
// arrays. Lookups are O(log n) binary searches; inserts and removes shift the
// tail of the array. In exchange the containers hand out pointers directly
// into their backing storage (Ref), which callers may mutate in place.
//
// A pointer returned by Ref is valid only until the next structural mutation
// (insert, remove, capacity change) of the container it came from.
package compact

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
)

const minGrowCapacity = 16

// ErrOutOfRange is returned when a capacity would drop below the element count.
var ErrOutOfRange = errors.New("compact: argument out of range")

// Dictionary maps keys to values through two parallel sorted arrays.
type Dictionary[K any, V any] struct {
	keys    []K
	values  []V
	compare func(a, b K) int
}

// NewDictionary returns a Dictionary for naturally ordered keys.
func NewDictionary[K cmp.Ordered, V any](capacity int) *Dictionary[K, V] {
	return NewDictionaryFunc[K, V](capacity, cmp.Compare[K])
}

// NewDictionaryFunc returns a Dictionary ordered by compare.
func NewDictionaryFunc[K any, V any](capacity int, compare func(a, b K) int) *Dictionary[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Dictionary[K, V]{
		keys:    make([]K, 0, capacity),
		values:  make([]V, 0, capacity),
		compare: compare,
	}
}

// Len returns the number of entries.
func (d *Dictionary[K, V]) Len() int {
	return len(d.keys)
}

// Capacity returns the number of entries the backing arrays hold without growing.
func (d *Dictionary[K, V]) Capacity() int {
	return cap(d.keys)
}

// SetCapacity reallocates the backing arrays to exactly capacity slots.
func (d *Dictionary[K, V]) SetCapacity(capacity int) error {
	if capacity < len(d.keys) {
		return fmt.Errorf("%w: capacity %d is below count %d", ErrOutOfRange, capacity, len(d.keys))
	}
	if capacity == cap(d.keys) {
		return nil
	}
	keys := make([]K, len(d.keys), capacity)
	copy(keys, d.keys)
	values := make([]V, len(d.values), capacity)
	copy(values, d.values)
	d.keys, d.values = keys, values
	return nil
}

// TrimToSize shrinks the capacity to the current count.
func (d *Dictionary[K, V]) TrimToSize() {
	_ = d.SetCapacity(len(d.keys))
}

func (d *Dictionary[K, V]) grow(needed int) {
	if needed <= cap(d.keys) {
		return
	}
	next := cap(d.keys) * 2
	if next < minGrowCapacity {
		next = minGrowCapacity
	}
	if next < needed {
		next = needed
	}
	_ = d.SetCapacity(next)
}

func (d *Dictionary[K, V]) search(key K) (int, bool) {
	return slices.BinarySearchFunc(d.keys, key, d.compare)
}

// Set stores value under key and reports whether the key was new.
func (d *Dictionary[K, V]) Set(key K, value V) bool {
	idx, found := d.search(key)
	if found {
		d.values[idx] = value
		return false
	}
	d.insertAt(idx, key, value)
	return true
}

// TryAdd stores value only if key is absent and reports whether it did.
func (d *Dictionary[K, V]) TryAdd(key K, value V) bool {
	idx, found := d.search(key)
	if found {
		return false
	}
	d.insertAt(idx, key, value)
	return true
}

func (d *Dictionary[K, V]) insertAt(idx int, key K, value V) {
	d.grow(len(d.keys) + 1)
	d.keys = slices.Insert(d.keys, idx, key)
	d.values = slices.Insert(d.values, idx, value)
}

// Get returns the value stored under key.
func (d *Dictionary[K, V]) Get(key K) (V, bool) {
	idx, found := d.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return d.values[idx], true
}

// Ref returns a pointer to the slot holding key's value, or nil.
func (d *Dictionary[K, V]) Ref(key K) *V {
	idx, found := d.search(key)
	if !found {
		return nil
	}
	return &d.values[idx]
}

// ContainsKey reports whether key is present.
func (d *Dictionary[K, V]) ContainsKey(key K) bool {
	_, found := d.search(key)
	return found
}

// Remove deletes key and reports whether it was present.
func (d *Dictionary[K, V]) Remove(key K) bool {
	idx, found := d.search(key)
	if !found {
		return false
	}
	d.removeAt(idx)
	return true
}

// Take deletes key and returns the value it held.
func (d *Dictionary[K, V]) Take(key K) (V, bool) {
	idx, found := d.search(key)
	if !found {
		var zero V
		return zero, false
	}
	value := d.values[idx]
	d.removeAt(idx)
	return value, true
}

func (d *Dictionary[K, V]) removeAt(idx int) {
	// slices.Delete zeroes the vacated tail slot.
	d.keys = slices.Delete(d.keys, idx, idx+1)
	d.values = slices.Delete(d.values, idx, idx+1)
}

// RemoveAll deletes every present key in keys and returns the keys that were removed.
func (d *Dictionary[K, V]) RemoveAll(keys []K) []K {
	removed := make([]K, 0, len(keys))
	for _, key := range keys {
		if d.Remove(key) {
			removed = append(removed, key)
		}
	}
	return removed
}

// Clear removes every entry but keeps the capacity.
func (d *Dictionary[K, V]) Clear() {
	clear(d.keys)
	clear(d.values)
	d.keys = d.keys[:0]
	d.values = d.values[:0]
}

// Keys yields keys in ascending order.
func (d *Dictionary[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, key := range d.keys {
			if !yield(key) {
				return
			}
		}
	}
}

// All yields entries in ascending key order.
func (d *Dictionary[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i, key := range d.keys {
			if !yield(key, d.values[i]) {
				return
			}
		}
	}
}

// KeySlice returns a copy of the keys in ascending order.
func (d *Dictionary[K, V]) KeySlice() []K {
	return slices.Clone(d.keys)
}
