package compact

import "iter"

// IntKeyCollection is a Dictionary keyed by int.
type IntKeyCollection[V any] = Dictionary[int, V]

// NewIntKeyCollection returns an empty IntKeyCollection.
func NewIntKeyCollection[V any](capacity int) *IntKeyCollection[V] {
	return NewDictionary[int, V](capacity)
}

// IndexedCollection stores values under keys it allocates itself. Keys grow
// monotonically and are never handed out twice, so Add always appends.
type IndexedCollection[V any] struct {
	items *IntKeyCollection[V]
	next  int
}

// NewIndexedCollection returns an empty IndexedCollection.
func NewIndexedCollection[V any](capacity int) *IndexedCollection[V] {
	return &IndexedCollection[V]{items: NewIntKeyCollection[V](capacity)}
}

// Add stores value under a fresh key and returns it.
func (c *IndexedCollection[V]) Add(value V) int {
	key := c.next
	c.next++
	c.items.Set(key, value)
	return key
}

// NextKey returns the key the next Add will allocate.
func (c *IndexedCollection[V]) NextKey() int {
	return c.next
}

// Get returns the value stored under key.
func (c *IndexedCollection[V]) Get(key int) (V, bool) {
	return c.items.Get(key)
}

// Ref returns a pointer to key's slot, or nil.
func (c *IndexedCollection[V]) Ref(key int) *V {
	return c.items.Ref(key)
}

// Update overwrites the value of an existing key and reports whether it existed.
func (c *IndexedCollection[V]) Update(key int, value V) bool {
	ref := c.items.Ref(key)
	if ref == nil {
		return false
	}
	*ref = value
	return true
}

// Contains reports whether key is present.
func (c *IndexedCollection[V]) Contains(key int) bool {
	return c.items.ContainsKey(key)
}

// Remove deletes key and reports whether it was present.
func (c *IndexedCollection[V]) Remove(key int) bool {
	return c.items.Remove(key)
}

// RemoveAll deletes the given keys and returns those that were present.
func (c *IndexedCollection[V]) RemoveAll(keys []int) []int {
	return c.items.RemoveAll(keys)
}

// Len returns the number of stored values.
func (c *IndexedCollection[V]) Len() int {
	return c.items.Len()
}

// Capacity returns the backing array capacity.
func (c *IndexedCollection[V]) Capacity() int {
	return c.items.Capacity()
}

// SetCapacity resizes the backing arrays; see Dictionary.SetCapacity.
func (c *IndexedCollection[V]) SetCapacity(capacity int) error {
	return c.items.SetCapacity(capacity)
}

// TrimToSize shrinks the capacity to Len.
func (c *IndexedCollection[V]) TrimToSize() {
	c.items.TrimToSize()
}

// All yields stored entries in key order.
func (c *IndexedCollection[V]) All() iter.Seq2[int, V] {
	return c.items.All()
}
