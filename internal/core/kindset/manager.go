// Package kindset abstracts how the set of component kinds attached to an
// entity is represented. A Manager is a stateless strategy operating on sets
// of type S; sets are reference values that the manager mutates in place.
package kindset

import "iter"

// Manager implements set operations over component kinds K held in sets S.
type Manager[K comparable, S any] interface {
	// Create returns an empty set.
	Create() S
	// Of returns a set holding kinds.
	Of(kinds ...K) (S, error)
	// Validate reports whether kind can be stored by this manager.
	Validate(kind K) error

	// Add inserts kind and reports whether it was absent.
	Add(set S, kind K) (bool, error)
	// Remove deletes kind and reports whether it was present.
	Remove(set S, kind K) bool
	Contains(set S, kind K) bool

	// ContainsAll reports whether set is a superset of subset.
	ContainsAll(set, subset S) bool
	// Overlaps reports whether a and b share a kind.
	Overlaps(a, b S) bool
	IsEmpty(set S) bool
	Count(set S) int
	// Kinds yields the members of set in Compare order.
	Kinds(set S) iter.Seq[K]

	// Equal and Hash identify structurally equal sets; Equal sets hash alike.
	Equal(a, b S) bool
	Hash(set S) uint64
	Clone(set S) S

	// Compare orders kinds; it is used to keep per-entity kind indexes sorted.
	Compare(a, b K) int
}

// ContainsAny reports whether set holds at least one of kinds.
func ContainsAny[K comparable, S any](m Manager[K, S], set S, kinds []K) bool {
	for _, k := range kinds {
		if m.Contains(set, k) {
			return true
		}
	}
	return false
}
