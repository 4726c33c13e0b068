package kindset

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashSet is a kind set for arbitrary comparable kinds.
type HashSet[K comparable] map[K]struct{}

// HashSetManager manages HashSet kind sets. compare orders kinds and hash
// digests a single kind; equal kinds must hash alike.
type HashSetManager[K comparable] struct {
	compare func(a, b K) int
	hash    func(K) uint64
}

// NewHashSetManager returns a manager for naturally ordered kinds such as
// strings or integers.
func NewHashSetManager[K cmp.Ordered]() *HashSetManager[K] {
	return NewHashSetManagerFunc[K](cmp.Compare[K], func(k K) uint64 {
		return xxhash.Sum64String(fmt.Sprint(k))
	})
}

// NewHashSetManagerFunc returns a manager using the given ordering and hash.
func NewHashSetManagerFunc[K comparable](compare func(a, b K) int, hash func(K) uint64) *HashSetManager[K] {
	return &HashSetManager[K]{compare: compare, hash: hash}
}

// NewTypeSetManager returns a manager whose kinds are Go types, ordered by
// package path and then by type name.
func NewTypeSetManager() *HashSetManager[reflect.Type] {
	return NewHashSetManagerFunc[reflect.Type](compareTypes, func(t reflect.Type) uint64 {
		return xxhash.Sum64String(t.PkgPath() + "." + t.String())
	})
}

func compareTypes(a, b reflect.Type) int {
	if a == b {
		return 0
	}
	if c := strings.Compare(a.PkgPath(), b.PkgPath()); c != 0 {
		return c
	}
	return strings.Compare(a.String(), b.String())
}

func (m *HashSetManager[K]) Create() HashSet[K] {
	return make(HashSet[K])
}

func (m *HashSetManager[K]) Of(kinds ...K) (HashSet[K], error) {
	set := make(HashSet[K], len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set, nil
}

func (m *HashSetManager[K]) Validate(K) error {
	return nil
}

func (m *HashSetManager[K]) Add(set HashSet[K], kind K) (bool, error) {
	if _, ok := set[kind]; ok {
		return false, nil
	}
	set[kind] = struct{}{}
	return true, nil
}

func (m *HashSetManager[K]) Remove(set HashSet[K], kind K) bool {
	if _, ok := set[kind]; !ok {
		return false
	}
	delete(set, kind)
	return true
}

func (m *HashSetManager[K]) Contains(set HashSet[K], kind K) bool {
	_, ok := set[kind]
	return ok
}

func (m *HashSetManager[K]) ContainsAll(set, subset HashSet[K]) bool {
	if len(subset) > len(set) {
		return false
	}
	for k := range subset {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

func (m *HashSetManager[K]) Overlaps(a, b HashSet[K]) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func (m *HashSetManager[K]) IsEmpty(set HashSet[K]) bool {
	return len(set) == 0
}

func (m *HashSetManager[K]) Count(set HashSet[K]) int {
	return len(set)
}

func (m *HashSetManager[K]) Kinds(set HashSet[K]) iter.Seq[K] {
	return func(yield func(K) bool) {
		keys := make([]K, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, m.compare)
		for _, k := range keys {
			if !yield(k) {
				return
			}
		}
	}
}

func (m *HashSetManager[K]) Equal(a, b HashSet[K]) bool {
	return len(a) == len(b) && m.ContainsAll(a, b)
}

// Hash combines member hashes with a commutative sum so that iteration order
// does not matter.
func (m *HashSetManager[K]) Hash(set HashSet[K]) uint64 {
	var h uint64
	for k := range set {
		h += mix(m.hash(k))
	}
	return h ^ uint64(len(set))
}

func (m *HashSetManager[K]) Clone(set HashSet[K]) HashSet[K] {
	out := make(HashSet[K], len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}

func (m *HashSetManager[K]) Compare(a, b K) int {
	return m.compare(a, b)
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
