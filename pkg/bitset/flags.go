// Package bitset provides FlagArray, a fixed-capacity set of small
// non-negative integers packed into 32-bit words.
//
// Single bit flips (Add, Remove, Set, Clear) are safe for concurrent use: every
// word is updated through a compare-and-swap loop. Bulk operations read each
// word atomically but do not take a consistent snapshot of the whole array.
package bitset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math/bits"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const wordBits = 32

// ErrOutOfRange is returned when an index falls outside [0, Capacity()).
var ErrOutOfRange = errors.New("bitset: index out of range")

// FlagArray is a fixed-capacity bit array.
type FlagArray struct {
	words    []uint32
	capacity int
}

// New returns an empty FlagArray able to hold indices in [0, capacity).
func New(capacity int) *FlagArray {
	if capacity < 0 {
		panic(fmt.Sprintf("bitset: negative capacity %d", capacity))
	}
	return &FlagArray{
		words:    make([]uint32, wordCount(capacity)),
		capacity: capacity,
	}
}

// Of returns a FlagArray with the given indices set.
func Of(capacity int, indices ...int) (*FlagArray, error) {
	f := New(capacity)
	for _, idx := range indices {
		if _, err := f.Add(idx); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func wordCount(capacity int) int {
	return (capacity + wordBits - 1) / wordBits
}

// Capacity returns the number of addressable bits.
func (f *FlagArray) Capacity() int {
	return f.capacity
}

func (f *FlagArray) word(i int) uint32 {
	if i >= len(f.words) {
		return 0
	}
	return atomic.LoadUint32(&f.words[i])
}

func (f *FlagArray) checkIndex(index int) error {
	if index < 0 || index >= f.capacity {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, f.capacity)
	}
	return nil
}

// Get reports whether index is set.
func (f *FlagArray) Get(index int) (bool, error) {
	if err := f.checkIndex(index); err != nil {
		return false, err
	}
	return f.word(index/wordBits)&(1<<(index%wordBits)) != 0, nil
}

// Has is Get without the range check: indices outside the capacity are never set.
func (f *FlagArray) Has(index int) bool {
	if index < 0 || index >= f.capacity {
		return false
	}
	return f.word(index/wordBits)&(1<<(index%wordBits)) != 0
}

// Set assigns value to index.
func (f *FlagArray) Set(index int, value bool) error {
	if err := f.checkIndex(index); err != nil {
		return err
	}
	f.flip(index, value)
	return nil
}

// Add sets index and reports whether it was previously unset.
func (f *FlagArray) Add(index int) (bool, error) {
	if err := f.checkIndex(index); err != nil {
		return false, err
	}
	return f.flip(index, true), nil
}

// Remove clears index and reports whether it was previously set.
func (f *FlagArray) Remove(index int) (bool, error) {
	if err := f.checkIndex(index); err != nil {
		return false, err
	}
	return f.flip(index, false), nil
}

func (f *FlagArray) flip(index int, value bool) bool {
	w := &f.words[index/wordBits]
	mask := uint32(1) << (index % wordBits)
	for {
		old := atomic.LoadUint32(w)
		next := old &^ mask
		if value {
			next = old | mask
		}
		if next == old {
			return false
		}
		if atomic.CompareAndSwapUint32(w, old, next) {
			return true
		}
	}
}

// Clear unsets every bit.
func (f *FlagArray) Clear() {
	for i := range f.words {
		atomic.StoreUint32(&f.words[i], 0)
	}
}

// Count returns the number of set bits.
func (f *FlagArray) Count() int {
	n := 0
	for i := range f.words {
		n += bits.OnesCount32(f.word(i))
	}
	return n
}

// IsEmpty reports whether no bit is set.
func (f *FlagArray) IsEmpty() bool {
	for i := range f.words {
		if f.word(i) != 0 {
			return false
		}
	}
	return true
}

// ContainsValue reports whether any position within capacity holds value.
func (f *FlagArray) ContainsValue(value bool) bool {
	if value {
		return !f.IsEmpty()
	}
	return f.Count() < f.capacity
}

// And returns the intersection, sized to the smaller capacity.
func (f *FlagArray) And(other *FlagArray) *FlagArray {
	r := New(min(f.capacity, other.capacity))
	for i := range r.words {
		r.words[i] = f.word(i) & other.word(i)
	}
	r.maskTail()
	return r
}

// Or returns the union, sized to the larger capacity.
func (f *FlagArray) Or(other *FlagArray) *FlagArray {
	r := New(max(f.capacity, other.capacity))
	for i := range r.words {
		r.words[i] = f.word(i) | other.word(i)
	}
	return r
}

// Xor returns the symmetric difference, sized to the larger capacity.
func (f *FlagArray) Xor(other *FlagArray) *FlagArray {
	r := New(max(f.capacity, other.capacity))
	for i := range r.words {
		r.words[i] = f.word(i) ^ other.word(i)
	}
	return r
}

// Minus returns the bits of f that are not set in other, keeping f's capacity.
func (f *FlagArray) Minus(other *FlagArray) *FlagArray {
	r := New(f.capacity)
	for i := range r.words {
		r.words[i] = f.word(i) &^ other.word(i)
	}
	return r
}

// Not returns the complement within the same capacity.
func (f *FlagArray) Not() *FlagArray {
	r := New(f.capacity)
	for i := range r.words {
		r.words[i] = ^f.word(i)
	}
	r.maskTail()
	return r
}

// maskTail clears bits at or beyond capacity in the last word.
func (f *FlagArray) maskTail() {
	if rem := f.capacity % wordBits; rem != 0 && len(f.words) > 0 {
		f.words[len(f.words)-1] &= (uint32(1) << rem) - 1
	}
}

// IsSubsetOf reports whether every bit set in f is also set in other.
func (f *FlagArray) IsSubsetOf(other *FlagArray) bool {
	for i := range f.words {
		if f.word(i)&^other.word(i) != 0 {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether every bit set in other is also set in f.
func (f *FlagArray) IsSupersetOf(other *FlagArray) bool {
	return other.IsSubsetOf(f)
}

// IsProperSubsetOf reports whether f is a subset of other and the sets differ.
func (f *FlagArray) IsProperSubsetOf(other *FlagArray) bool {
	return f.IsSubsetOf(other) && !f.SetEquals(other)
}

// IsProperSupersetOf reports whether f is a superset of other and the sets differ.
func (f *FlagArray) IsProperSupersetOf(other *FlagArray) bool {
	return other.IsProperSubsetOf(f)
}

// Overlaps reports whether f and other share at least one set bit.
func (f *FlagArray) Overlaps(other *FlagArray) bool {
	n := min(len(f.words), len(other.words))
	for i := 0; i < n; i++ {
		if f.word(i)&other.word(i) != 0 {
			return true
		}
	}
	return false
}

// SetEquals reports whether f and other hold the same set bits. Capacity is
// not compared.
func (f *FlagArray) SetEquals(other *FlagArray) bool {
	n := max(len(f.words), len(other.words))
	for i := 0; i < n; i++ {
		if f.word(i) != other.word(i) {
			return false
		}
	}
	return true
}

// Flags yields the set indices in ascending order. The sequence may be ranged
// over any number of times.
func (f *FlagArray) Flags() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range f.words {
			w := f.word(i)
			for w != 0 {
				if !yield(i*wordBits + bits.TrailingZeros32(w)) {
					return
				}
				w &= w - 1
			}
		}
	}
}

// Clone returns an independent copy.
func (f *FlagArray) Clone() *FlagArray {
	r := New(f.capacity)
	for i := range r.words {
		r.words[i] = f.word(i)
	}
	return r
}

// Hash returns an xxhash digest of the set bits. Arrays that are SetEquals
// hash identically regardless of capacity.
func (f *FlagArray) Hash() uint64 {
	last := len(f.words) - 1
	for last >= 0 && f.word(last) == 0 {
		last--
	}
	buf := make([]byte, 0, (last+1)*4)
	for i := 0; i <= last; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, f.word(i))
	}
	return xxhash.Sum64(buf)
}

func (f *FlagArray) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for idx := range f.Flags() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(strconv.Itoa(idx))
	}
	sb.WriteByte('}')
	return sb.String()
}
