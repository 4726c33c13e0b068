package kindset

import (
	"cmp"
	"iter"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/pkg/bitset"
)

var _ Manager[int, *bitset.FlagArray] = (*FlagArrayManager)(nil)

// FlagArrayManager represents kind sets as bitset.FlagArray values over the
// dense integer kinds [0, capacity).
type FlagArrayManager struct {
	capacity int
}

func NewFlagArrayManager(capacity int) *FlagArrayManager {
	return &FlagArrayManager{capacity: capacity}
}

func (m *FlagArrayManager) Capacity() int {
	return m.capacity
}

func (m *FlagArrayManager) Create() *bitset.FlagArray {
	return bitset.New(m.capacity)
}

func (m *FlagArrayManager) Of(kinds ...int) (*bitset.FlagArray, error) {
	set := m.Create()
	for _, k := range kinds {
		if _, err := m.Add(set, k); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (m *FlagArrayManager) Validate(kind int) error {
	if kind < 0 || kind >= m.capacity {
		return ecserr.Wrap(ecserr.CodeOutOfRange, "component kind", bitset.ErrOutOfRange).
			WithContext("kind", kind).
			WithContext("capacity", m.capacity)
	}
	return nil
}

func (m *FlagArrayManager) Add(set *bitset.FlagArray, kind int) (bool, error) {
	if err := m.Validate(kind); err != nil {
		return false, err
	}
	added, err := set.Add(kind)
	if err != nil {
		return false, ecserr.Wrap(ecserr.CodeOutOfRange, "component kind", err)
	}
	return added, nil
}

func (m *FlagArrayManager) Remove(set *bitset.FlagArray, kind int) bool {
	removed, err := set.Remove(kind)
	return err == nil && removed
}

func (m *FlagArrayManager) Contains(set *bitset.FlagArray, kind int) bool {
	return set.Has(kind)
}

func (m *FlagArrayManager) ContainsAll(set, subset *bitset.FlagArray) bool {
	return set.IsSupersetOf(subset)
}

func (m *FlagArrayManager) Overlaps(a, b *bitset.FlagArray) bool {
	return a.Overlaps(b)
}

func (m *FlagArrayManager) IsEmpty(set *bitset.FlagArray) bool {
	return set.IsEmpty()
}

func (m *FlagArrayManager) Count(set *bitset.FlagArray) int {
	return set.Count()
}

func (m *FlagArrayManager) Kinds(set *bitset.FlagArray) iter.Seq[int] {
	return set.Flags()
}

func (m *FlagArrayManager) Equal(a, b *bitset.FlagArray) bool {
	return a.SetEquals(b)
}

func (m *FlagArrayManager) Hash(set *bitset.FlagArray) uint64 {
	return set.Hash()
}

func (m *FlagArrayManager) Clone(set *bitset.FlagArray) *bitset.FlagArray {
	return set.Clone()
}

func (m *FlagArrayManager) Compare(a, b int) int {
	return cmp.Compare(a, b)
}
