package kindset

import (
	"cmp"
	"encoding/binary"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
)

var _ Manager[uint32, *roaring.Bitmap] = RoaringManager{}

// RoaringManager stores kind sets as compressed roaring bitmaps. It suits
// sparse or very large integer kind spaces where a fixed FlagArray would
// waste memory.
type RoaringManager struct{}

func NewRoaringManager() RoaringManager {
	return RoaringManager{}
}

func (RoaringManager) Create() *roaring.Bitmap {
	return roaring.New()
}

func (RoaringManager) Of(kinds ...uint32) (*roaring.Bitmap, error) {
	return roaring.BitmapOf(kinds...), nil
}

func (RoaringManager) Validate(uint32) error {
	return nil
}

func (RoaringManager) Add(set *roaring.Bitmap, kind uint32) (bool, error) {
	return set.CheckedAdd(kind), nil
}

func (RoaringManager) Remove(set *roaring.Bitmap, kind uint32) bool {
	return set.CheckedRemove(kind)
}

func (RoaringManager) Contains(set *roaring.Bitmap, kind uint32) bool {
	return set.Contains(kind)
}

func (RoaringManager) ContainsAll(set, subset *roaring.Bitmap) bool {
	n := subset.GetCardinality()
	return n == 0 || set.AndCardinality(subset) == n
}

func (RoaringManager) Overlaps(a, b *roaring.Bitmap) bool {
	return a.Intersects(b)
}

func (RoaringManager) IsEmpty(set *roaring.Bitmap) bool {
	return set.IsEmpty()
}

func (RoaringManager) Count(set *roaring.Bitmap) int {
	return int(set.GetCardinality())
}

func (RoaringManager) Kinds(set *roaring.Bitmap) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := set.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

func (RoaringManager) Equal(a, b *roaring.Bitmap) bool {
	return a.Equals(b)
}

func (RoaringManager) Hash(set *roaring.Bitmap) uint64 {
	members := set.ToArray()
	buf := make([]byte, 0, len(members)*4)
	for _, k := range members {
		buf = binary.LittleEndian.AppendUint32(buf, k)
	}
	return xxhash.Sum64(buf)
}

func (RoaringManager) Clone(set *roaring.Bitmap) *roaring.Bitmap {
	return set.Clone()
}

func (RoaringManager) Compare(a, b uint32) int {
	return cmp.Compare(a, b)
}
