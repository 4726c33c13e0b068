package bitset

import (
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOf(t testing.TB, capacity int, indices ...int) *FlagArray {
	t.Helper()
	f, err := Of(capacity, indices...)
	require.NoError(t, err)
	return f
}

func TestFlagArray_GetSet(t *testing.T) {
	f := New(40)

	ok, err := f.Get(39)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Set(39, true))
	ok, err = f.Get(39)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.Set(39, false))
	assert.False(t, f.Has(39))

	_, err = f.Get(40)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, f.Set(-1, true), ErrOutOfRange)
	assert.False(t, f.Has(1000))
}

func TestFlagArray_AddRemoveReportChange(t *testing.T) {
	f := New(8)

	changed, err := f.Add(3)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.Add(3)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.Remove(3)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = f.Remove(3)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFlagArray_CountAndEmpty(t *testing.T) {
	f := New(70)
	assert.True(t, f.IsEmpty())
	assert.False(t, f.ContainsValue(true))
	assert.True(t, f.ContainsValue(false))

	f = mustOf(t, 70, 0, 31, 32, 69)
	assert.Equal(t, 4, f.Count())
	assert.False(t, f.IsEmpty())
	assert.True(t, f.ContainsValue(true))

	f.Clear()
	assert.True(t, f.IsEmpty())

	full := New(3).Not()
	assert.Equal(t, 3, full.Count())
	assert.False(t, full.ContainsValue(false))
}

func TestFlagArray_BinaryOpsCapacity(t *testing.T) {
	small := mustOf(t, 10, 1, 2, 9)
	large := mustOf(t, 100, 2, 9, 50, 99)

	tests := []struct {
		name     string
		result   *FlagArray
		capacity int
		flags    []int
	}{
		{name: "and takes the smaller capacity", result: small.And(large), capacity: 10, flags: []int{2, 9}},
		{name: "or takes the larger capacity", result: small.Or(large), capacity: 100, flags: []int{1, 2, 9, 50, 99}},
		{name: "xor takes the larger capacity", result: small.Xor(large), capacity: 100, flags: []int{1, 50, 99}},
		{name: "minus keeps the left capacity", result: small.Minus(large), capacity: 10, flags: []int{1}},
		{name: "minus from the larger side", result: large.Minus(small), capacity: 100, flags: []int{50, 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.capacity, tt.result.Capacity())
			assert.Equal(t, tt.flags, slices.Collect(tt.result.Flags()))
		})
	}
}

func TestFlagArray_NotMasksTail(t *testing.T) {
	f := mustOf(t, 35, 0, 34)
	n := f.Not()
	assert.Equal(t, 35, n.Capacity())
	assert.Equal(t, 33, n.Count())
	assert.False(t, n.Has(0))
	assert.False(t, n.Has(34))
	assert.True(t, n.Has(33))
}

func TestFlagArray_Relations(t *testing.T) {
	a := mustOf(t, 64, 1, 5)
	b := mustOf(t, 64, 1, 5, 7)
	c := mustOf(t, 128, 1, 5)
	d := mustOf(t, 64, 9)

	assert.True(t, a.IsSubsetOf(b))
	assert.True(t, a.IsProperSubsetOf(b))
	assert.True(t, b.IsSupersetOf(a))
	assert.True(t, b.IsProperSupersetOf(a))
	assert.False(t, b.IsSubsetOf(a))

	assert.True(t, a.SetEquals(c))
	assert.True(t, a.IsSubsetOf(c))
	assert.False(t, a.IsProperSubsetOf(c))

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(d))
	assert.True(t, New(0).IsSubsetOf(a))
}

func TestFlagArray_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	const capacity = 97

	random := func() *FlagArray {
		f := New(capacity)
		for i := 0; i < capacity; i++ {
			if rng.IntN(3) == 0 {
				_, _ = f.Add(i)
			}
		}
		return f
	}

	for i := 0; i < 200; i++ {
		a, b := random(), random()
		if i%10 == 0 {
			b = a.Or(b)
		}

		assert.Equal(t, a.IsSubsetOf(b), a.And(b.Not()).IsEmpty())
		assert.Equal(t, a.Overlaps(b), !a.And(b).IsEmpty())
		assert.True(t, a.Not().Not().SetEquals(a))
		assert.Equal(t, a.Count()+a.Not().Count(), capacity)
	}
}

func TestFlagArray_FlagsAscendingAndRestartable(t *testing.T) {
	f := mustOf(t, 200, 199, 3, 64, 31, 32)
	want := []int{3, 31, 32, 64, 199}

	assert.Equal(t, want, slices.Collect(f.Flags()))
	assert.Equal(t, want, slices.Collect(f.Flags()))

	var firstTwo []int
	for idx := range f.Flags() {
		firstTwo = append(firstTwo, idx)
		if len(firstTwo) == 2 {
			break
		}
	}
	assert.Equal(t, []int{3, 31}, firstTwo)
	assert.Equal(t, "{3, 31, 32, 64, 199}", f.String())
}

func TestFlagArray_HashIgnoresCapacity(t *testing.T) {
	a := mustOf(t, 10, 1, 4)
	b := mustOf(t, 300, 1, 4)
	c := mustOf(t, 10, 1, 5)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, New(0).Hash(), New(64).Hash())
}

func TestFlagArray_CloneIsIndependent(t *testing.T) {
	a := mustOf(t, 16, 2)
	b := a.Clone()
	_, _ = b.Add(3)
	assert.False(t, a.Has(3))
	assert.True(t, b.Has(2))
}

func TestFlagArray_ConcurrentFlips(t *testing.T) {
	const capacity = 64
	f := New(capacity)

	var wg sync.WaitGroup
	for i := 0; i < capacity; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				_, _ = f.Add(idx)
				_, _ = f.Remove(idx)
			}
			_, _ = f.Add(idx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, f.Count())
}

func BenchmarkFlagArray_IsSubsetOf(b *testing.B) {
	a, _ := Of(256, 1, 17, 64, 200)
	c, _ := Of(256, 1, 2, 17, 64, 100, 200, 255)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.IsSubsetOf(c)
	}
}

func BenchmarkFlagArray_Flip(b *testing.B) {
	f := New(256)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Add(i & 255)
		_, _ = f.Remove(i & 255)
	}
}
