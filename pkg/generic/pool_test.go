package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool(t *testing.T) {
	p := NewPool(func() []byte { return make([]byte, 0, 8) })
	b := p.Get()
	assert.Equal(t, 8, cap(b))
	p.Put(b)
}

func TestSlicePool_ReturnsEmptySlices(t *testing.T) {
	p := NewSlicePool[int](4, 64)

	s := p.Get()
	assert.Empty(t, *s)
	*s = append(*s, 1, 2, 3)
	p.Put(s)

	again := p.Get()
	assert.Empty(t, *again, "recycled slices are reset")
	p.Put(again)

	big := p.Get()
	*big = make([]int, 0, 128)
	p.Put(big)
	assert.Empty(t, *p.Get())
}
