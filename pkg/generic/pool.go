// Package generic holds small type-safe wrappers around untyped std APIs.
package generic

import "sync"

// Pool is a typed sync.Pool. Values handed back with Put may be returned by a
// later Get or dropped by the garbage collector at any time.
type Pool[T any] struct {
	pool sync.Pool
}

// NewPool returns a pool calling generate whenever it has nothing to hand out.
func NewPool[T any](generate func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
	}
}

// Get returns a pooled value, or a fresh one from generate.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put hands value back. The caller must not use it afterwards.
func (p *Pool[T]) Put(value T) {
	p.pool.Put(value)
}

// SlicePool recycles scratch slices. Slices come back empty, with whatever
// capacity they grew to; slices larger than maxCap are dropped on Put.
type SlicePool[T any] struct {
	pool   *Pool[*[]T]
	maxCap int
}

func NewSlicePool[T any](initCap, maxCap int) *SlicePool[T] {
	return &SlicePool[T]{
		pool: NewPool(func() *[]T {
			s := make([]T, 0, initCap)
			return &s
		}),
		maxCap: maxCap,
	}
}

// Get returns an empty slice.
func (p *SlicePool[T]) Get() *[]T {
	s := p.pool.Get()
	*s = (*s)[:0]
	return s
}

// Put hands s back. s must not be used afterwards.
func (p *SlicePool[T]) Put(s *[]T) {
	if p.maxCap > 0 && cap(*s) > p.maxCap {
		return
	}
	clear(*s)
	p.pool.Put(s)
}
