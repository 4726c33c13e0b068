// Package sequence wraps iter.Seq in a small chainable Iterator.
package sequence

import (
	"iter"
	"slices"
)

// Iterator is an immutable, chainable view over a sequence of T. Stages are
// lazy and the iterator can be ranged again.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// FromSeq wraps seq.
func FromSeq[T any](seq iter.Seq[T]) *Iterator[T] {
	return &Iterator[T]{seq: seq}
}

// From iterates over data. The slice is not copied.
func From[T any](data []T) *Iterator[T] {
	return FromSeq(slices.Values(data))
}

// Collect exhausts the iterator into a slice.
func (i *Iterator[T]) Collect() []T {
	return slices.Collect(i.seq)
}

// Filter keeps the elements satisfying pred.
func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return FromSeq(func(yield func(T) bool) {
		for v := range i.seq {
			if pred(v) && !yield(v) {
				return
			}
		}
	})
}
