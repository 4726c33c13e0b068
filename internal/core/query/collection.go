package query

import (
	"fmt"
	"iter"
	"slices"

	"github.com/zeusync/kindstore/internal/core/events/bus"
	"github.com/zeusync/kindstore/pkg/sequence"
)

// EntityCollection is the live result set of one query. Only the engine
// mutates it; membership events fire exactly once per actual change.
type EntityCollection[E comparable] struct {
	id      ID
	index   map[E]int
	items   []E
	added   *bus.Bus[E]
	removed *bus.Bus[E]
}

func newEntityCollection[E comparable](id ID) *EntityCollection[E] {
	name := fmt.Sprintf("query-%d", id)
	return &EntityCollection[E]{
		id:      id,
		index:   make(map[E]int),
		added:   bus.New[E](name + "-added"),
		removed: bus.New[E](name + "-removed"),
	}
}

// ID returns the id of the query the collection answers.
func (c *EntityCollection[E]) ID() ID {
	return c.id
}

// Count returns the number of member entities.
func (c *EntityCollection[E]) Count() int {
	return len(c.items)
}

// Contains reports whether e is a member.
func (c *EntityCollection[E]) Contains(e E) bool {
	_, ok := c.index[e]
	return ok
}

// All yields the members as of the start of the range, in unspecified order.
// Members removed while ranging are skipped once removed; members added while
// ranging are not yielded. Every other member is yielded exactly once.
func (c *EntityCollection[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range slices.Clone(c.items) {
			if !c.Contains(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Iter returns a chainable iterator over the members.
func (c *EntityCollection[E]) Iter() *sequence.Iterator[E] {
	return sequence.FromSeq(c.All())
}

// Slice returns a copy of the members.
func (c *EntityCollection[E]) Slice() []E {
	return slices.Clone(c.items)
}

// OnAdded subscribes h to entities joining the collection.
func (c *EntityCollection[E]) OnAdded(h bus.Handler[E]) bus.Subscription {
	return c.added.Subscribe(h)
}

// OnRemoved subscribes h to entities leaving the collection.
func (c *EntityCollection[E]) OnRemoved(h bus.Handler[E]) bus.Subscription {
	return c.removed.Subscribe(h)
}

func (c *EntityCollection[E]) add(e E) (bool, error) {
	if _, ok := c.index[e]; ok {
		return false, nil
	}
	c.index[e] = len(c.items)
	c.items = append(c.items, e)
	return true, c.added.Publish(e)
}

func (c *EntityCollection[E]) remove(e E) (bool, error) {
	i, ok := c.index[e]
	if !ok {
		return false, nil
	}
	last := len(c.items) - 1
	if i != last {
		moved := c.items[last]
		c.items[i] = moved
		c.index[moved] = i
	}
	var zero E
	c.items[last] = zero
	c.items = c.items[:last]
	delete(c.index, e)
	return true, c.removed.Publish(e)
}

func (c *EntityCollection[E]) apply(a Action, e E) error {
	var err error
	switch a {
	case Add:
		_, err = c.add(e)
	case Remove:
		_, err = c.remove(e)
	}
	return err
}
