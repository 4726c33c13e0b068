// Package query maintains live result sets for ALL/ANY/NONE predicates over
// component kinds.
//
// A Query is registered once per structurally distinct triple; its
// EntityCollection is seeded by a scan of all entities and then kept current
// by reacting to storage.Change events, evaluating only the queries that
// mention a changed kind.
package query

import (
	"github.com/zeusync/kindstore/internal/core/kindset"
)

// ID identifies a registered query. Ids are dense and start at zero.
type ID int

// Query is an immutable predicate over an entity's kind set. An empty set
// places no constraint.
type Query[S any] struct {
	All  S
	Any  S
	None S
}

// Action is the outcome of evaluating a query against a change.
type Action uint8

const (
	NoOp Action = iota
	Add
	Remove
)

func (a Action) String() string {
	switch a {
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return "noop"
	}
}

// Matches reports whether kinds satisfies q.
func Matches[K comparable, S any](m kindset.Manager[K, S], kinds S, q Query[S]) bool {
	if !m.IsEmpty(q.None) && m.Overlaps(kinds, q.None) {
		return false
	}
	if !m.IsEmpty(q.All) && !m.ContainsAll(kinds, q.All) {
		return false
	}
	return m.IsEmpty(q.Any) || m.Overlaps(kinds, q.Any)
}

// Check decides membership from the entity's full kind set.
func Check[K comparable, S any](m kindset.Manager[K, S], kinds S, q Query[S]) Action {
	if !m.IsEmpty(q.None) && m.Overlaps(kinds, q.None) {
		return Remove
	}
	if Matches(m, kinds, q) {
		return Add
	}
	return NoOp
}

// CheckAdded decides membership after added joined kinds.
func CheckAdded[K comparable, S any](m kindset.Manager[K, S], kinds S, added []K, q Query[S]) Action {
	// The entity now has a forbidden kind.
	if kindset.ContainsAny(m, q.None, added) {
		return Remove
	}
	if Matches(m, kinds, q) {
		return Add
	}
	return NoOp
}

// CheckRemoved decides membership after removed left kinds.
func CheckRemoved[K comparable, S any](m kindset.Manager[K, S], kinds S, removed []K, q Query[S]) Action {
	// The entity lost a required kind or its last Any kind.
	if kindset.ContainsAny(m, q.All, removed) {
		return Remove
	}
	if !m.IsEmpty(q.Any) && !m.Overlaps(kinds, q.Any) {
		return Remove
	}
	// Dropping a forbidden kind can make the entity match.
	if Matches(m, kinds, q) {
		return Add
	}
	return NoOp
}
