package scope

import (
	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/storage"
)

// SetComponent stores value as e's kind component, binding kind to T on
// first use. Setting a kind e already has overwrites it in place.
func SetComponent[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kind K, value T) error {
	return s.mutate(func() error {
		return storage.SetComponent(s.entities, e, kind, value)
	})
}

// SetComponentsOf stores values of one type pairwise under kinds.
func SetComponentsOf[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kinds []K, values []T) error {
	if len(kinds) != len(values) {
		return ecserr.OutOfRange("%d component kinds for %d values", len(kinds), len(values))
	}
	return s.mutate(func() error {
		return storage.SetComponents(s.entities, e, kinds, values)
	})
}

// GetComponent returns a copy of e's kind value.
func GetComponent[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kind K) (T, error) {
	return storage.GetComponent[T](s.entities, e, kind)
}

// TryGetComponent is GetComponent failing closed.
func TryGetComponent[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kind K) (T, bool) {
	return storage.TryGetComponent[T](s.entities, e, kind)
}

// GetComponentRef returns a pointer to e's kind value. It is invalidated by
// the next component added to or removed from any kind of the same type;
// use With to mutate safely.
func GetComponentRef[T any, E, K comparable, S any](s *Scope[E, K, S], e E, kind K) (*T, error) {
	return storage.ComponentRef[T](s.entities, e, kind)
}

// RegisterComponentType binds kind to T ahead of use.
func RegisterComponentType[T any, E, K comparable, S any](s *Scope[E, K, S], kind K) error {
	return storage.Register[T](s.components, kind)
}

// TryRegisterComponentType binds kind to T and reports false if kind is
// already bound to another type.
func TryRegisterComponentType[T any, E, K comparable, S any](s *Scope[E, K, S], kind K) bool {
	return storage.TryRegister[T](s.components, kind)
}
