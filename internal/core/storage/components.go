// Package storage owns component values and per-entity component records.
//
// Components is the single home of every stored value: each component kind is
// bound to one Go type on first use and values of that type live in one
// compact.IndexedCollection, addressed by ComponentID. Entities tracks which
// kinds each entity carries and where their values are stored.
package storage

import (
	"fmt"
	"reflect"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/pkg/compact"
)

// ComponentID addresses one value inside the column of its Go type.
type ComponentID int

// column is the type-erased view of a typedColumn.
type column interface {
	Type() reflect.Type
	Len() int
	Contains(id ComponentID) bool
	Remove(id ComponentID) bool
	RemoveAll(ids []ComponentID) int
	TrimToSize()

	addAny(value any) (ComponentID, bool)
	updateAny(id ComponentID, value any) (found, ok bool)
	getAny(id ComponentID) (any, bool)
}

type typedColumn[T any] struct {
	typ   reflect.Type
	items *compact.IndexedCollection[T]
}

func newTypedColumn[T any](capacity int) *typedColumn[T] {
	return &typedColumn[T]{
		typ:   reflect.TypeFor[T](),
		items: compact.NewIndexedCollection[T](capacity),
	}
}

func (c *typedColumn[T]) Type() reflect.Type { return c.typ }
func (c *typedColumn[T]) Len() int           { return c.items.Len() }
func (c *typedColumn[T]) TrimToSize()        { c.items.TrimToSize() }

func (c *typedColumn[T]) Contains(id ComponentID) bool {
	return c.items.Contains(int(id))
}

func (c *typedColumn[T]) Remove(id ComponentID) bool {
	return c.items.Remove(int(id))
}

func (c *typedColumn[T]) RemoveAll(ids []ComponentID) int {
	keys := make([]int, len(ids))
	for i, id := range ids {
		keys[i] = int(id)
	}
	return len(c.items.RemoveAll(keys))
}

func (c *typedColumn[T]) add(value T) ComponentID {
	return ComponentID(c.items.Add(value))
}

func (c *typedColumn[T]) addAny(value any) (ComponentID, bool) {
	v, ok := value.(T)
	if !ok {
		return 0, false
	}
	return c.add(v), true
}

func (c *typedColumn[T]) updateAny(id ComponentID, value any) (found, ok bool) {
	v, ok := value.(T)
	if !ok {
		return c.Contains(id), false
	}
	return c.items.Update(int(id), v), true
}

func (c *typedColumn[T]) getAny(id ComponentID) (any, bool) {
	return c.items.Get(int(id))
}

// Components binds component kinds to Go types and stores their values.
type Components[K comparable] struct {
	types    map[K]reflect.Type
	columns  map[reflect.Type]column
	capacity int
	log      log.Log
}

// NewComponents returns empty storage. capacity is the initial size of each
// per-type column.
func NewComponents[K comparable](capacity int, logger log.Log) *Components[K] {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Components[K]{
		types:    make(map[K]reflect.Type),
		columns:  make(map[reflect.Type]column),
		capacity: capacity,
		log:      logger,
	}
}

// RegisteredType returns the Go type bound to kind.
func (c *Components[K]) RegisteredType(kind K) (reflect.Type, error) {
	t, ok := c.types[kind]
	if !ok {
		return nil, ecserr.NotFound("component kind", kind)
	}
	return t, nil
}

// IsRegistered reports whether kind has a bound type.
func (c *Components[K]) IsRegistered(kind K) bool {
	_, ok := c.types[kind]
	return ok
}

// Kinds returns the number of bound kinds.
func (c *Components[K]) Kinds() int {
	return len(c.types)
}

// bind resolves the typed column for kind, binding kind to T if it is
// unbound. It never rebinds.
func bind[T any, K comparable](c *Components[K], kind K) (*typedColumn[T], error) {
	want := reflect.TypeFor[T]()
	if bound, ok := c.types[kind]; ok && bound != want {
		c.log.Warn("component kind type conflict",
			log.Any("kind", kind),
			log.Stringer("bound", bound),
			log.Stringer("requested", want))
		return nil, ecserr.TypeMismatch(kind, bound, want)
	}

	col, ok := c.columns[want]
	if !ok {
		col = newTypedColumn[T](c.capacity)
		c.columns[want] = col
	}
	if _, ok := c.types[kind]; !ok {
		c.types[kind] = want
		c.log.Debug("component kind bound", log.Any("kind", kind), log.Stringer("type", want))
	}
	return col.(*typedColumn[T]), nil
}

// lookup resolves the typed column for an already bound kind.
func lookup[T any, K comparable](c *Components[K], kind K) (*typedColumn[T], error) {
	bound, ok := c.types[kind]
	if !ok {
		return nil, ecserr.NotFound("component kind", kind)
	}
	if want := reflect.TypeFor[T](); bound != want {
		return nil, ecserr.TypeMismatch(kind, bound, want)
	}
	return c.columns[bound].(*typedColumn[T]), nil
}

// Register binds kind to T. Registering the same pair again is a no-op;
// registering kind with a different type fails with ecserr.ErrTypeMismatch.
func Register[T any, K comparable](c *Components[K], kind K) error {
	_, err := bind[T](c, kind)
	return err
}

// TryRegister is Register reporting success as a bool.
func TryRegister[T any, K comparable](c *Components[K], kind K) bool {
	return Register[T](c, kind) == nil
}

// Add stores value under a fresh id in T's column, binding kind to T first
// if needed.
func Add[T any, K comparable](c *Components[K], kind K, value T) (ComponentID, error) {
	col, err := bind[T](c, kind)
	if err != nil {
		return 0, err
	}
	return col.add(value), nil
}

// Ref returns a pointer to the stored value. The pointer stays valid until
// the next Add or Remove on any kind bound to T.
func Ref[T any, K comparable](c *Components[K], kind K, id ComponentID) (*T, error) {
	col, err := lookup[T](c, kind)
	if err != nil {
		return nil, err
	}
	ref := col.items.Ref(int(id))
	if ref == nil {
		return nil, ecserr.NotFound("component", id).WithContext("kind", kind)
	}
	return ref, nil
}

// Get returns a copy of the stored value.
func Get[T any, K comparable](c *Components[K], kind K, id ComponentID) (T, error) {
	ref, err := Ref[T](c, kind, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ref, nil
}

// TryGet is Get failing closed: an unbound kind, a type mismatch and a missing
// id all yield false.
func TryGet[T any, K comparable](c *Components[K], kind K, id ComponentID) (T, bool) {
	v, err := Get[T](c, kind, id)
	return v, err == nil
}

// Update overwrites the stored value in place.
func Update[T any, K comparable](c *Components[K], kind K, id ComponentID, value T) error {
	ref, err := Ref[T](c, kind, id)
	if err != nil {
		return err
	}
	*ref = value
	return nil
}

// AddAny stores a dynamically typed value. An unbound kind is bound to the
// dynamic type of value, which must already have a column, i.e. some kind
// must have been registered with that type through a typed call.
func (c *Components[K]) AddAny(kind K, value any) (ComponentID, error) {
	col, err := c.columnForValue(kind, value)
	if err != nil {
		return 0, err
	}
	id, ok := col.addAny(value)
	if !ok {
		return 0, ecserr.TypeMismatch(kind, col.Type(), typeOf(value))
	}
	if _, bound := c.types[kind]; !bound {
		c.types[kind] = col.Type()
	}
	return id, nil
}

// UpdateAny overwrites a stored value with a dynamically typed one.
func (c *Components[K]) UpdateAny(kind K, id ComponentID, value any) error {
	bound, err := c.RegisteredType(kind)
	if err != nil {
		return err
	}
	col := c.columns[bound]
	found, ok := col.updateAny(id, value)
	if !ok {
		return ecserr.TypeMismatch(kind, bound, typeOf(value))
	}
	if !found {
		return ecserr.NotFound("component", id).WithContext("kind", kind)
	}
	return nil
}

// GetAny returns the stored value boxed in an interface.
func (c *Components[K]) GetAny(kind K, id ComponentID) (any, error) {
	bound, err := c.RegisteredType(kind)
	if err != nil {
		return nil, err
	}
	v, ok := c.columns[bound].getAny(id)
	if !ok {
		return nil, ecserr.NotFound("component", id).WithContext("kind", kind)
	}
	return v, nil
}

func (c *Components[K]) columnForValue(kind K, value any) (column, error) {
	if bound, ok := c.types[kind]; ok {
		return c.columns[bound], nil
	}
	if value == nil {
		return nil, ecserr.InvalidArgument("nil value for unbound component kind %v", kind)
	}
	col, ok := c.columns[reflect.TypeOf(value)]
	if !ok {
		return nil, ecserr.NotFound("component column", reflect.TypeOf(value)).WithContext("kind", kind)
	}
	return col, nil
}

// Remove deletes the value stored under id for kind.
func (c *Components[K]) Remove(kind K, id ComponentID) bool {
	bound, ok := c.types[kind]
	if !ok {
		return false
	}
	return c.columns[bound].Remove(id)
}

// RemoveAll deletes values pairwise from kinds and ids and returns how many
// were present. Ids are grouped per column so each column is compacted once.
func (c *Components[K]) RemoveAll(kinds []K, ids []ComponentID) (int, error) {
	if len(kinds) != len(ids) {
		return 0, ecserr.OutOfRange("%d kinds for %d component ids", len(kinds), len(ids))
	}
	groups := make(map[reflect.Type][]ComponentID)
	for i, kind := range kinds {
		if bound, ok := c.types[kind]; ok {
			groups[bound] = append(groups[bound], ids[i])
		}
	}
	removed := 0
	for t, group := range groups {
		removed += c.columns[t].RemoveAll(group)
	}
	return removed, nil
}

// Counts returns the number of stored values per Go type name.
func (c *Components[K]) Counts() map[string]int {
	out := make(map[string]int, len(c.columns))
	for t, col := range c.columns {
		out[t.String()] = col.Len()
	}
	return out
}

// Compact trims every column to its size.
func (c *Components[K]) Compact() {
	for _, col := range c.columns {
		col.TrimToSize()
	}
}

type nilType struct{}

func (nilType) String() string { return "<nil>" }

func typeOf(v any) fmt.Stringer {
	if v == nil {
		return nilType{}
	}
	return reflect.TypeOf(v)
}
