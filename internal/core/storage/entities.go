package storage

import (
	"errors"
	"iter"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/events/bus"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/pkg/compact"
)

// Op identifies what happened to an entity.
type Op uint8

const (
	OpRegistered Op = iota + 1
	OpComponentsAdded
	OpComponentsRemoved
	OpDestroyed
)

func (o Op) String() string {
	switch o {
	case OpRegistered:
		return "registered"
	case OpComponentsAdded:
		return "components_added"
	case OpComponentsRemoved:
		return "components_removed"
	case OpDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Change is published after a mutation has been applied. Kinds lists exactly
// the kinds that were added or removed. Set is the entity's live kind set
// after the change (for OpDestroyed, the set it had); handlers must not keep
// or modify it.
type Change[E, K comparable, S any] struct {
	Op     Op
	Entity E
	Kinds  []K
	Set    S
}

type record[K comparable, S any] struct {
	seq   int
	kinds S
	index *compact.Dictionary[K, ComponentID]
}

// Entities holds one record per registered entity: the kind set summarising
// which kinds it carries and a sorted kind → ComponentID index into
// Components.
type Entities[E, K comparable, S any] struct {
	manager    kindset.Manager[K, S]
	components *Components[K]
	records    map[E]*record[K, S]
	order      *compact.IndexedCollection[E]
	events     *bus.Bus[Change[E, K, S]]
	log        log.Log
}

// NewEntities returns empty entity storage writing values into components.
func NewEntities[E, K comparable, S any](
	manager kindset.Manager[K, S],
	components *Components[K],
	capacity int,
	logger log.Log,
) (*Entities[E, K, S], error) {
	if manager == nil {
		return nil, ecserr.InvalidArgument("nil component kind manager")
	}
	if components == nil {
		return nil, ecserr.InvalidArgument("nil component storage")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Entities[E, K, S]{
		manager:    manager,
		components: components,
		records:    make(map[E]*record[K, S], capacity),
		order:      compact.NewIndexedCollection[E](capacity),
		events:     bus.New[Change[E, K, S]]("entities"),
		log:        logger,
	}, nil
}

func (s *Entities[E, K, S]) Manager() kindset.Manager[K, S] { return s.manager }
func (s *Entities[E, K, S]) Components() *Components[K]     { return s.components }

// Events returns the bus every Change is published on.
func (s *Entities[E, K, S]) Events() *bus.Bus[Change[E, K, S]] { return s.events }

// Len returns the number of registered entities.
func (s *Entities[E, K, S]) Len() int {
	return len(s.records)
}

// Contains reports whether e is registered.
func (s *Entities[E, K, S]) Contains(e E) bool {
	_, ok := s.records[e]
	return ok
}

// All yields registered entities in registration order.
func (s *Entities[E, K, S]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, e := range s.order.All() {
			if !yield(e) {
				return
			}
		}
	}
}

// Slice returns the registered entities in registration order.
func (s *Entities[E, K, S]) Slice() []E {
	out := make([]E, 0, len(s.records))
	for e := range s.All() {
		out = append(out, e)
	}
	return out
}

// Register creates an empty record for e. Registering a known entity does
// nothing and returns false.
func (s *Entities[E, K, S]) Register(e E) (bool, error) {
	if s.Contains(e) {
		return false, nil
	}
	return true, s.insert(e)
}

// Add is the strict form of Register: a known entity fails with
// ecserr.ErrEntityExists.
func (s *Entities[E, K, S]) Add(e E) error {
	if s.Contains(e) {
		return ecserr.New(ecserr.CodeEntityExists, "register entity").WithContext("entity", e)
	}
	return s.insert(e)
}

func (s *Entities[E, K, S]) insert(e E) error {
	rec := &record[K, S]{
		seq:   s.order.Add(e),
		kinds: s.manager.Create(),
		index: compact.NewDictionaryFunc[K, ComponentID](0, s.manager.Compare),
	}
	s.records[e] = rec
	s.log.Debug("entity registered", log.Any("entity", e))
	return s.events.Publish(Change[E, K, S]{Op: OpRegistered, Entity: e, Set: rec.kinds})
}

// Destroy removes every component value of e from Components and then drops
// its record.
func (s *Entities[E, K, S]) Destroy(e E) error {
	rec, err := s.record(e)
	if err != nil {
		return err
	}

	kinds := rec.index.KeySlice()
	ids := make([]ComponentID, 0, len(kinds))
	for _, id := range rec.index.All() {
		ids = append(ids, id)
	}
	if _, err := s.components.RemoveAll(kinds, ids); err != nil {
		return err
	}

	delete(s.records, e)
	s.order.Remove(rec.seq)
	s.log.Debug("entity destroyed", log.Any("entity", e), log.Int("components", len(kinds)))
	return s.events.Publish(Change[E, K, S]{Op: OpDestroyed, Entity: e, Kinds: kinds, Set: rec.kinds})
}

func (s *Entities[E, K, S]) record(e E) (*record[K, S], error) {
	rec, ok := s.records[e]
	if !ok {
		return nil, ecserr.NotFound("entity", e)
	}
	return rec, nil
}

// KindSet returns e's live kind set. Callers must not modify it.
func (s *Entities[E, K, S]) KindSet(e E) (S, error) {
	rec, err := s.record(e)
	if err != nil {
		var zero S
		return zero, err
	}
	return rec.kinds, nil
}

// Kinds yields the kinds e carries in kind order.
func (s *Entities[E, K, S]) Kinds(e E) iter.Seq[K] {
	return func(yield func(K) bool) {
		rec, ok := s.records[e]
		if !ok {
			return
		}
		for k := range rec.index.Keys() {
			if !yield(k) {
				return
			}
		}
	}
}

// Has reports whether e carries kind.
func (s *Entities[E, K, S]) Has(e E, kind K) bool {
	rec, ok := s.records[e]
	return ok && rec.index.ContainsKey(kind)
}

// ComponentID returns where e's value for kind is stored.
func (s *Entities[E, K, S]) ComponentID(e E, kind K) (ComponentID, error) {
	rec, err := s.record(e)
	if err != nil {
		return 0, err
	}
	id, ok := rec.index.Get(kind)
	if !ok {
		return 0, ecserr.NotFound("component", kind).WithContext("entity", e)
	}
	return id, nil
}

// attach links a freshly stored value to rec. The kind set is updated last so
// that a failure leaves rec unchanged.
func (s *Entities[E, K, S]) attach(rec *record[K, S], kind K, id ComponentID) error {
	if _, err := s.manager.Add(rec.kinds, kind); err != nil {
		s.components.Remove(kind, id)
		return err
	}
	rec.index.Set(kind, id)
	return nil
}

func (s *Entities[E, K, S]) publishAdded(e E, rec *record[K, S], added []K) error {
	if len(added) == 0 {
		return nil
	}
	return s.events.Publish(Change[E, K, S]{Op: OpComponentsAdded, Entity: e, Kinds: added, Set: rec.kinds})
}

// setOne stores value for kind on rec and reports whether kind is new.
func setOne[T any, E, K comparable, S any](s *Entities[E, K, S], rec *record[K, S], kind K, value T) (bool, error) {
	if id, ok := rec.index.Get(kind); ok {
		return false, Update(s.components, kind, id, value)
	}
	if err := s.manager.Validate(kind); err != nil {
		return false, err
	}
	id, err := Add(s.components, kind, value)
	if err != nil {
		return false, err
	}
	return true, s.attach(rec, kind, id)
}

// SetComponent stores value as e's kind component. A kind new to e publishes
// OpComponentsAdded; an existing one is overwritten in place silently.
func SetComponent[T any, E, K comparable, S any](s *Entities[E, K, S], e E, kind K, value T) error {
	rec, err := s.record(e)
	if err != nil {
		return err
	}
	added, err := setOne(s, rec, kind, value)
	if err != nil || !added {
		return err
	}
	return s.publishAdded(e, rec, []K{kind})
}

// SetComponents stores values pairwise under kinds and publishes a single
// OpComponentsAdded listing the kinds that were new. A failing pair does not
// stop the others; failures are joined into the result.
func SetComponents[T any, E, K comparable, S any](s *Entities[E, K, S], e E, kinds []K, values []T) error {
	if len(kinds) != len(values) {
		return ecserr.OutOfRange("%d component kinds for %d values", len(kinds), len(values))
	}
	rec, err := s.record(e)
	if err != nil {
		return err
	}

	var (
		added []K
		errs  error
	)
	for i, kind := range kinds {
		isNew, err := setOne(s, rec, kind, values[i])
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if isNew {
			added = append(added, kind)
		}
	}
	return errors.Join(errs, s.publishAdded(e, rec, added))
}

// SetAny is SetComponents for values of mixed types. Each value must match
// its kind's bound type.
func (s *Entities[E, K, S]) SetAny(e E, kinds []K, values []any) error {
	if len(kinds) != len(values) {
		return ecserr.OutOfRange("%d component kinds for %d values", len(kinds), len(values))
	}
	rec, err := s.record(e)
	if err != nil {
		return err
	}

	var (
		added []K
		errs  error
	)
	for i, kind := range kinds {
		if id, ok := rec.index.Get(kind); ok {
			errs = errors.Join(errs, s.components.UpdateAny(kind, id, values[i]))
			continue
		}
		if err := s.manager.Validate(kind); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		id, err := s.components.AddAny(kind, values[i])
		if err == nil {
			err = s.attach(rec, kind, id)
		}
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		added = append(added, kind)
	}
	return errors.Join(errs, s.publishAdded(e, rec, added))
}

// Unset removes e's kind component and reports whether it was present. An
// absent kind is a no-op without event.
func (s *Entities[E, K, S]) Unset(e E, kind K) (bool, error) {
	n, err := s.UnsetMany(e, kind)
	return n > 0, err
}

// UnsetMany removes the given kinds from e, publishing a single
// OpComponentsRemoved with the kinds that were present.
func (s *Entities[E, K, S]) UnsetMany(e E, kinds ...K) (int, error) {
	rec, err := s.record(e)
	if err != nil {
		return 0, err
	}

	var (
		removed []K
		ids     []ComponentID
	)
	for _, kind := range kinds {
		id, ok := rec.index.Take(kind)
		if !ok {
			continue
		}
		s.manager.Remove(rec.kinds, kind)
		removed = append(removed, kind)
		ids = append(ids, id)
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if _, err := s.components.RemoveAll(removed, ids); err != nil {
		return 0, err
	}
	return len(removed), s.events.Publish(Change[E, K, S]{
		Op:     OpComponentsRemoved,
		Entity: e,
		Kinds:  removed,
		Set:    rec.kinds,
	})
}

// ComponentRef returns a pointer to e's kind value; see Ref for its lifetime.
func ComponentRef[T any, E, K comparable, S any](s *Entities[E, K, S], e E, kind K) (*T, error) {
	id, err := s.ComponentID(e, kind)
	if err != nil {
		return nil, err
	}
	return Ref[T](s.components, kind, id)
}

// GetComponent returns a copy of e's kind value.
func GetComponent[T any, E, K comparable, S any](s *Entities[E, K, S], e E, kind K) (T, error) {
	ref, err := ComponentRef[T](s, e, kind)
	if err != nil {
		var zero T
		return zero, err
	}
	return *ref, nil
}

// TryGetComponent is GetComponent failing closed.
func TryGetComponent[T any, E, K comparable, S any](s *Entities[E, K, S], e E, kind K) (T, bool) {
	v, err := GetComponent[T](s, e, kind)
	return v, err == nil
}

// GetAny returns e's kind value boxed in an interface.
func (s *Entities[E, K, S]) GetAny(e E, kind K) (any, error) {
	id, err := s.ComponentID(e, kind)
	if err != nil {
		return nil, err
	}
	return s.components.GetAny(kind, id)
}
