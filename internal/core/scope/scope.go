// Package scope is the entry point of the store. A Scope owns the component
// values, the per-entity records and the live query collections for one
// entity id type E, component kind type K and kind-set representation S.
//
// A Scope is not safe for concurrent use; callers serialise access.
package scope

import (
	"errors"
	"iter"
	"reflect"
	"time"

	"github.com/zeusync/kindstore/internal/core/config"
	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/events/bus"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/internal/core/query"
	"github.com/zeusync/kindstore/internal/core/storage"
)

type settings struct {
	logger  log.Log
	cfg     config.Config
	factory any
}

// Option configures New.
type Option func(*settings)

func WithLogger(l log.Log) Option {
	return func(s *settings) { s.logger = l }
}

func WithConfig(c config.Config) Option {
	return func(s *settings) { s.cfg = c }
}

// WithEntityFactory sets the id source of CreateEntity. Its id type must be
// the scope's E.
func WithEntityFactory[E comparable](f func() E) Option {
	return func(s *settings) { s.factory = f }
}

type Scope[E, K comparable, S any] struct {
	manager    kindset.Manager[K, S]
	components *storage.Components[K]
	entities   *storage.Entities[E, K, S]
	engine     *query.Engine[E, K, S]
	factory    func() E
	cfg        config.Config
	log        log.Log

	// depth counts the With and Batch callbacks and mutations on the stack;
	// while it is positive mutations are queued in pending.
	depth   int
	pending []func() error
}

// New builds an empty scope around manager. Entities are compared with ==.
func New[E, K comparable, S any](manager kindset.Manager[K, S], opts ...Option) (*Scope[E, K, S], error) {
	if manager == nil {
		return nil, ecserr.InvalidArgument("nil component kind manager")
	}
	st := settings{cfg: config.Default()}
	for _, opt := range opts {
		opt(&st)
	}
	if err := st.cfg.Validate(); err != nil {
		return nil, err
	}
	if st.logger == nil {
		st.logger = log.NewNop()
	}

	var factory func() E
	if st.factory != nil {
		f, ok := st.factory.(func() E)
		if !ok {
			return nil, ecserr.InvalidArgument("entity factory %T does not produce %v", st.factory, reflect.TypeFor[E]())
		}
		factory = f
	}

	components := storage.NewComponents[K](st.cfg.ComponentCapacity, st.logger.Named("components"))
	entities, err := storage.NewEntities[E](manager, components, st.cfg.EntityCapacity, st.logger.Named("entities"))
	if err != nil {
		return nil, err
	}
	entities.Events().AddObserver(deliveryLogger{log: st.logger})

	engine := query.NewEngine(entities, query.Options{
		ParallelThreshold: st.cfg.SeedParallelThreshold,
		Workers:           st.cfg.SeedWorkers,
	}, st.logger.Named("query"))

	st.logger.Debug("scope created",
		log.String("entity", reflect.TypeFor[E]().String()),
		log.String("kind", reflect.TypeFor[K]().String()),
		log.String("kindset", reflect.TypeFor[S]().String()))

	return &Scope[E, K, S]{
		manager:    manager,
		components: components,
		entities:   entities,
		engine:     engine,
		factory:    factory,
		cfg:        st.cfg,
		log:        st.logger,
	}, nil
}

// Close stops query maintenance. The scope must not be mutated afterwards.
func (s *Scope[E, K, S]) Close() error {
	return s.engine.Close()
}

func (s *Scope[E, K, S]) Manager() kindset.Manager[K, S] { return s.manager }
func (s *Scope[E, K, S]) Config() config.Config          { return s.cfg }

// mutate runs op now, or queues it while a With or Batch callback or the
// change dispatch of another mutation is running. Mutations made by change
// handlers therefore run once the dispatch that triggered them is over, and
// their errors are returned by the outermost mutating call.
func (s *Scope[E, K, S]) mutate(op func() error) error {
	if s.depth > 0 {
		s.pending = append(s.pending, op)
		return nil
	}
	var opErr error
	err := s.run(func() { opErr = op() })
	return errors.Join(opErr, err)
}

// CreateEntity registers a fresh id from the entity factory.
func (s *Scope[E, K, S]) CreateEntity() (E, error) {
	if s.factory == nil {
		var zero E
		return zero, ecserr.New(ecserr.CodeNoFactory, "create entity")
	}
	e := s.factory()
	return e, s.mutate(func() error { return s.entities.Add(e) })
}

// RegisterEntity registers e unless it is known and reports whether it was
// new. Inside a With callback the answer reflects the state before the
// queued mutations run.
func (s *Scope[E, K, S]) RegisterEntity(e E) (bool, error) {
	fresh := !s.entities.Contains(e)
	err := s.mutate(func() error {
		_, err := s.entities.Register(e)
		return err
	})
	return fresh, err
}

// AddEntity registers e and fails with ecserr.ErrEntityExists if it is known.
func (s *Scope[E, K, S]) AddEntity(e E) error {
	return s.mutate(func() error { return s.entities.Add(e) })
}

// DestroyEntity releases every component of e and removes it from all
// query collections.
func (s *Scope[E, K, S]) DestroyEntity(e E) error {
	return s.mutate(func() error { return s.entities.Destroy(e) })
}

// Contains reports whether e is registered.
func (s *Scope[E, K, S]) Contains(e E) bool {
	return s.entities.Contains(e)
}

// Len returns the number of registered entities.
func (s *Scope[E, K, S]) Len() int {
	return s.entities.Len()
}

// Entities yields the registered entities in registration order.
func (s *Scope[E, K, S]) Entities() iter.Seq[E] {
	return s.entities.All()
}

// Kinds yields the kinds carried by e in kind order.
func (s *Scope[E, K, S]) Kinds(e E) iter.Seq[K] {
	return s.entities.Kinds(e)
}

// HasComponent reports whether e carries kind.
func (s *Scope[E, K, S]) HasComponent(e E, kind K) bool {
	return s.entities.Has(e, kind)
}

// SetComponents stores values of mixed types pairwise under kinds. Each kind
// must already be bound, or its value's type must be bound to another kind.
func (s *Scope[E, K, S]) SetComponents(e E, kinds []K, values []any) error {
	if len(kinds) != len(values) {
		return ecserr.OutOfRange("%d component kinds for %d values", len(kinds), len(values))
	}
	return s.mutate(func() error { return s.entities.SetAny(e, kinds, values) })
}

// UnsetComponent removes e's kind component; an absent kind is a no-op.
func (s *Scope[E, K, S]) UnsetComponent(e E, kind K) error {
	return s.UnsetComponents(e, kind)
}

// UnsetComponents removes several kinds from e with a single change event.
func (s *Scope[E, K, S]) UnsetComponents(e E, kinds ...K) error {
	return s.mutate(func() error {
		_, err := s.entities.UnsetMany(e, kinds...)
		return err
	})
}

// GetComponentAny returns e's kind value boxed in an interface.
func (s *Scope[E, K, S]) GetComponentAny(e E, kind K) (any, error) {
	return s.entities.GetAny(e, kind)
}

// GetRegisteredComponentType returns the Go type bound to kind.
func (s *Scope[E, K, S]) GetRegisteredComponentType(kind K) (reflect.Type, error) {
	return s.components.RegisteredType(kind)
}

func (s *Scope[E, K, S]) buildQuery(all, anyOf, none []K) (query.Query[S], error) {
	var q query.Query[S]
	var err error
	if q.All, err = s.manager.Of(all...); err != nil {
		return q, err
	}
	if q.Any, err = s.manager.Of(anyOf...); err != nil {
		return q, err
	}
	if q.None, err = s.manager.Of(none...); err != nil {
		return q, err
	}
	return q, nil
}

// Query returns the id and live collection of entities that carry every kind
// of all, at least one kind of anyOf (if non-empty) and no kind of none.
// Structurally equal predicates share one id and one collection.
func (s *Scope[E, K, S]) Query(all, anyOf, none []K) (query.ID, *query.EntityCollection[E], error) {
	q, err := s.buildQuery(all, anyOf, none)
	if err != nil {
		return 0, nil, err
	}
	return s.engine.Register(q)
}

// GetEntityCollection is Query without the id.
func (s *Scope[E, K, S]) GetEntityCollection(all, anyOf, none []K) (*query.EntityCollection[E], error) {
	_, c, err := s.Query(all, anyOf, none)
	return c, err
}

// QueryByID returns the collection of a registered query.
func (s *Scope[E, K, S]) QueryByID(id query.ID) (*query.EntityCollection[E], error) {
	return s.engine.Collection(id)
}

// Stats is a point-in-time summary of a scope.
type Stats struct {
	Entities   int
	Queries    int
	Kinds      int
	Components map[string]int
	Pending    int
	Events     bus.Metrics
}

func (s *Scope[E, K, S]) Stats() Stats {
	return Stats{
		Entities:   s.entities.Len(),
		Queries:    s.engine.Len(),
		Kinds:      s.components.Kinds(),
		Components: s.components.Counts(),
		Pending:    len(s.pending),
		Events:     s.entities.Events().GetMetrics(),
	}
}

// deliveryLogger reports failing change handlers and keeps bus metrics on.
type deliveryLogger struct {
	log log.Log
}

func (d deliveryLogger) OnDelivered(name string, handlers int, err error, elapsed time.Duration) {
	if err == nil {
		return
	}
	d.log.Warn("change handlers failed",
		log.String("bus", name),
		log.Int("handlers", handlers),
		log.Duration("elapsed", elapsed),
		log.Error(err))
}
