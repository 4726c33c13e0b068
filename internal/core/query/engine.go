package query

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/events/bus"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/internal/core/storage"
	"github.com/zeusync/kindstore/pkg/concurrent"
	"github.com/zeusync/kindstore/pkg/generic"
	"github.com/zeusync/kindstore/pkg/sequence"
)

// Options tunes the engine.
type Options struct {
	// ParallelThreshold is the entity count above which the seeding scan of a
	// new query is evaluated on several goroutines. Zero disables it.
	ParallelThreshold int
	// Workers bounds the goroutines used for parallel seeding.
	Workers int
}

// Engine keeps every registered query's collection in sync with the entity
// storage it is subscribed to.
type Engine[E, K comparable, S any] struct {
	manager  kindset.Manager[K, S]
	entities *storage.Entities[E, K, S]
	queries  *Storage[E, K, S]

	// byKind lists, per kind, the queries whose All, Any or None mention it.
	byKind map[K][]ID
	// unconstrained holds queries with empty All and Any; they can match an
	// entity that carries no kind at all.
	unconstrained []ID

	scratch *generic.SlicePool[ID]
	opts    Options
	sub     bus.Subscription
	log     log.Log
}

// NewEngine subscribes a new engine to entities' change bus.
func NewEngine[E, K comparable, S any](entities *storage.Entities[E, K, S], opts Options, logger log.Log) *Engine[E, K, S] {
	if logger == nil {
		logger = log.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	e := &Engine[E, K, S]{
		manager:  entities.Manager(),
		entities: entities,
		queries:  NewStorage[E](entities.Manager()),
		byKind:   make(map[K][]ID),
		scratch:  generic.NewSlicePool[ID](16, 1024),
		opts:     opts,
		log:      logger,
	}
	e.sub = entities.Events().Subscribe(e.handle)
	return e
}

// Close detaches the engine from entity changes. Collections stop updating.
func (e *Engine[E, K, S]) Close() error {
	return e.sub.Cancel()
}

// Len returns the number of distinct registered queries.
func (e *Engine[E, K, S]) Len() int {
	return e.queries.Len()
}

// Storage exposes the query dedup storage.
func (e *Engine[E, K, S]) Storage() *Storage[E, K, S] {
	return e.queries
}

// Register returns the id and live collection for q, creating and seeding
// them on first registration. The sets of q are cloned.
func (e *Engine[E, K, S]) Register(q Query[S]) (ID, *EntityCollection[E], error) {
	ent, created := e.queries.insert(q)
	if !created {
		return ent.id, ent.collection, nil
	}

	for _, set := range []S{ent.query.All, ent.query.Any, ent.query.None} {
		for k := range e.manager.Kinds(set) {
			ids := e.byKind[k]
			if len(ids) == 0 || ids[len(ids)-1] != ent.id {
				e.byKind[k] = append(ids, ent.id)
			}
		}
	}
	if e.manager.IsEmpty(ent.query.All) && e.manager.IsEmpty(ent.query.Any) {
		e.unconstrained = append(e.unconstrained, ent.id)
	}

	start := time.Now()
	err := e.seed(ent)
	e.log.Debug("query registered",
		log.Int("id", int(ent.id)),
		log.Int("entities", e.entities.Len()),
		log.Int("matched", ent.collection.Count()),
		log.Duration("elapsed", time.Since(start)))
	return ent.id, ent.collection, err
}

// seed fills a new collection with every current match, in registration order.
func (e *Engine[E, K, S]) seed(ent *entry[E, S]) error {
	matches := func(id E) bool {
		kinds, err := e.entities.KindSet(id)
		return err == nil && Matches(e.manager, kinds, ent.query)
	}

	all := sequence.From(e.entities.Slice())
	var matched []E
	if e.opts.ParallelThreshold > 0 && e.entities.Len() > e.opts.ParallelThreshold {
		var err error
		if matched, err = concurrent.ParallelFilter(context.Background(), all, e.opts.Workers, matches); err != nil {
			return err
		}
	} else {
		matched = all.Filter(matches).Collect()
	}

	var errs error
	for _, id := range matched {
		if _, err := ent.collection.add(id); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Collection returns the live collection of query id.
func (e *Engine[E, K, S]) Collection(id ID) (*EntityCollection[E], error) {
	ent, ok := e.queries.get(id)
	if !ok {
		return nil, ecserr.NotFound("query", id)
	}
	return ent.collection, nil
}

// Query returns the predicate of query id.
func (e *Engine[E, K, S]) Query(id ID) (Query[S], error) {
	q, ok := e.queries.Query(id)
	if !ok {
		return q, ecserr.NotFound("query", id)
	}
	return q, nil
}

func (e *Engine[E, K, S]) handle(c storage.Change[E, K, S]) error {
	switch c.Op {
	case storage.OpRegistered:
		return e.evaluate(c.Entity, e.unconstrained, func(q Query[S]) Action {
			return Check(e.manager, c.Set, q)
		})
	case storage.OpComponentsAdded:
		return e.evaluateAffected(c, func(q Query[S]) Action {
			return CheckAdded(e.manager, c.Set, c.Kinds, q)
		})
	case storage.OpComponentsRemoved:
		return e.evaluateAffected(c, func(q Query[S]) Action {
			return CheckRemoved(e.manager, c.Set, c.Kinds, q)
		})
	case storage.OpDestroyed:
		var errs error
		for _, ent := range e.queries.entries() {
			if _, err := ent.collection.remove(c.Entity); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		return errs
	}
	return nil
}

// evaluateAffected runs decide on every query mentioning a changed kind.
func (e *Engine[E, K, S]) evaluateAffected(c storage.Change[E, K, S], decide func(Query[S]) Action) error {
	ids := e.scratch.Get()
	defer e.scratch.Put(ids)

	for _, k := range c.Kinds {
		*ids = append(*ids, e.byKind[k]...)
	}
	if len(c.Kinds) > 1 {
		slices.Sort(*ids)
		*ids = slices.Compact(*ids)
	}
	return e.evaluate(c.Entity, *ids, decide)
}

func (e *Engine[E, K, S]) evaluate(entity E, ids []ID, decide func(Query[S]) Action) error {
	var errs error
	for _, id := range ids {
		ent, ok := e.queries.get(id)
		if !ok {
			continue
		}
		if err := ent.collection.apply(decide(ent.query), entity); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
