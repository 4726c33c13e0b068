package query

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/kamstrup/intmap"

	"github.com/zeusync/kindstore/internal/core/kindset"
)

type entry[E comparable, S any] struct {
	id         ID
	query      Query[S]
	hash       uint64
	collection *EntityCollection[E]
}

// Storage deduplicates queries. Structurally equal triples, compared with the
// manager's Equal, share one entry and one EntityCollection.
type Storage[E, K comparable, S any] struct {
	manager kindset.Manager[K, S]
	buckets map[uint64][]*entry[E, S]
	byID    *intmap.Map[ID, *entry[E, S]]
	ordered []*entry[E, S]
}

func NewStorage[E, K comparable, S any](manager kindset.Manager[K, S]) *Storage[E, K, S] {
	return &Storage[E, K, S]{
		manager: manager,
		buckets: make(map[uint64][]*entry[E, S]),
		byID:    intmap.New[ID, *entry[E, S]](16),
	}
}

// Hash digests the three kind-set hashes of q.
func (s *Storage[E, K, S]) Hash(q Query[S]) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], s.manager.Hash(q.All))
	binary.LittleEndian.PutUint64(buf[8:], s.manager.Hash(q.Any))
	binary.LittleEndian.PutUint64(buf[16:], s.manager.Hash(q.None))
	return xxhash.Sum64(buf[:])
}

func (s *Storage[E, K, S]) equal(a, b Query[S]) bool {
	return s.manager.Equal(a.All, b.All) &&
		s.manager.Equal(a.Any, b.Any) &&
		s.manager.Equal(a.None, b.None)
}

func (s *Storage[E, K, S]) find(q Query[S], hash uint64) *entry[E, S] {
	for _, e := range s.buckets[hash] {
		if s.equal(e.query, q) {
			return e
		}
	}
	return nil
}

// Lookup returns the id of a query structurally equal to q.
func (s *Storage[E, K, S]) Lookup(q Query[S]) (ID, bool) {
	if e := s.find(q, s.Hash(q)); e != nil {
		return e.id, true
	}
	return 0, false
}

// insert returns the entry for q, creating it if needed. The stored query
// holds clones of the caller's sets.
func (s *Storage[E, K, S]) insert(q Query[S]) (*entry[E, S], bool) {
	hash := s.Hash(q)
	if e := s.find(q, hash); e != nil {
		return e, false
	}
	id := ID(len(s.ordered))
	e := &entry[E, S]{
		id: id,
		query: Query[S]{
			All:  s.manager.Clone(q.All),
			Any:  s.manager.Clone(q.Any),
			None: s.manager.Clone(q.None),
		},
		hash:       hash,
		collection: newEntityCollection[E](id),
	}
	s.buckets[hash] = append(s.buckets[hash], e)
	s.byID.Put(id, e)
	s.ordered = append(s.ordered, e)
	return e, true
}

func (s *Storage[E, K, S]) get(id ID) (*entry[E, S], bool) {
	return s.byID.Get(id)
}

// Query returns the predicate registered under id.
func (s *Storage[E, K, S]) Query(id ID) (Query[S], bool) {
	e, ok := s.get(id)
	if !ok {
		return Query[S]{}, false
	}
	return e.query, true
}

// Len returns the number of distinct queries.
func (s *Storage[E, K, S]) Len() int {
	return s.byID.Len()
}

func (s *Storage[E, K, S]) entries() []*entry[E, S] {
	return s.ordered
}
