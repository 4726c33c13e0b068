package query

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/kindstore/internal/core/ecserr"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/storage"
	"github.com/zeusync/kindstore/pkg/bitset"
)

type fixture struct {
	m        *kindset.FlagArrayManager
	entities *storage.Entities[int, int, *bitset.FlagArray]
	engine   *Engine[int, int, *bitset.FlagArray]
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	m := kindset.NewFlagArrayManager(16)
	entities, err := storage.NewEntities[int, int, *bitset.FlagArray](m, storage.NewComponents[int](0, nil), 0, nil)
	require.NoError(t, err)
	return &fixture{m: m, entities: entities, engine: NewEngine(entities, opts, nil)}
}

func (f *fixture) register(t *testing.T, all, anyOf, none []int) (ID, *EntityCollection[int]) {
	t.Helper()
	id, c, err := f.engine.Register(flagQuery(t, f.m, all, anyOf, none))
	require.NoError(t, err)
	return id, c
}

type counter struct{ added, removed int }

func watch(c *EntityCollection[int]) *counter {
	n := &counter{}
	c.OnAdded(func(int) error { n.added++; return nil })
	c.OnRemoved(func(int) error { n.removed++; return nil })
	return n
}

func TestEngine_SetThenUnset(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.entities.Add(1))

	_, c := f.register(t, []int{1}, nil, nil)
	events := watch(c)
	assert.Zero(t, c.Count())

	require.NoError(t, storage.SetComponent(f.entities, 1, 1, 100))
	assert.True(t, c.Contains(1))
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, 1, events.added)

	// Overwriting is silent.
	require.NoError(t, storage.SetComponent(f.entities, 1, 1, 101))
	assert.Equal(t, 1, events.added)

	removed, err := f.entities.Unset(1, 1)
	require.NoError(t, err)
	require.True(t, removed)
	assert.Zero(t, c.Count())
	assert.Equal(t, 1, events.removed)
}

func TestEngine_DedupReturnsSameCollection(t *testing.T) {
	f := newFixture(t, Options{})

	id1, c1 := f.register(t, []int{1, 5}, []int{6}, []int{7})
	id2, c2 := f.register(t, []int{1, 5}, []int{6}, []int{7})
	id3, _ := f.register(t, []int{0, 5}, []int{6}, []int{7})

	assert.Equal(t, id1, id2)
	assert.Same(t, c1, c2)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, f.engine.Len())

	got, err := f.engine.Collection(id1)
	require.NoError(t, err)
	assert.Same(t, c1, got)

	_, err = f.engine.Collection(ID(99))
	assert.ErrorIs(t, err, ecserr.ErrNotFound)
	_, err = f.engine.Query(ID(99))
	assert.ErrorIs(t, err, ecserr.ErrNotFound)
}

func TestEngine_SeedsFromExistingEntities(t *testing.T) {
	f := newFixture(t, Options{})
	for e := 0; e < 6; e++ {
		require.NoError(t, f.entities.Add(e))
		require.NoError(t, storage.SetComponent(f.entities, e, e%3, e))
	}

	_, c := f.register(t, []int{1}, nil, nil)
	assert.Equal(t, []int{1, 4}, c.Slice())

	_, c = f.register(t, nil, []int{0, 2}, nil)
	assert.Equal(t, []int{0, 2, 3, 5}, c.Slice(), "seeded in registration order")
}

func TestEngine_ParallelSeedMatchesSequential(t *testing.T) {
	seq := newFixture(t, Options{})
	par := newFixture(t, Options{ParallelThreshold: 10, Workers: 4})
	for _, f := range []*fixture{seq, par} {
		for e := 0; e < 500; e++ {
			require.NoError(t, f.entities.Add(e))
			require.NoError(t, storage.SetComponents(f.entities, e, []int{e % 4, 4 + e%5}, []int{e, e}))
		}
	}

	_, want := seq.register(t, []int{1}, []int{5, 6}, []int{3})
	_, got := par.register(t, []int{1}, []int{5, 6}, []int{3})
	assert.Equal(t, want.Slice(), got.Slice())
	assert.NotZero(t, got.Count())
}

func TestEngine_NoneOnlyQueryTracksRegistration(t *testing.T) {
	f := newFixture(t, Options{})
	_, c := f.register(t, nil, nil, []int{7})

	require.NoError(t, f.entities.Add(1))
	assert.True(t, c.Contains(1), "a bare entity has no forbidden kind")

	require.NoError(t, storage.SetComponent(f.entities, 1, 7, "x"))
	assert.False(t, c.Contains(1))

	_, err := f.entities.Unset(1, 7)
	require.NoError(t, err)
	assert.True(t, c.Contains(1))
}

func TestEngine_DestroyLeavesEveryCollection(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.entities.Add(1))
	require.NoError(t, storage.SetComponents(f.entities, 1, []int{1, 2}, []int{1, 2}))

	_, a := f.register(t, []int{1}, nil, nil)
	_, b := f.register(t, []int{2}, nil, nil)
	_, other := f.register(t, []int{3}, nil, nil)
	ea, eb, eo := watch(a), watch(b), watch(other)

	require.NoError(t, f.entities.Destroy(1))
	assert.Zero(t, a.Count())
	assert.Zero(t, b.Count())
	assert.Equal(t, 1, ea.removed)
	assert.Equal(t, 1, eb.removed)
	assert.Zero(t, eo.removed)
}

func TestEngine_BatchFiresOnce(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.entities.Add(1))
	_, c := f.register(t, []int{1, 2}, nil, nil)
	events := watch(c)

	require.NoError(t, storage.SetComponents(f.entities, 1, []int{1, 2, 3}, []int{1, 2, 3}))
	assert.Equal(t, 1, events.added)

	_, err := f.entities.UnsetMany(1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, events.removed)
}

func TestEngine_Close(t *testing.T) {
	f := newFixture(t, Options{})
	_, c := f.register(t, nil, nil, nil)
	require.NoError(t, f.engine.Close())

	require.NoError(t, f.entities.Add(1))
	assert.Zero(t, c.Count())
}

// brute recomputes a query's members from scratch.
func brute(f *fixture, all, anyOf, none []int) []int {
	var out []int
	for e := range f.entities.All() {
		kinds, _ := f.entities.KindSet(e)
		has := func(k int) bool { return kinds.Has(k) }
		ok := !slices.ContainsFunc(none, has) &&
			!slices.ContainsFunc(all, func(k int) bool { return !has(k) }) &&
			(len(anyOf) == 0 || slices.ContainsFunc(anyOf, has))
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func TestEngine_RandomMutationsKeepCollectionsExact(t *testing.T) {
	f := newFixture(t, Options{})
	rng := rand.New(rand.NewPCG(7, 11))

	type pred struct{ all, anyOf, none []int }
	preds := []pred{
		{[]int{1}, nil, nil},
		{[]int{1, 2}, []int{3, 4}, []int{5}},
		{nil, []int{0, 6}, nil},
		{nil, nil, []int{2, 7}},
		{nil, nil, nil},
		{[]int{3}, nil, []int{3}},
	}
	collections := make([]*EntityCollection[int], len(preds))
	for i, s := range preds {
		_, collections[i] = f.register(t, s.all, s.anyOf, s.none)
	}

	for step := 0; step < 2000; step++ {
		e := rng.IntN(20)
		k := rng.IntN(8)
		switch op := rng.IntN(10); {
		case op == 0:
			if f.entities.Contains(e) {
				require.NoError(t, f.entities.Destroy(e))
			}
		case op < 6:
			_, err := f.entities.Register(e)
			require.NoError(t, err)
			require.NoError(t, storage.SetComponent(f.entities, e, k, step))
		default:
			if f.entities.Contains(e) {
				_, err := f.entities.Unset(e, k)
				require.NoError(t, err)
			}
		}

		if step%50 == 0 {
			for i, s := range preds {
				assert.ElementsMatch(t, brute(f, s.all, s.anyOf, s.none), collections[i].Slice(), "query %d at step %d", i, step)
			}
		}
	}
	for i, s := range preds {
		assert.ElementsMatch(t, brute(f, s.all, s.anyOf, s.none), collections[i].Slice(), "query %d", i)
	}
}
