package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/pkg/bitset"
)

func flagQuery(t *testing.T, m *kindset.FlagArrayManager, all, anyOf, none []int) Query[*bitset.FlagArray] {
	t.Helper()
	a, err := m.Of(all...)
	require.NoError(t, err)
	b, err := m.Of(anyOf...)
	require.NoError(t, err)
	c, err := m.Of(none...)
	require.NoError(t, err)
	return Query[*bitset.FlagArray]{All: a, Any: b, None: c}
}

func TestCheck(t *testing.T) {
	m := kindset.NewFlagArrayManager(16)
	q := flagQuery(t, m, []int{1, 5}, []int{6, 8}, []int{7})

	tests := []struct {
		name  string
		kinds []int
		want  Action
	}{
		{"empty", nil, NoOp},
		{"all without any", []int{1, 5}, NoOp},
		{"all and any", []int{1, 5, 8}, Add},
		{"forbidden wins", []int{1, 5, 6, 7}, Remove},
		{"partial all", []int{1, 6}, NoOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds, err := m.Of(tt.kinds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Check[int](m, kinds, q))
		})
	}
}

func TestCheck_EmptyQueryMatchesEverything(t *testing.T) {
	m := kindset.NewFlagArrayManager(8)
	q := flagQuery(t, m, nil, nil, nil)

	assert.Equal(t, Add, Check[int](m, m.Create(), q))
	kinds, _ := m.Of(3)
	assert.Equal(t, Add, Check[int](m, kinds, q))
}

func TestCheckAdded(t *testing.T) {
	m := kindset.NewFlagArrayManager(16)
	q := flagQuery(t, m, []int{1}, []int{2, 3}, []int{4})

	tests := []struct {
		name  string
		kinds []int
		added []int
		want  Action
	}{
		{"completes all", []int{1, 2}, []int{1}, Add},
		{"completes any", []int{1, 3}, []int{3}, Add},
		{"forbidden added", []int{1, 2, 4}, []int{4}, Remove},
		{"unrelated still incomplete", []int{2, 9}, []int{9}, NoOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds, err := m.Of(tt.kinds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CheckAdded(m, kinds, tt.added, q))
		})
	}
}

func TestCheckRemoved(t *testing.T) {
	m := kindset.NewFlagArrayManager(16)
	q := flagQuery(t, m, []int{1}, []int{2, 3}, []int{4})

	tests := []struct {
		name    string
		kinds   []int
		removed []int
		want    Action
	}{
		{"lost required", []int{2}, []int{1}, Remove},
		{"lost last any", []int{1}, []int{2}, Remove},
		{"one any left", []int{1, 3}, []int{2}, Add},
		{"forbidden removed", []int{1, 2}, []int{4}, Add},
		{"forbidden still present", []int{1, 2, 4}, []int{9}, NoOp},
		{"never matched", []int{9}, []int{4}, Remove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds, err := m.Of(tt.kinds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CheckRemoved(m, kinds, tt.removed, q))
		})
	}
}

func TestStorage_Dedup(t *testing.T) {
	m := kindset.NewFlagArrayManager(16)
	s := NewStorage[int, int, *bitset.FlagArray](m)

	a, created := s.insert(flagQuery(t, m, []int{1, 5}, []int{6}, []int{7}))
	require.True(t, created)
	b, created := s.insert(flagQuery(t, m, []int{5, 1}, []int{6}, []int{7}))
	require.False(t, created)
	assert.Same(t, a, b)

	c, created := s.insert(flagQuery(t, m, []int{0, 5}, []int{6}, []int{7}))
	require.True(t, created)
	assert.NotEqual(t, a.id, c.id)

	// Moving a kind between All and None must not collide.
	d, created := s.insert(flagQuery(t, m, []int{7}, []int{6}, []int{1, 5}))
	require.True(t, created)
	assert.NotEqual(t, a.id, d.id)

	id, ok := s.Lookup(flagQuery(t, m, []int{1, 5}, []int{6}, []int{7}))
	assert.True(t, ok)
	assert.Equal(t, a.id, id)
	assert.Equal(t, 3, s.Len())
}

func TestStorage_ClonesSets(t *testing.T) {
	m := kindset.NewFlagArrayManager(16)
	s := NewStorage[int, int, *bitset.FlagArray](m)

	q := flagQuery(t, m, []int{1}, nil, nil)
	ent, _ := s.insert(q)
	_, _ = m.Add(q.All, 2)

	stored, ok := s.Query(ent.id)
	require.True(t, ok)
	assert.False(t, m.Contains(stored.All, 2))
}
