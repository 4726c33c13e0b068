package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/kindstore/pkg/sequence"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name       string
		n, workers int
		want       [][2]int
	}{
		{"empty", 0, 4, nil},
		{"even", 8, 4, [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"uneven", 7, 3, [][2]int{{0, 3}, {3, 6}, {6, 7}}},
		{"more workers than items", 2, 8, [][2]int{{0, 1}, {1, 2}}},
		{"no workers", 3, 0, [][2]int{{0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunks(tt.n, tt.workers))
		})
	}
}

func TestParallelFilter_KeepsOrder(t *testing.T) {
	in := make([]int, 10_000)
	for i := range in {
		in[i] = i
	}
	got, err := ParallelFilter(context.Background(), sequence.From(in), 8, func(v int) bool { return v%3 == 0 })
	require.NoError(t, err)

	require.Len(t, got, 3334)
	for i, v := range got {
		assert.Equal(t, i*3, v)
	}
}

func TestParallelMap(t *testing.T) {
	got, err := ParallelMap(context.Background(), sequence.From([]int{1, 2, 3}), 2, func(v int) int { return v * v })
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9}, got)
}

func TestParallelMap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	got, err := ParallelMap(ctx, sequence.From(make([]int, 1000)), 4, func(v int) int {
		calls.Add(1)
		return v
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
	assert.Zero(t, calls.Load())

	_, err = ParallelFilter(ctx, sequence.From([]int{1, 2}), 2, func(int) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForEachChunk_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	var visited atomic.Int64

	err := ForEachChunk(context.Background(), 100, 4, func(_ context.Context, lo, hi int) error {
		visited.Add(int64(hi - lo))
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, visited.Load(), int64(100))
}
