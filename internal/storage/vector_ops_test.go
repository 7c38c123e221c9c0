package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, math.MaxFloat32, math.SmallestNonzeroFloat32}
	assert.Equal(t, vec, DeserializeVector(SerializeVector(vec)))
	assert.Len(t, SerializeVector(vec), len(vec)*4)
	assert.Empty(t, DeserializeVector(nil))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSearchVector_RanksAscending(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	c := createTestCollection(t, storage, "chat")

	require.NoError(t, storage.UpsertRecords(ctx, c.ID, []*Record{
		record("far_0", "/far", 0, -1, 0, 0),
		record("near_0", "/near", 0, 1, 0.1, 0),
		record("exact_0", "/exact", 0, 1, 0, 0),
		record("mid_0", "/mid", 0, 0, 1, 0),
	}))

	results, err := storage.SearchVector(ctx, c.ID, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact_0", results[0].ChunkID)
	assert.Equal(t, "near_0", results[1].ChunkID)
	assert.Equal(t, "mid_0", results[2].ChunkID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
	assert.Equal(t, "/exact", results[0].Metadata.Source)
	assert.Equal(t, "/exact chunk 0", results[0].Document)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestSearchVector_TiesBrokenByChunkID(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	c := createTestCollection(t, storage, "chat")

	require.NoError(t, storage.UpsertRecords(ctx, c.ID, []*Record{
		record("c_0", "/c", 0, 0, 1, 0),
		record("a_0", "/a", 0, 0, 1, 0),
		record("b_0", "/b", 0, 0, 1, 0),
	}))

	results, err := storage.SearchVector(ctx, c.ID, []float32{0, 1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a_0", "b_0", "c_0"}, []string{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestSearchVector_SkipsDimensionMismatch(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	c := createTestCollection(t, storage, "chat")

	require.NoError(t, storage.UpsertRecords(ctx, c.ID, []*Record{
		record("three_0", "/three", 0, 1, 0, 0),
		record("two_0", "/two", 0, 1, 0),
	}))

	results, err := storage.SearchVector(ctx, c.ID, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "three_0", results[0].ChunkID)
}

func TestSearchVector_EmptyCollection(t *testing.T) {
	storage := setupTestDB(t)
	c := createTestCollection(t, storage, "chat")

	results, err := storage.SearchVector(context.Background(), c.ID, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
