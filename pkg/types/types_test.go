package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_AppendKeepsSequencesAligned(t *testing.T) {
	var b Batch
	b.Append(Chunk{ID: "aa_0", Text: "first", Source: "/a.txt", Position: 0})
	b.Append(Chunk{ID: "aa_1", Text: "second", Source: "/a.txt", Position: 1})
	b.Append(Chunk{ID: "bb_0", Text: "third", Source: "/b.txt", Position: 0})

	assert.Equal(t, 3, b.Len())
	assert.Len(t, b.Texts, 3)
	assert.Len(t, b.Metadatas, 3)
	assert.Equal(t, []string{"/a.txt", "/b.txt"}, b.Sources())

	chunks := b.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{ID: "aa_1", Text: "second", Source: "/a.txt", Position: 1}, chunks[1])
}

func TestPositionOf(t *testing.T) {
	assert.Equal(t, 0, PositionOf("abc_0"))
	assert.Equal(t, 12, PositionOf("abc_12"))
	assert.Equal(t, 0, PositionOf("no-suffix"))
	assert.Equal(t, 0, PositionOf("abc_x"))
	assert.Equal(t, 0, PositionOf("abc_-3"))
}

func TestChunk_Validate(t *testing.T) {
	assert.NoError(t, (&Chunk{ID: "a_0", Text: "x"}).Validate())
	assert.ErrorIs(t, (&Chunk{Text: "x"}).Validate(), ErrInvalidChunkID)
	assert.ErrorIs(t, (&Chunk{ID: "a_0", Text: " \n"}).Validate(), ErrEmptyContent)
	assert.Error(t, (&Chunk{ID: "a_0", Text: "x", Position: -1}).Validate())
}

func TestQueryResult(t *testing.T) {
	res := NewQueryResult([]Match{
		{ID: "a_0", Document: "near", Metadata: Metadata{Source: "/a"}, Distance: 0.1},
		{ID: "b_0", Document: "far", Metadata: Metadata{Source: "/b"}, Distance: 0.8},
	})

	require.Len(t, res.IDs, 1)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"near", "far"}, res.Documents[0])
	assert.True(t, res.AnyDistanceAbove(0.5))
	assert.False(t, res.AnyDistanceAbove(0.9))

	kept := res.WithinDistance(0.5)
	assert.Equal(t, 1, kept.Len())
	assert.Equal(t, "a_0", kept.Matches(0)[0].ID)

	assert.Nil(t, res.Matches(1))
	var empty *QueryResult
	assert.Zero(t, empty.Len())
}
