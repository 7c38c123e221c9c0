package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordOpts(size, overlap int) Options {
	return Options{ChunkSize: size, Overlap: overlap, Encoding: EncodingWhitespace}
}

func TestSplit_WordWindowsWithOverlap(t *testing.T) {
	chunks, err := Split("a b c d e f g h i j", wordOpts(3, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "c d e", "e f g", "g h i", "i j"}, chunks)
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks, err := Split("a b c d e f g", wordOpts(3, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "d e f", "g"}, chunks)
}

func TestSplit_ExactMultiple(t *testing.T) {
	chunks, err := Split("a b c d e f", wordOpts(3, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "d e f"}, chunks)
}

func TestSplit_EmptyInput(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		chunks, err := Split("", wordOpts(3, 1))
		require.NoError(t, err)
		assert.NotNil(t, chunks)
		assert.Empty(t, chunks)
	})

	t.Run("whitespace only", func(t *testing.T) {
		chunks, err := Split("   \n\t ", wordOpts(3, 1))
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestSplit_ShorterThanChunk(t *testing.T) {
	chunks, err := Split("only two", wordOpts(10, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"only two"}, chunks)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	first, err := Split(text, wordOpts(7, 2))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Split(text, wordOpts(7, 2))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// Every chunk holds at most ChunkSize tokens and dropping each chunk's
// leading overlap reconstructs the original token stream in order.
func TestSplit_ReconstructsTokenStream(t *testing.T) {
	words := make([]string, 0, 101)
	for i := 0; i <= 100; i++ {
		words = append(words, "w"+strings.Repeat("x", i%7))
	}
	text := strings.Join(words, " ")

	for _, tc := range []struct{ size, overlap int }{{1, 0}, {5, 0}, {5, 2}, {10, 9}, {200, 50}} {
		opts := wordOpts(tc.size, tc.overlap)
		c, err := New(opts)
		require.NoError(t, err)

		chunks := c.Split(text)
		var rebuilt []string
		for i, chunk := range chunks {
			toks := strings.Fields(chunk)
			assert.LessOrEqual(t, len(toks), tc.size)
			if i > 0 {
				toks = toks[tc.overlap:]
			}
			rebuilt = append(rebuilt, toks...)
		}
		assert.Equal(t, words, rebuilt, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative size", Options{ChunkSize: -1, Encoding: EncodingWhitespace}},
		{"negative overlap", Options{ChunkSize: 10, Overlap: -1, Encoding: EncodingWhitespace}},
		{"overlap equals size", Options{ChunkSize: 10, Overlap: 10, Encoding: EncodingWhitespace}},
		{"overlap exceeds size", Options{ChunkSize: 10, Overlap: 11, Encoding: EncodingWhitespace}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{Encoding: EncodingWhitespace})
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, c.Options().ChunkSize)
	assert.Equal(t, DefaultOverlap, c.Options().Overlap)
}

func TestNew_UnknownEncoding(t *testing.T) {
	_, err := New(Options{ChunkSize: 10, Encoding: "no_such_encoding"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestChunkDocument_AssignsPositionsAndIDs(t *testing.T) {
	c, err := New(wordOpts(2, 0))
	require.NoError(t, err)

	chunks := c.ChunkDocument("/docs/a.txt", "one two three four five")
	require.Len(t, chunks, 3)

	for pos, chunk := range chunks {
		assert.Equal(t, pos, chunk.Position)
		assert.Equal(t, "/docs/a.txt", chunk.Source)
		assert.Equal(t, ChunkID("/docs/a.txt", pos), chunk.ID)
		assert.NoError(t, chunk.Validate())
	}
	assert.Equal(t, "five", chunks[2].Text)
}

func TestCL100K_TokenBounded(t *testing.T) {
	c, err := New(Options{ChunkSize: 16, Overlap: 4, Encoding: EncodingCL100K})
	if err != nil {
		t.Skipf("cl100k_base vocabulary unavailable: %v", err)
	}

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	total := c.CountTokens(text)
	require.Greater(t, total, 16)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, c.CountTokens(chunk), 16+1) // re-encoding a decoded slice may merge one boundary
		assert.NotEmpty(t, chunk)
	}

	// Without overlap the chunks concatenate back to the input
	plain, err := New(Options{ChunkSize: 16, Encoding: EncodingCL100K})
	require.NoError(t, err)
	assert.Equal(t, text, strings.Join(plain.Split(text), ""))
}

func TestCL100K_MultiByteTextStaysValidUTF8(t *testing.T) {
	c, err := New(Options{ChunkSize: 3, Encoding: EncodingCL100K})
	if err != nil {
		t.Skipf("cl100k_base vocabulary unavailable: %v", err)
	}

	text := "Привет мир, это тестовый документ. 日本語のテキストです。 🎉🎉🎉 наш ассистент отвечает"
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8: %q", i, chunk)
	}
}
