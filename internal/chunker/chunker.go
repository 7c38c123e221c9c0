package chunker

import (
	"errors"
	"fmt"

	"github.com/voicerag/voicerag/pkg/types"
)

const (
	// DefaultChunkSize is the maximum number of tokens per chunk
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of tokens repeated from the previous chunk
	DefaultOverlap = 0

	// DefaultEncoding is the tokenizer used when none is configured
	DefaultEncoding = EncodingCL100K
)

// ErrInvalidOptions is returned for chunk sizes and overlaps that cannot make progress
var ErrInvalidOptions = errors.New("invalid chunker options")

// Options controls how text is split
type Options struct {
	ChunkSize int    // Tokens per chunk (default DefaultChunkSize)
	Overlap   int    // Tokens shared by consecutive chunks
	Encoding  string // Encoding name (default DefaultEncoding)
}

// DefaultOptions returns the options used by the ingestion pipeline
func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
		Encoding:  DefaultEncoding,
	}
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	return o
}

// Validate checks that a window of ChunkSize advancing by ChunkSize-Overlap terminates
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be >= 0, got %d", ErrInvalidOptions, o.Overlap)
	}
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidOptions, o.Overlap, o.ChunkSize)
	}
	return nil
}

// Chunker splits normalized document text into token-bounded chunks
type Chunker struct {
	opts     Options
	encoding Encoding
}

// New creates a Chunker, resolving the configured encoding
func New(opts Options) (*Chunker, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	enc, err := GetEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	return &Chunker{opts: opts, encoding: enc}, nil
}

// Options returns the effective options
func (c *Chunker) Options() Options {
	return c.opts
}

// Split divides text into chunks of at most ChunkSize tokens. Chunk i+1
// starts with the last Overlap tokens of chunk i. Empty text yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return []string{}
	}

	tokens := c.encoding.Encode(text)
	n := tokens.Len()
	if n == 0 {
		return []string{}
	}

	step := c.opts.ChunkSize - c.opts.Overlap
	chunks := make([]string, 0, n/step+1)

	for start := 0; start < n; start += step {
		end := start + c.opts.ChunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, tokens.Decode(start, end))
		if end == n {
			break
		}
	}

	return chunks
}

// ChunkDocument splits the text of one source document and assigns each
// chunk its position and identity
func (c *Chunker) ChunkDocument(source, text string) []types.Chunk {
	pieces := c.Split(text)
	chunks := make([]types.Chunk, len(pieces))
	for pos, piece := range pieces {
		chunks[pos] = types.Chunk{
			ID:       ChunkID(source, pos),
			Text:     piece,
			Source:   source,
			Position: pos,
		}
	}
	return chunks
}

// CountTokens returns the number of tokens in text under the chunker's encoding
func (c *Chunker) CountTokens(text string) int {
	return c.encoding.Encode(text).Len()
}

// Split is a convenience wrapper around New(opts).Split(text)
func Split(text string, opts Options) ([]string, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}
