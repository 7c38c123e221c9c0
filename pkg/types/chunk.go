package types

import (
	"errors"
	"strconv"
	"strings"
)

// MetadataSourceKey is the metadata key holding a chunk's originating path
const MetadataSourceKey = "source"

// Metadata is the per-chunk metadata stored alongside each record
type Metadata struct {
	Source string `json:"source"`
}

// Chunk is the atomic retrieval unit: a token-bounded slice of one document
type Chunk struct {
	ID       string // ChunkID(Source, Position)
	Text     string
	Source   string // Originating document path
	Position int    // Zero-based index within the document's chunk sequence
}

// Metadata returns the metadata record for the chunk
func (c *Chunk) Metadata() Metadata {
	return Metadata{Source: c.Source}
}

// Validate checks that the chunk can be stored
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrInvalidChunkID
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyContent
	}
	if c.Position < 0 {
		return errors.New("position must be >= 0")
	}
	return nil
}

// FileFailure records a source document that contributed no chunks
type FileFailure struct {
	Path string
	Err  error
}

// Batch is the co-indexed output of the batch builder.
// Texts, Metadatas and IDs always have equal length.
type Batch struct {
	Texts     []string
	Metadatas []Metadata
	IDs       []string

	// Failures lists documents whose conversion failed or was unsupported
	Failures []FileFailure
}

// Len returns the number of chunks in the batch
func (b *Batch) Len() int {
	return len(b.IDs)
}

// Append adds one chunk to all three parallel sequences
func (b *Batch) Append(c Chunk) {
	b.Texts = append(b.Texts, c.Text)
	b.Metadatas = append(b.Metadatas, c.Metadata())
	b.IDs = append(b.IDs, c.ID)
}

// Chunks returns the batch as a slice of chunks
func (b *Batch) Chunks() []Chunk {
	chunks := make([]Chunk, len(b.IDs))
	for i := range b.IDs {
		chunks[i] = Chunk{
			ID:       b.IDs[i],
			Text:     b.Texts[i],
			Source:   b.Metadatas[i].Source,
			Position: PositionOf(b.IDs[i]),
		}
	}
	return chunks
}

// PositionOf returns the position suffix of a chunk id, or 0 when the id
// carries none
func PositionOf(chunkID string) int {
	i := strings.LastIndexByte(chunkID, '_')
	if i < 0 {
		return 0
	}
	pos, err := strconv.Atoi(chunkID[i+1:])
	if err != nil || pos < 0 {
		return 0
	}
	return pos
}

// Sources returns the distinct source paths in the batch, in first-seen order
func (b *Batch) Sources() []string {
	seen := make(map[string]struct{})
	sources := make([]string, 0)
	for _, m := range b.Metadatas {
		if _, ok := seen[m.Source]; ok {
			continue
		}
		seen[m.Source] = struct{}{}
		sources = append(sources, m.Source)
	}
	return sources
}
