// Package chunker splits normalized document text into overlapping chunks
// bounded by token count, and assigns each chunk a stable identity.
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.Options{ChunkSize: 1000, Overlap: 0})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, chunk := range c.ChunkDocument("/docs/a.pdf", text) {
//	    fmt.Printf("%s: %d tokens\n", chunk.ID, c.CountTokens(chunk.Text))
//	}
//
// # Windowing
//
// The token stream is cut into windows of ChunkSize tokens. Each window
// after the first starts Overlap tokens before the end of the previous one,
// and the last window holds whatever remains:
//
//	split("a b c d e f g h i j", size=3, overlap=1)
//	  => "a b c", "c d e", "e f g", "g h i", "i j"
//
// # Encodings
//
// cl100k_base and the other tiktoken encodings are loaded from an offline
// vocabulary on first use and cached for the process. The "whitespace"
// encoding counts words and needs no vocabulary.
//
// # Chunk Identity
//
// ChunkID hashes the source path (not the chunk text) and appends the
// position:
//
//	ChunkID("/docs/a.pdf", 0) == hex(sha256("/docs/a.pdf")) + "_0"
//
// Re-adding an edited file therefore overwrites chunks in place. When an edit
// shrinks a document, chunks at positions past the new end stay in the
// collection until the source is removed explicitly.
package chunker
