// Package types provides shared type definitions for voicerag.
//
// These are the value types passed between the ingestion pipeline, the
// collection store and the agent-facing tool surface.
//
// # Core Types
//
// Chunk is the atomic retrieval unit, a token-bounded slice of one
// document's normalized text:
//
//	chunk := types.Chunk{
//	    ID:       "3f1c..._0",
//	    Text:     "first thousand tokens...",
//	    Source:   "/docs/a.pdf",
//	    Position: 0,
//	}
//
// Batch holds the co-indexed Texts, Metadatas and IDs produced by the
// batch builder for one or many source files.
//
// QueryResult mirrors the shape returned to the agent: every field is a
// slice of slices, the outer index selecting the query and the inner slice
// ranked by ascending cosine distance.
package types
