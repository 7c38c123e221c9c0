// Package collection manages one named vector collection: creating it from a
// folder, adding and removing source documents, and answering similarity
// queries.
//
// A collection moves through three states. It is uninitialized until Init
// creates it; Init on an empty or unreadable folder leaves it empty; Add
// populates it. Query on an empty collection asks storage for a single match
// and on a populated one for at most five.
//
// Chunks are stored under ids derived from the source path and the chunk
// position, so re-adding a document replaces its chunks in place. A document
// that shrinks keeps its trailing chunks until it is removed.
//
// Example:
//
//	c, err := collection.New(store, emb, "conv-42", collection.Options{})
//	if err != nil {
//	    return err
//	}
//	if _, err := c.Init(ctx, "/data/docs"); err != nil {
//	    return err
//	}
//	res, err := c.Query(ctx, "refund policy", 5)
package collection
