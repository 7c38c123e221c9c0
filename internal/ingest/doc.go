// Package ingest turns source documents into chunk batches ready for
// embedding and storage.
//
// # Pipeline
//
//	path -> converter.Convert -> chunker.ChunkDocument -> types.Batch
//
// Conversion is the slow step and runs on a bounded errgroup
// (Config.Workers, default runtime.NumCPU()). Results are written into a
// slot per input path and assembled afterwards, so the batch order never
// depends on scheduling: chunks of paths[0] come first, in position order,
// then paths[1], and so on.
//
// # Failure Isolation
//
// A document that is unsupported, unreadable or malformed is logged at warn
// level and recorded in Batch.Failures. It never aborts the batch. Build
// returns an error only when its context is cancelled.
//
// # Directory Listing
//
// ListDir reports one of three explicit states instead of an error:
//
//	listing := ingest.ListDir("/data/docs")
//	switch listing.State {
//	case ingest.DirPopulated:
//	    batch, _ := builder.Build(ctx, listing.Files...)
//	case ingest.DirEmpty:
//	    // create an empty collection
//	case ingest.DirUnreadable:
//	    // log listing.Err, create an empty collection
//	}
package ingest
