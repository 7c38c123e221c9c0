// Package storage provides SQLite-based persistence for vector collections.
//
// One database file (voicerag.db) lives in each persist directory and holds
// every collection stored there.
//
// # Database Schema
//
// Tables:
//   - collections: name (unique), distance, provider, model, dimension
//   - records: one row per chunk, keyed by (collection_id, chunk_id), with
//     the chunk text, its source path, position, JSON metadata and the
//     embedding as a little-endian float32 blob
//   - schema_version: applied migrations, compared with semver
//
// # Basic Usage
//
//	db, err := storage.Open("~/.voicerag/vectors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	coll := &storage.Collection{Name: "chat_id_1", Provider: "hosted", Model: "text-embedding-3-small"}
//	if err := db.CreateCollection(ctx, coll); errors.Is(err, storage.ErrAlreadyExists) {
//	    coll, err = db.GetCollection(ctx, "chat_id_1")
//	}
//
// # Transactions
//
// Use transactions for atomic batch writes:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertRecords(ctx, coll.ID, records); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Upserts and Removal
//
// UpsertRecords replaces any record with the same chunk id in the same
// collection. DeleteBySource removes every record of one source path
// regardless of position.
//
// # Vector Search
//
// SearchVector loads the collection's vectors and ranks them in Go by cosine
// distance (1 - cosine similarity), ascending, ties ordered by chunk id.
// Records whose dimension differs from the query are skipped.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_cgo switches to github.com/mattn/go-sqlite3.
//
// # Concurrency
//
// The pool holds a single connection, so all access is serialized. While a
// transaction is open, use the Tx for every operation.
package storage
