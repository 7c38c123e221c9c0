package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

const (
	// DatabaseFile is the database file name inside a persist directory
	DatabaseFile = "voicerag.db"

	// DistanceCosine is the only supported collection distance
	DistanceCosine = "cosine"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Open creates persistDir if needed and opens the database file inside it
func Open(persistDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist directory: %w", err)
	}
	return NewSQLiteStorage(filepath.Join(persistDir, DatabaseFile))
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// Collection operations

func (s *SQLiteStorage) createCollectionWithQuerier(ctx context.Context, q querier, c *Collection) error {
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
	query := `
		INSERT INTO collections (name, distance, provider, model, dimension, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		c.Name, c.Distance, c.Provider, c.Model, c.Dimension, now.UnixNano(), now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("collection %q: %w", c.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateCollection(ctx context.Context, c *Collection) error {
	return s.createCollectionWithQuerier(ctx, s.querier(), c)
}

const collectionColumns = `id, name, distance, provider, model, dimension, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCollection(row rowScanner) (*Collection, error) {
	var c Collection
	var created, updated int64
	if err := row.Scan(&c.ID, &c.Name, &c.Distance, &c.Provider, &c.Model, &c.Dimension, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, created)
	c.UpdatedAt = time.Unix(0, updated)
	return &c, nil
}

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	row := q.QueryRowContext(ctx, "SELECT "+collectionColumns+" FROM collections WHERE name = ?", name)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.querier(), name)
}

func (s *SQLiteStorage) listCollectionsWithQuerier(ctx context.Context, q querier) ([]*Collection, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+collectionColumns+" FROM collections ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	collections := make([]*Collection, 0)
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*Collection, error) {
	return s.listCollectionsWithQuerier(ctx, s.querier())
}

// Record operations

// upsertRecordsWithQuerier inserts records or replaces the stored ones with
// the same (collection, chunk_id)
func (s *SQLiteStorage) upsertRecordsWithQuerier(ctx context.Context, q querier, collectionID int64, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO records (collection_id, chunk_id, document, source, position, metadata, vector, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, chunk_id) DO UPDATE SET
			document = excluded.document,
			source = excluded.source,
			position = excluded.position,
			metadata = excluded.metadata,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", r.ChunkID, err)
		}
		if _, err := q.ExecContext(ctx, query,
			collectionID, r.ChunkID, r.Document, r.Source, r.Position, string(meta),
			serializeVector(r.Vector), now.UnixNano(), now.UnixNano()); err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", r.ChunkID, err)
		}
		r.CollectionID = collectionID
		r.UpdatedAt = now
	}

	_, err := q.ExecContext(ctx, "UPDATE collections SET updated_at = ? WHERE id = ?", now.UnixNano(), collectionID)
	return err
}

func (s *SQLiteStorage) UpsertRecords(ctx context.Context, collectionID int64, records []*Record) error {
	return s.upsertRecordsWithQuerier(ctx, s.querier(), collectionID, records)
}

func (s *SQLiteStorage) getRecordWithQuerier(ctx context.Context, q querier, collectionID int64, chunkID string) (*Record, error) {
	query := `
		SELECT id, collection_id, chunk_id, document, source, position, metadata, vector, created_at, updated_at
		FROM records
		WHERE collection_id = ? AND chunk_id = ?
	`
	var r Record
	var meta string
	var blob []byte
	var created, updated int64
	err := q.QueryRowContext(ctx, query, collectionID, chunkID).Scan(
		&r.ID, &r.CollectionID, &r.ChunkID, &r.Document, &r.Source, &r.Position,
		&meta, &blob, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", chunkID, err)
	}
	r.Vector = deserializeVector(blob)
	r.CreatedAt = time.Unix(0, created)
	r.UpdatedAt = time.Unix(0, updated)
	return &r, nil
}

func (s *SQLiteStorage) GetRecord(ctx context.Context, collectionID int64, chunkID string) (*Record, error) {
	return s.getRecordWithQuerier(ctx, s.querier(), collectionID, chunkID)
}

func (s *SQLiteStorage) deleteBySourceWithQuerier(ctx context.Context, q querier, collectionID int64, source string) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM records WHERE collection_id = ? AND source = ?", collectionID, source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records for %s: %w", source, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := q.ExecContext(ctx, "UPDATE collections SET updated_at = ? WHERE id = ?", time.Now().UnixNano(), collectionID); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

func (s *SQLiteStorage) DeleteBySource(ctx context.Context, collectionID int64, source string) (int, error) {
	return s.deleteBySourceWithQuerier(ctx, s.querier(), collectionID, source)
}

func (s *SQLiteStorage) countRecordsWithQuerier(ctx context.Context, q querier, collectionID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE collection_id = ?", collectionID).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountRecords(ctx context.Context, collectionID int64) (int, error) {
	return s.countRecordsWithQuerier(ctx, s.querier(), collectionID)
}

func (s *SQLiteStorage) listSourcesWithQuerier(ctx context.Context, q querier, collectionID int64) ([]SourceStat, error) {
	query := `
		SELECT source, COUNT(*), MAX(updated_at)
		FROM records
		WHERE collection_id = ?
		GROUP BY source
		ORDER BY source
	`
	rows, err := q.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := make([]SourceStat, 0)
	for rows.Next() {
		var st SourceStat
		var updated int64
		if err := rows.Scan(&st.Source, &st.Chunks, &updated); err != nil {
			return nil, err
		}
		st.UpdatedAt = time.Unix(0, updated)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *SQLiteStorage) ListSources(ctx context.Context, collectionID int64) ([]SourceStat, error) {
	return s.listSourcesWithQuerier(ctx, s.querier(), collectionID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, collectionID int64, queryVector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), collectionID, queryVector, limit)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{
		Path:      s.path,
		BuildMode: BuildMode,
	}

	version, err := CurrentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections").Scan(&status.Collections); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&status.Records); err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) CreateCollection(ctx context.Context, c *Collection) error {
	return t.storage.createCollectionWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return t.storage.getCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) ListCollections(ctx context.Context) ([]*Collection, error) {
	return t.storage.listCollectionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpsertRecords(ctx context.Context, collectionID int64, records []*Record) error {
	return t.storage.upsertRecordsWithQuerier(ctx, t.querier(), collectionID, records)
}

func (t *sqliteTx) GetRecord(ctx context.Context, collectionID int64, chunkID string) (*Record, error) {
	return t.storage.getRecordWithQuerier(ctx, t.querier(), collectionID, chunkID)
}

func (t *sqliteTx) DeleteBySource(ctx context.Context, collectionID int64, source string) (int, error) {
	return t.storage.deleteBySourceWithQuerier(ctx, t.querier(), collectionID, source)
}

func (t *sqliteTx) CountRecords(ctx context.Context, collectionID int64) (int, error) {
	return t.storage.countRecordsWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) ListSources(ctx context.Context, collectionID int64) ([]SourceStat, error) {
	return t.storage.listSourcesWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), collectionID, vector, limit)
}

// GetStatus needs the connection the transaction is holding
func (t *sqliteTx) GetStatus(ctx context.Context) (*StoreStatus, error) {
	return nil, errors.New("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	return errors.New("cannot close a transaction, use Commit or Rollback")
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}
