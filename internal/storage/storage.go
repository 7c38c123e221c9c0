package storage

import (
	"context"
	"time"

	"github.com/voicerag/voicerag/pkg/types"
)

// Storage defines the interface for persisting and querying vector collections
type Storage interface {
	// Collection operations
	CreateCollection(ctx context.Context, collection *Collection) error
	GetCollection(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)

	// Record operations
	UpsertRecords(ctx context.Context, collectionID int64, records []*Record) error
	GetRecord(ctx context.Context, collectionID int64, chunkID string) (*Record, error)
	DeleteBySource(ctx context.Context, collectionID int64, source string) (int, error)
	CountRecords(ctx context.Context, collectionID int64) (int, error)
	ListSources(ctx context.Context, collectionID int64) ([]SourceStat, error)

	// Search operations
	SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Collection is a named set of records embedded by one provider
type Collection struct {
	ID        int64
	Name      string
	Distance  string // Always DistanceCosine
	Provider  string
	Model     string
	Dimension int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is one stored chunk with its embedding
type Record struct {
	ID           int64
	CollectionID int64
	ChunkID      string
	Document     string
	Source       string
	Position     int
	Metadata     types.Metadata
	Vector       []float32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VectorResult is a ranked record from a similarity search
type VectorResult struct {
	ChunkID  string
	Document string
	Metadata types.Metadata
	Distance float64 // 1 - cosine similarity
}

// SourceStat summarizes the records stored for one source document
type SourceStat struct {
	Source    string
	Chunks    int
	UpdatedAt time.Time
}

// StoreStatus describes the database as a whole
type StoreStatus struct {
	Path          string
	SchemaVersion string
	BuildMode     string
	Collections   int
	Records       int
	SizeMB        float64
}
