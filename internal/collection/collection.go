package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voicerag/voicerag/internal/embedder"
	"github.com/voicerag/voicerag/internal/ingest"
	"github.com/voicerag/voicerag/internal/storage"
	"github.com/voicerag/voicerag/pkg/types"
)

// Errors returned by collection operations
var (
	ErrCollectionExists = errors.New("collection already exists")
	ErrNotInitialized   = errors.New("collection not initialized")
	ErrEmptyName        = errors.New("collection name cannot be empty")
	ErrEmptyQuery       = errors.New("query text cannot be empty")
)

const (
	// DefaultResults is the number of matches returned from a populated collection
	DefaultResults = 5
	// EmptyResults is the number of matches requested from an empty collection
	EmptyResults = 1
)

// Collection is a named vector collection bound to one embedder.
// Its state (uninitialized, empty, populated) is read from storage on every
// call, so it survives restarts. Callers serialize writes to one collection.
type Collection struct {
	name      string
	store     storage.Storage
	embedder  embedder.Embedder
	builder   *ingest.Builder
	logger    *slog.Logger
	batchSize int

	checkOnce sync.Once
}

// Options tunes a Collection. Zero values select defaults.
type Options struct {
	Builder   *ingest.Builder // Defaults to ingest.New with default chunking
	Logger    *slog.Logger    // Defaults to slog.Default()
	BatchSize int             // Texts per embedding call, default embedder.MaxBatchSize
}

// InitOutcome reports what Init found and stored
type InitOutcome struct {
	Dir      string
	State    ingest.DirState
	Chunks   int
	Failures []types.FileFailure
}

// AddResult reports what Add stored
type AddResult struct {
	Chunks   int
	Sources  []string
	Failures []types.FileFailure
}

// Info describes a stored collection
type Info struct {
	Name      string
	Distance  string
	Provider  string
	Model     string
	Dimension int
	Count     int
	Sources   []storage.SourceStat
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New binds a collection name to a store and an embedder. Nothing is
// written until Init.
func New(store storage.Storage, emb embedder.Embedder, name string, opts Options) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	c := &Collection{
		name:      name,
		store:     store,
		embedder:  emb,
		builder:   opts.Builder,
		logger:    opts.Logger,
		batchSize: opts.BatchSize,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("collection", name)
	if c.batchSize <= 0 || c.batchSize > embedder.MaxBatchSize {
		c.batchSize = embedder.MaxBatchSize
	}
	if c.builder == nil {
		b, err := ingest.New(ingest.Config{Logger: c.logger})
		if err != nil {
			return nil, err
		}
		c.builder = b
	}
	return c, nil
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Exists reports whether the collection has been initialized
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	_, err := c.store.GetCollection(ctx, c.name)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// load returns the stored collection or ErrNotInitialized
func (c *Collection) load(ctx context.Context) (*storage.Collection, error) {
	stored, err := c.store.GetCollection(ctx, c.name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, c.name)
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", c.name, err)
	}
	c.checkOnce.Do(func() { c.checkEmbedder(stored) })
	return stored, nil
}

// checkEmbedder warns when the bound embedder differs from the one the
// collection was created with
func (c *Collection) checkEmbedder(stored *storage.Collection) {
	info := embedder.Describe(c.embedder)
	if info.Provider != stored.Provider || info.Model != stored.Model {
		c.logger.Warn("embedder differs from the one the collection was created with",
			"stored_provider", stored.Provider, "stored_model", stored.Model,
			"provider", info.Provider, "model", info.Model)
		return
	}
	if info.Dimension != 0 && stored.Dimension != 0 && info.Dimension != stored.Dimension {
		c.logger.Warn("embedding dimension differs from the collection",
			"stored_dimension", stored.Dimension, "dimension", info.Dimension)
	}
}

// Init creates the collection with cosine distance and fills it from the
// first directory in dirs. An empty or unreadable directory yields an empty
// collection and a log line, never an error. Initializing an existing
// collection returns ErrCollectionExists. Embedding failures are returned
// and leave nothing behind.
func (c *Collection) Init(ctx context.Context, dirs ...string) (*InitOutcome, error) {
	exists, err := c.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, c.name)
	}

	outcome := &InitOutcome{State: ingest.DirEmpty}
	var batch *types.Batch
	if len(dirs) > 0 {
		outcome.Dir = dirs[0]
		listing := ingest.ListDir(dirs[0])
		outcome.State = listing.State

		if listing.State == ingest.DirPopulated {
			batch, err = c.builder.Build(ctx, listing.Files...)
			if err != nil {
				return nil, err
			}
			outcome.Failures = batch.Failures
		} else if listing.State == ingest.DirUnreadable {
			c.logger.Warn("folder could not be read", "dir", listing.Dir, "error", listing.Err)
		}
	}

	var records []*storage.Record
	if batch != nil && batch.Len() > 0 {
		records, err = c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
	}

	info := embedder.Describe(c.embedder)
	stored := &storage.Collection{
		Name:      c.name,
		Distance:  storage.DistanceCosine,
		Provider:  info.Provider,
		Model:     info.Model,
		Dimension: info.Dimension,
	}
	if info.Dimension == 0 && len(records) > 0 {
		stored.Dimension = len(records[0].Vector)
	}

	if err := c.withTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateCollection(ctx, stored); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s", ErrCollectionExists, c.name)
			}
			return err
		}
		return tx.UpsertRecords(ctx, stored.ID, records)
	}); err != nil {
		return nil, err
	}
	outcome.Chunks = len(records)

	switch {
	case outcome.Chunks > 0:
		c.logger.Info("non-empty folder initialized", "dir", outcome.Dir, "chunks", outcome.Chunks, "failed_files", len(outcome.Failures))
	case outcome.State == ingest.DirUnreadable:
		c.logger.Info("unreadable folder, empty collection initialized", "dir", outcome.Dir)
	default:
		c.logger.Info("empty folder initialized", "dir", outcome.Dir, "failed_files", len(outcome.Failures))
	}
	return outcome, nil
}

// Add converts, chunks and embeds paths and upserts the chunks by id.
// Unconvertible files are skipped and reported in AddResult.Failures.
func (c *Collection) Add(ctx context.Context, paths ...string) (*AddResult, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := c.builder.Build(ctx, paths...)
	if err != nil {
		return nil, err
	}
	result := &AddResult{Sources: batch.Sources(), Failures: batch.Failures}
	if batch.Len() == 0 {
		c.logger.Info("no chunks to add", "files", len(paths), "failed_files", len(batch.Failures))
		return result, nil
	}

	records, err := c.embedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	if err := c.withTx(ctx, func(tx storage.Tx) error {
		return tx.UpsertRecords(ctx, stored.ID, records)
	}); err != nil {
		return nil, err
	}

	result.Chunks = len(records)
	c.logger.Info("files added", "files", len(result.Sources), "chunks", result.Chunks, "failed_files", len(result.Failures))
	return result, nil
}

// Remove deletes every chunk whose source is one of paths, at any position.
// No embedding is computed. It returns the number of chunks deleted.
func (c *Collection) Remove(ctx context.Context, paths ...string) (int, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	if err := c.withTx(ctx, func(tx storage.Tx) error {
		for _, path := range paths {
			n, err := tx.DeleteBySource(ctx, stored.ID, path)
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	}); err != nil {
		return 0, err
	}

	c.logger.Info("files removed", "files", len(paths), "chunks", removed)
	return removed, nil
}

// ResultLimit applies the result-count policy: a populated collection
// returns up to min(k, 5) matches (k <= 0 means 5); an empty one is asked
// for 1
func ResultLimit(count, k int) int {
	if count == 0 {
		return EmptyResults
	}
	if k <= 0 || k > DefaultResults {
		return DefaultResults
	}
	return k
}

// Query embeds text and returns the nearest chunks by ascending cosine
// distance, limited by ResultLimit
func (c *Collection) Query(ctx context.Context, text string, k int) (*types.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	stored, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	count, err := c.store.CountRecords(ctx, stored.ID)
	if err != nil {
		return nil, err
	}
	limit := ResultLimit(count, k)

	vectors, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 query", embedder.ErrProviderFailed, len(vectors))
	}

	hits, err := c.store.SearchVector(ctx, stored.ID, vectors[0], limit)
	if err != nil {
		return nil, err
	}

	matches := make([]types.Match, len(hits))
	for i, h := range hits {
		matches[i] = types.Match{
			ID:       h.ChunkID,
			Document: h.Document,
			Metadata: h.Metadata,
			Distance: h.Distance,
		}
	}
	c.logger.Debug("query answered", "count", count, "limit", limit, "matches", len(matches))
	return types.NewQueryResult(matches), nil
}

// Count returns the number of stored chunks
func (c *Collection) Count(ctx context.Context) (int, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	return c.store.CountRecords(ctx, stored.ID)
}

// Info returns the stored description of the collection and its sources
func (c *Collection) Info(ctx context.Context) (*Info, error) {
	stored, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	count, err := c.store.CountRecords(ctx, stored.ID)
	if err != nil {
		return nil, err
	}
	sources, err := c.store.ListSources(ctx, stored.ID)
	if err != nil {
		return nil, err
	}
	return &Info{
		Name:      stored.Name,
		Distance:  stored.Distance,
		Provider:  stored.Provider,
		Model:     stored.Model,
		Dimension: stored.Dimension,
		Count:     count,
		Sources:   sources,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// embedBatch embeds the batch texts in slices of batchSize and pairs each
// vector with its chunk
func (c *Collection) embedBatch(ctx context.Context, batch *types.Batch) ([]*storage.Record, error) {
	records := make([]*storage.Record, 0, batch.Len())
	chunks := batch.Chunks()

	for start := 0; start < len(chunks); start += c.batchSize {
		end := min(start+c.batchSize, len(chunks))
		vectors, err := c.embedder.Embed(ctx, batch.Texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", embedder.ErrProviderFailed, len(vectors), end-start)
		}
		for i, vec := range vectors {
			ch := chunks[start+i]
			records = append(records, &storage.Record{
				ChunkID:  ch.ID,
				Document: ch.Text,
				Source:   ch.Source,
				Position: ch.Position,
				Metadata: ch.Metadata(),
				Vector:   vec,
			})
		}
	}
	return records, nil
}

// withTx runs fn in a transaction, committing on success
func (c *Collection) withTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := c.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
