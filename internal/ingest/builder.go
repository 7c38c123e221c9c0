package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voicerag/voicerag/internal/chunker"
	"github.com/voicerag/voicerag/internal/converter"
	"github.com/voicerag/voicerag/pkg/types"
)

// Builder turns source document paths into a co-indexed chunk batch:
// convert -> chunk -> assign identity
type Builder struct {
	converter converter.Converter
	chunker   *chunker.Chunker
	logger    *slog.Logger

	workers int
}

// Config contains configuration for the builder
type Config struct {
	Workers   int                 // Number of concurrent conversions (default: runtime.NumCPU())
	Chunking  chunker.Options     // Chunk size, overlap and encoding
	Converter converter.Converter // Defaults to converter.New()
	Logger    *slog.Logger        // Defaults to slog.Default()
}

// Statistics describes one Build call
type Statistics struct {
	FilesConverted int
	FilesFailed    int
	ChunksCreated  int
	Duration       time.Duration
}

// New creates a Builder. It fails only when the chunking options are invalid.
func New(cfg Config) (*Builder, error) {
	c, err := chunker.New(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		converter: cfg.Converter,
		chunker:   c,
		logger:    cfg.Logger,
		workers:   cfg.Workers,
	}
	if b.converter == nil {
		b.converter = converter.New()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b, nil
}

// Chunker returns the chunker used by the builder
func (b *Builder) Chunker() *chunker.Chunker {
	return b.chunker
}

// fileResult is the outcome of converting and chunking one path
type fileResult struct {
	chunks []types.Chunk
	err    error
}

// Build converts, chunks and identifies every path. Conversions run
// concurrently; the batch is assembled in input order with chunk positions
// ascending. A path that cannot be converted contributes no chunks and is
// recorded in Batch.Failures. The only error returned is context
// cancellation.
func (b *Builder) Build(ctx context.Context, paths ...string) (*types.Batch, error) {
	batch, _, err := b.BuildWithStats(ctx, paths...)
	return batch, err
}

// BuildWithStats is Build plus per-call statistics
func (b *Builder) BuildWithStats(ctx context.Context, paths ...string) (*types.Batch, *Statistics, error) {
	start := time.Now()
	results := make([]fileResult, len(paths))

	var converted, failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			text, err := b.converter.Convert(gctx, path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i] = fileResult{err: err}
				atomic.AddInt32(&failed, 1)
				return nil
			}
			results[i] = fileResult{chunks: b.chunker.ChunkDocument(path, text)}
			atomic.AddInt32(&converted, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("build batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("build batch: %w", err)
	}

	batch := &types.Batch{
		Texts:     make([]string, 0),
		Metadatas: make([]types.Metadata, 0),
		IDs:       make([]string, 0),
	}
	for i, res := range results {
		if res.err != nil {
			b.logger.Warn("document skipped", "path", paths[i], "error", res.err)
			batch.Failures = append(batch.Failures, types.FileFailure{Path: paths[i], Err: res.err})
			continue
		}
		if len(res.chunks) == 0 {
			b.logger.Debug("document produced no chunks", "path", paths[i])
		}
		b.appendChunks(batch, res.chunks)
	}

	stats := &Statistics{
		FilesConverted: int(converted),
		FilesFailed:    int(failed),
		ChunksCreated:  batch.Len(),
		Duration:       time.Since(start),
	}
	b.logger.Debug("batch built",
		"files", len(paths),
		"converted", stats.FilesConverted,
		"failed", stats.FilesFailed,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration)

	return batch, stats, nil
}

// appendChunks adds the chunks that pass validation. A BPE window can land
// entirely on whitespace; such chunks carry nothing to embed and are dropped,
// leaving a gap in the positions of that source.
func (b *Builder) appendChunks(batch *types.Batch, chunks []types.Chunk) int {
	dropped := 0
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			b.logger.Debug("chunk dropped", "id", c.ID, "source", c.Source, "error", err)
			dropped++
			continue
		}
		batch.Append(c)
	}
	return dropped
}
