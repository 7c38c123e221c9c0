package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrModelNotFound     = errors.New("embedding model not found")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedder maps a batch of texts to one vector per text, in input order.
// All vectors returned by one embedder have the same dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Info identifies the provider behind an embedder. Collections record it at
// creation so a later mismatch can be reported.
type Info struct {
	Provider  string
	Model     string
	Dimension int // Zero when unknown until the first call
}

// Describer is implemented by embedders that can report their Info
type Describer interface {
	Info() Info
}

// Describe returns e's Info, or a generic Info for embedders that do not
// implement Describer
func Describe(e Embedder) Info {
	if d, ok := e.(Describer); ok {
		return d.Info()
	}
	return Info{Provider: "custom"}
}

// Close releases resources held by e, if it holds any
func Close(e Embedder) error {
	if c, ok := e.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

// Batches splits texts into consecutive slices of at most size elements
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	batches := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batches = append(batches, texts[start:end])
	}
	return batches
}
