package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashingProvider is the built-in default embedder. It maps word unigrams
// and bigrams into a fixed number of signed buckets and L2-normalizes the
// result. It needs no network and no model file.
type HashingProvider struct {
	dim int
}

// NewHashingProvider creates a feature-hashing embedder with dim buckets
func NewHashingProvider(dim int) *HashingProvider {
	if dim <= 0 {
		dim = DefaultHashingDim
	}
	return &HashingProvider{dim: dim}
}

// Embed implements Embedder
func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *HashingProvider) embedOne(text string) []float32 {
	vec := make([]float32, p.dim)
	words := tokenize(text)
	for i, w := range words {
		p.add(vec, w, 1)
		if i > 0 {
			p.add(vec, words[i-1]+" "+w, 0.5)
		}
	}
	return NormalizeVector(vec)
}

func (p *HashingProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Info implements Describer
func (p *HashingProvider) Info() Info {
	return Info{Provider: GroupDefault, Model: "feature-hashing", Dimension: p.dim}
}

// tokenize lower-cases text and splits it on anything that is not a letter
// or digit
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
