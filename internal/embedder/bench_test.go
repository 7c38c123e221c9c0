package embedder

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func BenchmarkComputeHash(b *testing.B) {
	texts := []string{
		"short",
		"medium length text for hashing",
		strings.Repeat("a typical chunk of a quarterly report that might be embedded ", 40),
	}

	for _, text := range texts {
		b.Run(fmt.Sprintf("len=%d", len(text)), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = ComputeHash(text)
			}
		})
	}
}

func BenchmarkCache(b *testing.B) {
	cache := NewCache(10000)
	vec := make([]float32, 384)

	b.Run("set", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			cache.Set(fmt.Sprintf("hash-%d", i%1000), vec)
		}
	})

	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("hash-%d", i), vec)
	}

	b.Run("get-hit", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cache.Get(fmt.Sprintf("hash-%d", i%1000))
		}
	})

	b.Run("get-miss", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cache.Get(fmt.Sprintf("nonexistent-%d", i))
		}
	})
}

func BenchmarkHashingProvider(b *testing.B) {
	p := NewHashingProvider(DefaultHashingDim)
	ctx := context.Background()

	for _, size := range []int{1, 10, 100} {
		texts := make([]string, size)
		for i := range texts {
			texts[i] = strings.Repeat(fmt.Sprintf("word%d ", i), 200)
		}
		b.Run(fmt.Sprintf("batch=%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = p.Embed(ctx, texts)
			}
		})
	}
}

func BenchmarkNormalizeVector(b *testing.B) {
	vec := make([]float32, 1536)
	for i := range vec {
		vec[i] = float32(i%17) - 8
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizeVector(vec)
	}
}
