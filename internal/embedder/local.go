package embedder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LocalProvider embeds text in-process with a word-vector model loaded from
// <ModelsDir>/<Name>.vec. Each line of the file is a word followed by its
// vector components; an optional first line "count dimension" is skipped.
type LocalProvider struct {
	name    string
	path    string
	dim     int
	vectors map[string][]float32
}

// NewLocalProvider loads the named model
func NewLocalProvider(cfg Config) (*LocalProvider, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: local provider requires a model name", ErrUnsupportedModel)
	}

	dir := cfg.ModelsDir
	if dir == "" {
		dir = DefaultModelsDir()
	}
	path := filepath.Join(dir, cfg.Name+".vec")

	vectors, dim, err := loadWordVectors(path)
	if err != nil {
		return nil, err
	}

	return &LocalProvider{
		name:    cfg.Name,
		path:    path,
		dim:     dim,
		vectors: vectors,
	}, nil
}

func loadWordVectors(path string) (map[string][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	vectors := make(map[string][]float32)
	dim := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, 0, fmt.Errorf("%w: %s:%d: no vector", ErrInvalidInput, path, lineNo)
		}

		vec := make([]float32, len(fields)-1)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %s:%d: %v", ErrInvalidInput, path, lineNo, err)
			}
			vec[i] = float32(v)
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, 0, fmt.Errorf("%w: %s:%d: dimension %d, want %d", ErrInvalidInput, path, lineNo, len(vec), dim)
		}
		vectors[strings.ToLower(fields[0])] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if dim == 0 {
		return nil, 0, fmt.Errorf("%w: %s is empty", ErrInvalidInput, path)
	}
	return vectors, dim, nil
}

// Embed implements Embedder. Texts with no known words embed to the zero
// vector.
func (l *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum := make([]float32, l.dim)
		known := 0
		for _, w := range tokenize(text) {
			vec, ok := l.vectors[w]
			if !ok {
				continue
			}
			for j, v := range vec {
				sum[j] += v
			}
			known++
		}
		if known > 0 {
			for j := range sum {
				sum[j] /= float32(known)
			}
		}
		out[i] = NormalizeVector(sum)
	}
	return out, nil
}

// Info implements Describer
func (l *LocalProvider) Info() Info {
	return Info{Provider: GroupLocal, Model: l.name, Dimension: l.dim}
}

// Vocabulary returns the number of words in the model
func (l *LocalProvider) Vocabulary() int {
	return len(l.vectors)
}
