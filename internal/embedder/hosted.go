package embedder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// HostedProvider implements Embedder against an OpenAI-compatible
// embeddings endpoint
type HostedProvider struct {
	client     openai.Client
	httpClient *http.Client
	model      string
	limiter    *rate.Limiter
	retry      RetryConfig
}

// NewHostedProvider creates a hosted embedder. The API key and base URL fall
// back to OPENAI_API_KEY and BASE_URL_OPENAI_API.
func NewHostedProvider(cfg Config) (*HostedProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EnvOpenAIBaseURL)
	}

	model := cfg.Name
	if model == "" {
		model = DefaultHostedModel
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}

	p := &HostedProvider{
		client:     openai.NewClient(opts...),
		httpClient: httpClient,
		model:      model,
		retry:      NewRetryConfig(cfg.MaxRetries),
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p, nil
}

// Embed implements Embedder. Texts are sent in batches of MaxBatchSize.
func (h *HostedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for _, batch := range Batches(texts, MaxBatchSize) {
		vectors, err := retryWithBackoff(ctx, h.retry, func() ([][]float32, error) {
			return h.callAPI(ctx, batch)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (h *HostedProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := h.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(h.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("api returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) || vectors[idx] != nil {
			return nil, fmt.Errorf("api returned invalid index %d", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[idx] = vec
	}
	return vectors, nil
}

// Info implements Describer. The dimension depends on the model and is
// reported as zero until a collection records it.
func (h *HostedProvider) Info() Info {
	return Info{Provider: GroupHosted, Model: h.model, Dimension: hostedDimensions[h.model]}
}

// Close releases idle connections
func (h *HostedProvider) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

var hostedDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}
