// Package embedder maps text to fixed-dimension vectors through pluggable
// providers.
//
// Every provider implements one method:
//
//	type Embedder interface {
//	    Embed(ctx context.Context, texts []string) ([][]float32, error)
//	}
//
// # Provider Selection
//
// New picks a provider by Config.Group from a registry:
//
//	hosted (alias openai)       OpenAI-compatible API via openai-go
//	local  (alias open_source)  <ModelsDir>/<Name>.vec word vectors, in-process
//	default                     feature hashing, 384 dims, no network or model
//
// An unrecognized group logs a warning and uses default. Further groups can
// be added with Register.
//
//	emb, err := embedder.New(embedder.Config{
//	    Group:    "hosted",
//	    Name:     "text-embedding-3-small",
//	    APIKey:   os.Getenv("OPENAI_API_KEY"),
//	    Endpoint: os.Getenv("BASE_URL_OPENAI_API"),
//	})
//
// # Failure Handling
//
// The hosted provider disables the SDK's own retries. Failures surface as
// ErrProviderFailed unless Config.MaxRetries asks for exponential backoff.
// Config.RequestsPerSecond adds a client-side rate limit that waits on the
// caller's context.
//
// # Caching
//
// Config.CacheSize > 0 wraps the provider in an LRU cache keyed by the
// SHA-256 of each text. Repeated texts within one call are embedded once and
// cached vectors are copied out, so callers may mutate what they receive.
//
// # Bookkeeping
//
// Describe reports the provider, model and dimension of an embedder.
// Collections store it at creation and warn when a later embedder differs.
package embedder
