package chunker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	// EncodingCL100K is the BPE encoding used by current OpenAI embedding and chat models
	EncodingCL100K = "cl100k_base"

	// EncodingWhitespace treats every whitespace-separated word as one token.
	// Decoding joins words with a single space.
	EncodingWhitespace = "whitespace"
)

// ErrUnknownEncoding is returned when no tokenizer is registered for a name
var ErrUnknownEncoding = errors.New("unknown encoding")

// Encoding converts text into a token sequence
type Encoding interface {
	Name() string
	Encode(text string) Tokens
}

// Tokens is an encoded token sequence that can decode any contiguous run
type Tokens interface {
	Len() int
	// Decode returns the text of tokens[start:end]
	Decode(start, end int) string
}

var (
	loaderOnce sync.Once
	encodings  sync.Map // name -> Encoding
)

// GetEncoding returns the named encoding. BPE encodings are loaded once
// from the embedded offline vocabulary and then shared.
func GetEncoding(name string) (Encoding, error) {
	if name == "" {
		name = EncodingCL100K
	}
	if enc, ok := encodings.Load(name); ok {
		return enc.(Encoding), nil
	}

	var enc Encoding
	switch name {
	case EncodingWhitespace:
		enc = whitespaceEncoding{}
	default:
		loaderOnce.Do(func() {
			tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		})
		tke, err := tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrUnknownEncoding, name, err)
		}
		enc = &bpeEncoding{name: name, tke: tke}
	}

	actual, _ := encodings.LoadOrStore(name, enc)
	return actual.(Encoding), nil
}

// bpeEncoding adapts a tiktoken encoder
type bpeEncoding struct {
	name string
	tke  *tiktoken.Tiktoken
}

func (b *bpeEncoding) Name() string {
	return b.name
}

func (b *bpeEncoding) Encode(text string) Tokens {
	return &bpeTokens{ids: b.tke.Encode(text, nil, nil), tke: b.tke}
}

type bpeTokens struct {
	ids []int
	tke *tiktoken.Tiktoken
}

func (t *bpeTokens) Len() int {
	return len(t.ids)
}

// Decode returns valid UTF-8. A window edge can fall inside a multi-byte
// rune; the partial bytes become U+FFFD.
func (t *bpeTokens) Decode(start, end int) string {
	return strings.ToValidUTF8(t.tke.Decode(t.ids[start:end]), "\uFFFD")
}

type whitespaceEncoding struct{}

func (whitespaceEncoding) Name() string {
	return EncodingWhitespace
}

func (whitespaceEncoding) Encode(text string) Tokens {
	return wordTokens(strings.Fields(text))
}

type wordTokens []string

func (w wordTokens) Len() int {
	return len(w)
}

func (w wordTokens) Decode(start, end int) string {
	return strings.Join(w[start:end], " ")
}
