// Package tokenizer provides the token counters used for every threshold
// comparison in the history engine.
package tokenizer

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens. Implementations must be deterministic for the same
// input within one process.
type Counter interface {
	Count(text string) int
}

// CountAll counts the tokens of texts joined the way prompts join them.
func CountAll(c Counter, texts []string) int {
	return c.Count(strings.Join(texts, "\n\n"))
}

// Estimate approximates ~4 characters per token, rounding up.
type Estimate struct{}

func (Estimate) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Words counts whitespace separated words. Useful where a predictable
// counter matters more than accuracy.
type Words struct{}

func (Words) Count(text string) int {
	return len(strings.Fields(text))
}

// Tiktoken counts BPE tokens with a tiktoken encoding, caching counts for
// recently seen texts.
type Tiktoken struct {
	enc   *tiktoken.Tiktoken
	cache *lru.Cache[string, int]
}

// NewTiktoken loads the named encoding (e.g. "cl100k_base").
func NewTiktoken(encoding string, cacheSize int) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &Tiktoken{enc: enc, cache: cache}, nil
}

func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	if n, ok := t.cache.Get(text); ok {
		return n
	}
	n := len(t.enc.Encode(text, nil, nil))
	t.cache.Add(text, n)
	return n
}

// New builds the counter named by kind: "estimate", "words" or "tiktoken".
func New(kind, encoding string) (Counter, error) {
	switch kind {
	case "", "estimate":
		return Estimate{}, nil
	case "words":
		return Words{}, nil
	case "tiktoken":
		return NewTiktoken(encoding, 0)
	}
	return nil, fmt.Errorf("unknown tokenizer %q", kind)
}
