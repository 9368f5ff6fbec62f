// Package llm is the boundary to the language model. The history engine only
// ever sees Client.Generate; everything about prompting a concrete provider
// lives behind it.
package llm

import (
	"context"
	"errors"
)

// Kind names the purpose of a generation request.
type Kind string

const (
	KindSummarize       Kind = "summarize"
	KindSummarizeEvents Kind = "summarize_events"
	KindAnalyzeDialogue Kind = "analyze_dialogue"
)

// ErrGenerationCancelled signals a user-triggered abort of a generation.
// It is expected control flow, not a failure.
var ErrGenerationCancelled = errors.New("generation cancelled")

// Request is a single prompt/completion exchange.
type Request struct {
	Kind      Kind
	System    string
	Prompt    string
	Vars      map[string]any
	MaxTokens int
}

// Client generates text for a request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Client. Mostly useful for tests.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// IsCancelled reports whether err is a generation cancellation, including a
// cancelled caller context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrGenerationCancelled) || errors.Is(err, context.Canceled)
}
