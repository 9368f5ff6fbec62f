// Package history maintains the layered narrative history of a scene: it
// drains the raw transcript into archive entries, compacts archive entries
// into progressively coarser layers, and exposes the queries and mutations
// the rest of the system uses to read and edit that history.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/memory"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
	"github.com/rcliao/story-history/internal/tokenizer"
)

// ErrSummarizationFailed is returned when every summarization attempt for an
// archive window came back empty or failed.
var ErrSummarizationFailed = errors.New("failed to summarize dialogue")

var errEmptySummary = errors.New("empty summary")

const maxSummarizeAttempts = 5

// Config holds the thresholds of the archive builder and the layered cascade.
type Config struct {
	ArchiveThreshold  int
	ArchiveMethod     string
	PreviousSummaries int

	LayeredEnabled   bool
	LayeredThreshold int
	MaxLayers        int
	MaxProcessTokens int
	AnalyzeChunks    bool
	ChunkSize        int
	ResponseLength   int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ArchiveThreshold:  1536,
		ArchiveMethod:     summarizer.MethodBalanced,
		PreviousSummaries: 6,
		LayeredEnabled:    true,
		LayeredThreshold:  1536,
		MaxLayers:         3,
		MaxProcessTokens:  768,
		ChunkSize:         1280,
		ResponseLength:    1024,
	}
}

// Summarizer is the language model surface the engine needs.
type Summarizer interface {
	Summarize(ctx context.Context, text string, extraContext []string, method string, opts summarizer.GenerationOptions) (string, error)
	SummarizeEvents(ctx context.Context, text string, p summarizer.EventsParams) (string, error)
	AnalyzeDialogue(ctx context.Context, dialogue []string) (string, error)
}

// MemoryIndex is the long-term memory the archive is mirrored into.
type MemoryIndex interface {
	AddMany(ctx context.Context, items []model.Memory) error
	Delete(ctx context.Context, filter memory.Filter) (int, error)
}

// Hook runs after an archive entry has been committed.
type Hook func(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) error

// Engine runs the history operations for scenes. It holds no per-scene
// state; everything is recomputed from the scene on each call.
type Engine struct {
	cfg    Config
	sum    Summarizer
	tokens tokenizer.Counter
	memory MemoryIndex
	status status.Emitter
	log    zerolog.Logger
	yield  time.Duration
	retry  time.Duration

	afterBuildArchive []Hook
}

// Option configures an Engine.
type Option func(*Engine)

// WithTokenizer sets the token counter. Defaults to tokenizer.Estimate.
func WithTokenizer(c tokenizer.Counter) Option {
	return func(e *Engine) { e.tokens = c }
}

// WithMemory mirrors archive entries into idx.
func WithMemory(idx MemoryIndex) Option {
	return func(e *Engine) { e.memory = idx }
}

// WithStatus sets the status event sink.
func WithStatus(s status.Emitter) Option {
	return func(e *Engine) { e.status = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRebuildYield sets the pause between archive builds during a rebuild.
func WithRebuildYield(d time.Duration) Option {
	return func(e *Engine) { e.yield = d }
}

// WithRetryInterval sets the first wait between failed summarization
// attempts. Later waits grow exponentially. Zero retries immediately.
func WithRetryInterval(d time.Duration) Option {
	return func(e *Engine) { e.retry = d }
}

// New returns an Engine. When layered history is enabled the cascade is
// registered as an after-build-archive hook.
func New(cfg Config, sum Summarizer, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		sum:    sum,
		tokens: tokenizer.Estimate{},
		status: status.Nop{},
		log:    zerolog.Nop(),
		yield:  100 * time.Millisecond,
		retry:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("component", "history").Logger()
	if cfg.LayeredEnabled {
		e.OnAfterBuildArchive(e.relayer)
	}
	return e
}

func (e *Engine) retryBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if e.retry > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = e.retry
		exp.Multiplier = 2
		exp.MaxInterval = 8 * e.retry
		exp.Reset()
		b = exp
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, maxSummarizeAttempts-1), ctx)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// OnAfterBuildArchive registers a hook fired after every committed archive entry.
func (e *Engine) OnAfterBuildArchive(h Hook) {
	e.afterBuildArchive = append(e.afterBuildArchive, h)
}

// relayer runs the cascade after an archive build. A summary that grew is
// already reported through a status event and does not fail the build.
func (e *Engine) relayer(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) error {
	err := e.SummarizeToLayeredHistory(ctx, sc, opts)
	var longer *model.SummaryLongerThanOriginalError
	if errors.As(err, &longer) {
		return nil
	}
	return err
}

// PushHistory appends messages to the transcript and runs the event-driven
// archive build. It holds the scene lock for the whole operation.
func (e *Engine) PushHistory(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions, msgs ...model.Message) ([]model.Message, error) {
	sc.Lock()
	defer sc.Unlock()

	pushed := sc.Push(msgs...)
	sc.SyncTime()

	_, err := e.buildArchive(ctx, sc, opts, true)
	if llm.IsCancelled(err) {
		e.status.Emit(status.Event{Status: status.Info, Message: "Archive build cancelled"})
		return pushed, nil
	}
	if err != nil {
		return pushed, err
	}
	sc.SyncTime()
	return pushed, nil
}

func (e *Engine) countAll(texts []string) int {
	return tokenizer.CountAll(e.tokens, texts)
}
