package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
	"github.com/rcliao/story-history/internal/tokenizer"
)

type fakeSummarizer struct {
	mu sync.Mutex

	summarize func(text string, extra []string) (string, error)
	events    func(text string, p summarizer.EventsParams) (string, error)
	analyze   func(lines []string) (string, error)

	summarizeInputs []string
	eventsInputs    []string
	analyzeCalls    int
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string, extra []string, _ string, _ summarizer.GenerationOptions) (string, error) {
	f.mu.Lock()
	f.summarizeInputs = append(f.summarizeInputs, text)
	f.mu.Unlock()
	if f.summarize != nil {
		return f.summarize(text, extra)
	}
	return fmt.Sprintf("summary of %d lines", strings.Count(text, "\n")+1), nil
}

func (f *fakeSummarizer) SummarizeEvents(_ context.Context, text string, p summarizer.EventsParams) (string, error) {
	f.mu.Lock()
	f.eventsInputs = append(f.eventsInputs, text)
	f.mu.Unlock()
	if f.events != nil {
		return f.events(text, p)
	}
	return "one two three four", nil
}

func (f *fakeSummarizer) AnalyzeDialogue(_ context.Context, lines []string) (string, error) {
	f.mu.Lock()
	f.analyzeCalls++
	f.mu.Unlock()
	if f.analyze != nil {
		return f.analyze(lines)
	}
	return "", nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ArchiveThreshold = 10
	cfg.LayeredThreshold = 10
	cfg.MaxProcessTokens = 100
	cfg.LayeredEnabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, sum Summarizer, opts ...Option) (*Engine, *status.Recorder) {
	t.Helper()
	rec := &status.Recorder{}
	base := []Option{WithTokenizer(tokenizer.Words{}), WithStatus(rec), WithRebuildYield(0), WithRetryInterval(0)}
	return New(cfg, sum, append(base, opts...)...), rec
}

// line returns a character message that counts as five words.
func line(name string, n int) model.Message {
	return model.Message{Type: model.MessageCharacter, Character: name, Text: fmt.Sprintf("line %d goes here", n)}
}

func passage(ts string) model.Message {
	return model.Message{Type: model.MessageTimePassage, TS: ts}
}

func director(text string) model.Message {
	return model.Message{Type: model.MessageDirector, Text: text}
}

func sceneWith(msgs ...model.Message) *scene.Scene {
	sc := scene.New("test")
	sc.Push(msgs...)
	return sc
}

// archiveOf returns a scene whose archive holds n summarized entries of four
// words each, one hour apart.
func archiveOf(n int) *scene.Scene {
	sc := scene.New("test")
	for i := 0; i < n; i++ {
		sc.ArchivedHistory = append(sc.ArchivedHistory, model.ArchiveEntry{
			Text:  fmt.Sprintf("entry %d text here", i),
			ID:    fmt.Sprintf("a%d", i),
			Start: model.IntPtr(i * 2),
			End:   model.IntPtr(i*2 + 1),
			TS:    fmt.Sprintf("PT%dH", i),
		})
	}
	sc.ArchivedHistory[0].TS = "PT0S"
	return sc
}
