package history

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

func layeredConfig() Config {
	cfg := testConfig()
	cfg.LayeredEnabled = true
	return cfg
}

func TestLayeredSeedsFirstLayer(t *testing.T) {
	sum := &fakeSummarizer{events: func(string, summarizer.EventsParams) (string, error) { return "compact", nil }}
	e, rec := newTestEngine(t, layeredConfig(), sum)
	sc := archiveOf(7)

	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	require.Len(t, sc.LayeredHistory, 1)
	layer := sc.LayeredHistory[0]
	require.Len(t, layer, 3, "the partial tail is left for later")
	for i, entry := range layer {
		assert.Equal(t, i*2, *entry.Start)
		assert.Equal(t, i*2+1, *entry.End)
		assert.Equal(t, "compact", entry.Text)
		assert.NotEmpty(t, entry.ID)
	}
	assert.Equal(t, "PT2H", layer[1].TS)
	assert.Equal(t, "PT2H", layer[1].TSStart)
	assert.Equal(t, "PT3H", layer[1].TSEnd)
	assert.Equal(t, "entry 0 text here\n\nentry 1 text here", sum.eventsInputs[0])

	evt, ok := rec.Last(status.Success)
	require.True(t, ok)
	assert.Equal(t, "Layered history updated.", evt.Message)
}

func TestLayeredResumes(t *testing.T) {
	sum := &fakeSummarizer{events: func(string, summarizer.EventsParams) (string, error) { return "compact", nil }}
	e, _ := newTestEngine(t, layeredConfig(), sum)
	sc := archiveOf(7)
	ctx := context.Background()

	require.NoError(t, e.SummarizeToLayeredHistory(ctx, sc, summarizer.GenerationOptions{}))
	before := append([]model.LayeredArchiveEntry(nil), sc.LayeredHistory[0]...)
	calls := len(sum.eventsInputs)

	require.NoError(t, e.SummarizeToLayeredHistory(ctx, sc, summarizer.GenerationOptions{}))
	assert.Equal(t, before, sc.LayeredHistory[0], "nothing new to compact")
	assert.Equal(t, calls, len(sum.eventsInputs))

	more := archiveOf(10)
	sc.ArchivedHistory = append(sc.ArchivedHistory, more.ArchivedHistory[7:]...)
	require.NoError(t, e.SummarizeToLayeredHistory(ctx, sc, summarizer.GenerationOptions{}))

	layer := sc.LayeredHistory[0]
	require.Len(t, layer, 4)
	assert.Equal(t, before, layer[:3])
	assert.Equal(t, 6, *layer[3].Start)
	assert.Equal(t, 7, *layer[3].End)
}

func TestLayeredCascadeRespectsMaxLayers(t *testing.T) {
	for _, maxLayers := range []int{1, 2, 3} {
		t.Run(fmt.Sprint(maxLayers), func(t *testing.T) {
			cfg := layeredConfig()
			cfg.MaxLayers = maxLayers
			e, _ := newTestEngine(t, cfg, &fakeSummarizer{})
			sc := archiveOf(16)

			require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))
			assert.Len(t, sc.LayeredHistory, maxLayers)
		})
	}
}

func TestLayeredCascadeShape(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(16)

	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	require.Len(t, sc.LayeredHistory, 3)
	assert.Len(t, sc.LayeredHistory[0], 7)
	assert.Len(t, sc.LayeredHistory[1], 3)
	assert.Len(t, sc.LayeredHistory[2], 1)

	for l, list := range sc.LayeredHistory {
		below := len(sc.ArchivedHistory)
		if l > 0 {
			below = len(sc.LayeredHistory[l-1])
		}
		next := 0
		for _, entry := range list {
			assert.Equal(t, next, *entry.Start, "layer %d", l)
			assert.Less(t, *entry.End, below, "layer %d", l)
			next = *entry.End + 1
		}
	}
}

func TestLayeredSummaryLongerThanOriginal(t *testing.T) {
	sum := &fakeSummarizer{events: func(text string, _ summarizer.EventsParams) (string, error) {
		return strings.Repeat("much longer ", 20), nil
	}}
	e, rec := newTestEngine(t, layeredConfig(), sum)
	sc := archiveOf(5)

	err := e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{})
	var longer *model.SummaryLongerThanOriginalError
	require.ErrorAs(t, err, &longer)
	assert.Equal(t, 8, longer.OriginalTokens)
	assert.Equal(t, 40, longer.SummaryTokens)
	assert.Empty(t, sc.LayeredHistory)

	evt, ok := rec.Last(status.Error)
	require.True(t, ok)
	assert.Equal(t, "Layered history update failed.", evt.Message)
}

func TestLayeredCancelled(t *testing.T) {
	sum := &fakeSummarizer{events: func(string, summarizer.EventsParams) (string, error) {
		return "", llm.ErrGenerationCancelled
	}}
	e, rec := newTestEngine(t, layeredConfig(), sum)
	sc := archiveOf(5)

	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))
	assert.Empty(t, sc.LayeredHistory)

	evt, ok := rec.Last(status.Info)
	require.True(t, ok)
	assert.Equal(t, "Layered history update cancelled.", evt.Message)
}

func TestLayeredSplitsByProcessBudget(t *testing.T) {
	cfg := layeredConfig()
	cfg.LayeredThreshold = 20
	cfg.MaxProcessTokens = 8
	var contexts [][]string
	sum := &fakeSummarizer{events: func(_ string, p summarizer.EventsParams) (string, error) {
		contexts = append(contexts, p.ExtraContext)
		return "part", nil
	}}
	e, _ := newTestEngine(t, cfg, sum)
	sc := archiveOf(7)

	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	require.Len(t, sc.LayeredHistory, 1)
	require.Len(t, sc.LayeredHistory[0], 1)
	assert.Equal(t, "part\n\npart\n\npart", sc.LayeredHistory[0][0].Text)
	require.Len(t, contexts, 3)
	assert.Equal(t, []string{"part", "part"}, contexts[2], "earlier parts are passed along")
}

// archiveRange projects a compiled entry onto the archive positions it covers.
func archiveRange(sc *scene.Scene, c CompiledEntry) (int, int) {
	from, to := *c.Start, *c.End
	for layer := c.Layer - 1; layer >= 1; layer-- {
		list := sc.LayeredHistory[layer-1]
		from, to = *list[from].Start, *list[to].End
	}
	return from, to
}

func TestCompileLayeredHistoryCoversArchiveOnce(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(16)
	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	compiled := e.CompileLayeredHistory(sc, CompileOptions{IncludeBaseLayer: true})

	layers := make([]int, len(compiled))
	for i, c := range compiled {
		layers[i] = c.Layer
	}
	assert.Equal(t, []int{3, 2, 1, 0, 0}, layers)

	next := 0
	for _, c := range compiled {
		if c.Layer == 0 {
			assert.Equal(t, next, *c.Start/2, "archive entry %s", c.ID)
			next++
			continue
		}
		from, to := archiveRange(sc, c)
		assert.Equal(t, next, from, "entry %s", c.ID)
		next = to + 1
	}
	assert.Equal(t, len(sc.ArchivedHistory), next)

	assert.Equal(t, 1, compiled[0].LayerR)
	assert.Equal(t, 4, compiled[3].LayerR)
	assert.Equal(t, 1, compiled[3].Index)
	assert.Equal(t, 2, compiled[4].Index)
}

func TestCompileLayeredHistoryForLayer(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(16)
	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	one := 1
	compiled := e.CompileLayeredHistory(sc, CompileOptions{ForLayerIndex: &one, IncludeBaseLayer: true})
	require.Len(t, compiled, 2)
	assert.Equal(t, 3, compiled[0].Layer)
	assert.Equal(t, 2, compiled[1].Layer)
}

func TestCompileLayeredHistoryMax(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(7)
	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	limit := 3
	compiled := e.CompileLayeredHistory(sc, CompileOptions{Max: &limit, IncludeBaseLayer: true})
	require.Len(t, compiled, 1)
	assert.Equal(t, 1, *compiled[0].End)
}

func TestCompileWithoutLayersReturnsArchive(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(4)

	assert.Equal(t, []string{"entry 0 text here", "entry 1 text here", "entry 2 text here", "entry 3 text here"},
		e.CompileText(sc, CompileOptions{IncludeBaseLayer: true}))
	assert.Empty(t, e.CompileText(sc, CompileOptions{}))
}

func TestCompileIsReadOnly(t *testing.T) {
	e, _ := newTestEngine(t, layeredConfig(), &fakeSummarizer{})
	sc := archiveOf(16)
	require.NoError(t, e.SummarizeToLayeredHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	archive := append([]model.ArchiveEntry(nil), sc.ArchivedHistory...)
	layers := make([][]model.LayeredArchiveEntry, len(sc.LayeredHistory))
	for i, l := range sc.LayeredHistory {
		layers[i] = append([]model.LayeredArchiveEntry(nil), l...)
	}

	e.CompileLayeredHistory(sc, CompileOptions{IncludeBaseLayer: true})
	e.CompileLayeredHistory(sc, CompileOptions{})

	assert.Equal(t, archive, sc.ArchivedHistory)
	assert.Equal(t, layers, sc.LayeredHistory)
}
