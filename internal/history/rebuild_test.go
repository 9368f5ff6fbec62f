package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

func TestEstimatedEntryCount(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith(line("Alice", 0), director("x y z w v u"), line("Bob", 1), line("Alice", 2), line("Bob", 3), passage("P1D"))

	assert.Equal(t, 2, e.EstimatedEntryCount(sc))
}

func TestRebuildHistory(t *testing.T) {
	cfg := testConfig()
	cfg.LayeredEnabled = true
	cfg.LayeredThreshold = 5
	e, rec := newTestEngine(t, cfg, &fakeSummarizer{events: func(string, summarizer.EventsParams) (string, error) {
		return "short", nil
	}})
	sc := sceneWith()
	for i := 0; i < 20; i++ {
		sc.Push(line("Alice", i))
	}
	sc.ArchivedHistory = []model.ArchiveEntry{
		manual("m1", "long before", "PT0S"),
		{ID: "old", Text: "stale", Start: model.IntPtr(0), End: model.IntPtr(18), TS: "PT0S"},
	}
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{{ArchiveEntry: summarized("l", "PT0S", 0, 1)}}}

	require.NoError(t, e.RebuildHistory(context.Background(), sc, summarizer.GenerationOptions{}))

	require.Greater(t, len(sc.ArchivedHistory), 2)
	assert.Equal(t, "m1", sc.ArchivedHistory[0].ID)
	assert.Equal(t, -1, sc.ArchiveIndex("old"))
	assert.Equal(t, 0, *sc.ArchivedHistory[1].Start)
	require.NotEmpty(t, sc.LayeredHistory)
	assert.NotEqual(t, "l", sc.LayeredHistory[0][0].ID)

	evt, ok := rec.Last(status.Success)
	require.True(t, ok)
	assert.Equal(t, "Historical archive rebuilt", evt.Message)

	var progress []string
	for _, evt := range rec.Events() {
		if evt.Status == status.Busy && evt.Cancellable {
			progress = append(progress, evt.Message)
		}
	}
	assert.Contains(t, progress, "Rebuilding historical archive... 0/10")
}

func TestRebuildHistoryCancelled(t *testing.T) {
	calls := 0
	e, rec := newTestEngine(t, testConfig(), &fakeSummarizer{summarize: func(string, []string) (string, error) {
		calls++
		if calls > 1 {
			return "", llm.ErrGenerationCancelled
		}
		return "first", nil
	}})
	sc := sceneWith()
	for i := 0; i < 20; i++ {
		sc.Push(line("Alice", i))
	}

	require.NoError(t, e.RebuildHistory(context.Background(), sc, summarizer.GenerationOptions{}))
	require.Len(t, sc.ArchivedHistory, 1, "work done before the cancel is kept")

	evt, ok := rec.Last(status.Info)
	require.True(t, ok)
	assert.Equal(t, "Rebuilding of archive cancelled", evt.Message)
	_, failed := rec.Last(status.Error)
	assert.False(t, failed)
}

func TestRebuildHistoryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{summarize: func(string, []string) (string, error) {
		cancel()
		return "done", nil
	}})
	sc := sceneWith()
	for i := 0; i < 20; i++ {
		sc.Push(line("Alice", i))
	}

	require.NoError(t, e.RebuildHistory(ctx, sc, summarizer.GenerationOptions{}))
	assert.Len(t, sc.ArchivedHistory, 1)
}
