package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/story-history/internal/memory"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/summarizer"
)

func manual(id, text, ts string) model.ArchiveEntry {
	return model.ArchiveEntry{ID: id, Text: text, TS: ts}
}

func summarized(id, ts string, start, end int) model.ArchiveEntry {
	return model.ArchiveEntry{ID: id, Text: "summary " + id, TS: ts, Start: model.IntPtr(start), End: model.IntPtr(end)}
}

func timestamps(entries []model.ArchiveEntry) []string {
	out := make([]string, len(entries))
	for i, a := range entries {
		out[i] = a.TS
	}
	return out
}

func TestAddHistoryEntryFirst(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()

	entry, err := e.AddHistoryEntry(context.Background(), sc, "The war began.", "P1D")
	require.NoError(t, err)
	assert.Equal(t, "PT0S", entry.TS)
	assert.True(t, entry.IsStatic())
	assert.Equal(t, "P1D", sc.TS)
	require.Len(t, sc.ArchivedHistory, 1)
	assert.True(t, sc.ArchivedHistory[0].IsManual())
}

func TestAddHistoryEntryInsertsInOrder(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.TS = "P10D"
	sc.ArchivedHistory = []model.ArchiveEntry{
		manual("m1", "a", "PT0S"),
		manual("m2", "b", "P2D"),
		summarized("s1", "P5D", 0, 3),
	}

	entry, err := e.AddHistoryEntry(context.Background(), sc, "between", "P9D")
	require.NoError(t, err)
	assert.Equal(t, "P1D", entry.TS)
	assert.Equal(t, 1, entry.Index)
	assert.Equal(t, []string{"PT0S", "P1D", "P2D", "P5D"}, timestamps(sc.ArchivedHistory))
	assert.Equal(t, "P10D", sc.TS)
}

func TestAddHistoryEntryShiftsTimeline(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.TS = "PT1H"
	sc.ArchivedHistory = []model.ArchiveEntry{
		manual("m1", "a", "PT0S"),
		summarized("s1", "PT30M", 0, 3),
	}
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{
		{ArchiveEntry: summarized("l1", "PT0S", 0, 1), TSStart: "PT0S", TSEnd: "PT30M"},
	}}

	entry, err := e.AddHistoryEntry(context.Background(), sc, "long ago", "PT2H")
	require.NoError(t, err)

	assert.Equal(t, "PT0S", entry.TS)
	assert.Equal(t, 0, entry.Index)
	assert.Equal(t, "PT2H", sc.TS)
	assert.Equal(t, []string{"PT0S", "PT1H", "PT1H30M"}, timestamps(sc.ArchivedHistory))
	layered := sc.LayeredHistory[0][0]
	assert.Equal(t, "PT1H", layered.TS)
	assert.Equal(t, "PT1H", layered.TSStart)
	assert.Equal(t, "PT1H30M", layered.TSEnd)
}

func TestAddHistoryEntryRejectsLatePlacement(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.TS = "PT1H"
	sc.ArchivedHistory = []model.ArchiveEntry{summarized("s1", "PT30M", 0, 3)}

	_, err := e.AddHistoryEntry(context.Background(), sc, "too late", "PT10M")
	assert.ErrorIs(t, err, model.ErrInvalidPlacement)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = e.AddHistoryEntry(context.Background(), sc, "exactly at", "PT30M")
	assert.ErrorIs(t, err, model.ErrInvalidPlacement)
	assert.Len(t, sc.ArchivedHistory, 1)
}

func TestAddHistoryEntryValidatesInput(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()

	_, err := e.AddHistoryEntry(context.Background(), sc, "", "P1D")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.AddHistoryEntry(context.Background(), sc, "text", "yesterday")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.AddHistoryEntry(context.Background(), sc, "text", "-P1D")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDeleteHistoryEntry(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.TS = "P1D"
	sc.ArchivedHistory = []model.ArchiveEntry{
		manual("m1", "a", "PT0S"),
		manual("m2", "b", "PT1H"),
		summarized("s1", "PT2H", 0, 3),
	}
	ctx := context.Background()

	first, err := EntryAt(sc, 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.DeleteHistoryEntry(ctx, sc, first))

	assert.Equal(t, []string{"PT0S", "PT1H"}, timestamps(sc.ArchivedHistory))
	assert.Equal(t, "PT23H", sc.TS)
	assert.Equal(t, "m2", sc.ArchivedHistory[0].ID)
}

func TestDeleteHistoryEntryRejectsGenerated(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := archiveOf(4)
	ctx := context.Background()

	entry, err := EntryAt(sc, 0, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, e.DeleteHistoryEntry(ctx, sc, entry), model.ErrNotDeletable)

	forged := entry
	forged.Start, forged.End = nil, nil
	assert.ErrorIs(t, e.DeleteHistoryEntry(ctx, sc, forged), model.ErrNotDeletable)

	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{{ArchiveEntry: manual("l1", "x", "PT0S")}}}
	layered, err := EntryAt(sc, 1, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, e.DeleteHistoryEntry(ctx, sc, layered), model.ErrNotDeletable)
	assert.Len(t, sc.ArchivedHistory, 4)
}

func TestUpdateHistoryEntry(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := archiveOf(3)
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{
		{ArchiveEntry: summarized("l1", "PT0S", 0, 1), TSStart: "PT0S", TSEnd: "PT1H"},
	}}
	ctx := context.Background()

	entry, err := EntryAt(sc, 0, 2)
	require.NoError(t, err)
	entry.Text = "rewritten"
	entry.Index = 0
	require.NoError(t, e.UpdateHistoryEntry(ctx, sc, entry))
	assert.Equal(t, "rewritten", sc.ArchivedHistory[2].Text)
	assert.Equal(t, "entry 0 text here", sc.ArchivedHistory[0].Text)

	layered, err := EntryAt(sc, 1, 0)
	require.NoError(t, err)
	layered.Text = "coarse"
	require.NoError(t, e.UpdateHistoryEntry(ctx, sc, layered))
	assert.Equal(t, "coarse", sc.LayeredHistory[0][0].Text)
	assert.Equal(t, "PT1H", sc.LayeredHistory[0][0].TSEnd)

	layered.ID = "missing"
	assert.ErrorIs(t, e.UpdateHistoryEntry(ctx, sc, layered), model.ErrNotFound)
}

func TestRegenerateHistoryEntry(t *testing.T) {
	sum := &fakeSummarizer{summarize: func(string, []string) (string, error) { return "fresh", nil }}
	e, _ := newTestEngine(t, testConfig(), sum)
	sc := sceneWith(line("Alice", 0), director("hush"), line("Bob", 2), line("Alice", 3))
	sc.ArchivedHistory = []model.ArchiveEntry{summarized("s1", "PT0S", 0, 2)}

	entry, err := EntryAt(sc, 0, 0)
	require.NoError(t, err)
	out, err := e.RegenerateHistoryEntry(context.Background(), sc, entry, summarizer.GenerationOptions{})
	require.NoError(t, err)

	assert.Equal(t, "fresh", out.Text)
	assert.Equal(t, "fresh", sc.ArchivedHistory[0].Text)
	require.Len(t, sum.summarizeInputs, 1)
	assert.Equal(t, "Alice: line 0 goes here\nBob: line 2 goes here", sum.summarizeInputs[0])
}

func TestRegenerateLayeredEntry(t *testing.T) {
	sum := &fakeSummarizer{events: func(string, summarizer.EventsParams) (string, error) { return "fresh", nil }}
	e, _ := newTestEngine(t, testConfig(), sum)
	sc := archiveOf(4)
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{
		{ArchiveEntry: summarized("l1", "PT0S", 0, 1)},
		{ArchiveEntry: summarized("l2", "PT2H", 2, 3)},
	}}

	entry, err := EntryAt(sc, 1, 1)
	require.NoError(t, err)
	out, err := e.RegenerateHistoryEntry(context.Background(), sc, entry, summarizer.GenerationOptions{})
	require.NoError(t, err)

	assert.Equal(t, "fresh", out.Text)
	assert.Equal(t, "fresh", sc.LayeredHistory[0][1].Text)
	assert.Equal(t, "summary l1", sc.LayeredHistory[0][0].Text)
	assert.Equal(t, []string{"entry 2 text here\n\nentry 3 text here"}, sum.eventsInputs)
}

func TestRegenerateRejectsManual(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.ArchivedHistory = []model.ArchiveEntry{manual("m1", "a", "PT0S")}

	entry, err := EntryAt(sc, 0, 0)
	require.NoError(t, err)
	_, err = e.RegenerateHistoryEntry(context.Background(), sc, entry, summarizer.GenerationOptions{})
	var unregen *model.UnregeneratableEntryError
	require.ErrorAs(t, err, &unregen)
	assert.Equal(t, "m1", unregen.ID)
}

func TestRegenerateRejectsMissingSources(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := sceneWith()
	sc.ArchivedHistory = []model.ArchiveEntry{summarized("s1", "PT0S", 5, 8)}

	entry, err := EntryAt(sc, 0, 0)
	require.NoError(t, err)
	_, err = e.RegenerateHistoryEntry(context.Background(), sc, entry, summarizer.GenerationOptions{})
	var unregen *model.UnregeneratableEntryError
	assert.ErrorAs(t, err, &unregen)
}

func TestCollectSourceEntries(t *testing.T) {
	sc := sceneWith(line("Alice", 0), director("hush"), line("Bob", 2), passage("PT1H"), line("Alice", 4))
	sc.ArchivedHistory = []model.ArchiveEntry{
		summarized("s1", "PT0S", 0, 2),
		summarized("s2", "PT1H", 3, 4),
	}
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{
		{{ArchiveEntry: summarized("l1", "PT0S", 0, 1), TSStart: "PT0S", TSEnd: "PT1H"}},
		{{ArchiveEntry: summarized("k1", "PT0S", 0, 0), TSStart: "PT0S", TSEnd: "PT1H"}},
	}

	base, err := EntryAt(sc, 0, 0)
	require.NoError(t, err)
	sources, err := CollectSourceEntries(sc, base)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, model.TranscriptLayer, sources[0].Layer)
	assert.Equal(t, "1", sources[0].ID)
	assert.Equal(t, "3", sources[1].ID)

	first, err := EntryAt(sc, 1, 0)
	require.NoError(t, err)
	sources, err = CollectSourceEntries(sc, first)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, 0, sources[0].Layer)
	assert.Equal(t, "s2", sources[1].ID)

	second, err := EntryAt(sc, 2, 0)
	require.NoError(t, err)
	sources, err = CollectSourceEntries(sc, second)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, sources[0].Layer)
	assert.Equal(t, "l1", sources[0].ID)
	assert.Equal(t, "PT1H", sources[0].TSEnd)

	sources, err = CollectSourceEntries(sc, model.HistoryEntry{ID: "m", Layer: 0})
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestEntriesRelativeTime(t *testing.T) {
	sc := archiveOf(3)
	sc.TS = "PT2H"

	entries, err := Entries(sc, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2 hours ago", entries[0].Time)
	assert.Equal(t, "Recently", entries[2].Time)
	assert.Equal(t, 2, entries[2].Index)

	_, err = Entries(sc, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestValidateHistoryAssignsIDs(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := archiveOf(3)
	sc.ArchivedHistory[1].ID = ""
	sc.ArchivedHistory[2].ID = sc.ArchivedHistory[0].ID
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{{ArchiveEntry: summarized("", "PT0S", 0, 1)}}}

	repaired, err := e.ValidateHistory(context.Background(), sc, false)
	require.NoError(t, err)
	assert.True(t, repaired)

	ids := map[string]bool{}
	for _, a := range sc.ArchivedHistory {
		require.NotEmpty(t, a.ID)
		ids[a.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.NotEmpty(t, sc.LayeredHistory[0][0].ID)
	assert.Equal(t, 1, *sc.LayeredHistory[0][0].End, "ends are left alone")

	repaired, err = e.ValidateHistory(context.Background(), sc, false)
	require.NoError(t, err)
	assert.False(t, repaired)
}

func TestMigrateLegacyLayers(t *testing.T) {
	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{})
	sc := archiveOf(4)
	sc.LayeredHistory = [][]model.LayeredArchiveEntry{{
		{ArchiveEntry: summarized("", "PT0S", 0, 1)},
		{ArchiveEntry: summarized("kept", "PT2H", 2, 3)},
	}}

	assert.Equal(t, 1, e.MigrateLegacyLayers(sc))
	assert.Equal(t, 2, *sc.LayeredHistory[0][0].End)
	assert.NotEmpty(t, sc.LayeredHistory[0][0].ID)
	assert.Equal(t, 3, *sc.LayeredHistory[0][1].End)

	assert.Zero(t, e.MigrateLegacyLayers(sc))
	assert.Equal(t, 2, *sc.LayeredHistory[0][0].End)
}

func TestReimportHistoryMirrorsArchive(t *testing.T) {
	idx, err := memory.NewSQLiteIndex(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	ctx := context.Background()

	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{}, WithMemory(idx))
	sc := archiveOf(3)
	require.NoError(t, idx.AddMany(ctx, []model.Memory{{ID: "stale", Typ: model.MemoryTypeHistory, Text: "old"}}))
	require.NoError(t, idx.AddMany(ctx, []model.Memory{{ID: "lore", Typ: model.MemoryTypeWorld, Text: "dragons"}}))

	require.NoError(t, e.ReimportHistory(ctx, sc))

	records, err := idx.List(ctx, memory.ListParams{Typ: model.MemoryTypeHistory})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	_, err = idx.Get(ctx, "stale")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = idx.Get(ctx, "lore")
	assert.NoError(t, err)

	got, err := idx.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "false", got.Meta["manual"])
	assert.Equal(t, "3", got.Meta["end"])
}

func TestAddHistoryEntryMirrorsToMemory(t *testing.T) {
	idx, err := memory.NewSQLiteIndex(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	ctx := context.Background()

	e, _ := newTestEngine(t, testConfig(), &fakeSummarizer{}, WithMemory(idx))
	sc := sceneWith()
	entry, err := e.AddHistoryEntry(ctx, sc, "The war began.", "P1D")
	require.NoError(t, err)

	got, err := idx.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "The war began.", got.Text)
	assert.Equal(t, "true", got.Meta["manual"])
}
