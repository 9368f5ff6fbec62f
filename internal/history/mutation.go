package history

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/summarizer"
)

// UpdateHistoryEntry writes entry back into the list its layer names. The
// entry is found by id; its index is only used as a hint.
func (e *Engine) UpdateHistoryEntry(ctx context.Context, sc *scene.Scene, entry model.HistoryEntry) error {
	idx, err := locate(sc, entry.Layer, entry.ID, entry.Index)
	if err != nil {
		return err
	}
	if entry.Layer == 0 {
		sc.ArchivedHistory[idx] = entry.ArchiveEntry()
		e.emitArchiveAdd(ctx, sc.ArchivedHistory[idx])
	} else {
		sc.LayeredHistory[entry.Layer-1][idx] = entry.LayeredArchiveEntry()
	}
	e.log.Debug().Str("id", entry.ID).Int("layer", entry.Layer).Msg("history entry updated")
	return nil
}

// RegenerateHistoryEntry summarizes the sources of entry again and writes
// the new text back. Manual entries cannot be regenerated.
func (e *Engine) RegenerateHistoryEntry(ctx context.Context, sc *scene.Scene, entry model.HistoryEntry, opts summarizer.GenerationOptions) (model.HistoryEntry, error) {
	if entry.Start == nil || entry.End == nil {
		return entry, &model.UnregeneratableEntryError{ID: entry.ID, Reason: "no source range"}
	}
	idx, err := locate(sc, entry.Layer, entry.ID, entry.Index)
	if err != nil {
		return entry, err
	}
	live, err := EntryAt(sc, entry.Layer, idx)
	if err != nil {
		return entry, err
	}
	sources, err := CollectSourceEntries(sc, live)
	if err != nil {
		return entry, err
	}
	if len(sources) == 0 {
		return entry, &model.UnregeneratableEntryError{ID: entry.ID, Reason: "no source entries"}
	}
	texts := make([]string, len(sources))
	for i, s := range sources {
		texts[i] = s.Text
	}

	var text string
	if live.Layer == 0 {
		text, err = e.summarizeWithRetry(ctx, strings.Join(texts, "\n"), e.previousSummaries(sc, idx), opts)
	} else {
		text, err = e.summarizeEvents(ctx, texts, precedingTexts(sc, live.Layer, idx, e.cfg.PreviousSummaries), opts)
	}
	if err != nil {
		return entry, err
	}

	// The lists may have moved while the model was generating.
	idx, err = locate(sc, live.Layer, live.ID, idx)
	if err != nil {
		return entry, err
	}
	live, err = EntryAt(sc, live.Layer, idx)
	if err != nil {
		return entry, err
	}
	live.Text = text
	if err := e.UpdateHistoryEntry(ctx, sc, live); err != nil {
		return entry, err
	}
	return live, nil
}

// precedingTexts returns up to n texts before index in a layered list.
func precedingTexts(sc *scene.Scene, layer, index, n int) []string {
	if n <= 0 || layer < 1 || layer > len(sc.LayeredHistory) {
		return nil
	}
	list := sc.LayeredHistory[layer-1]
	from := max(index-n, 0)
	var texts []string
	for _, a := range list[from:min(index, len(list))] {
		texts = append(texts, a.Text)
	}
	return texts
}

// AddHistoryEntry inserts a manual archive entry that happened offset before
// the current scene time. It must pre-date every summarized entry; when it
// would fall before the start of the story, the whole timeline is shifted
// forward to make room.
func (e *Engine) AddHistoryEntry(ctx context.Context, sc *scene.Scene, text, offset string) (model.HistoryEntry, error) {
	if strings.TrimSpace(text) == "" {
		return model.HistoryEntry{}, fmt.Errorf("%w: text is required", model.ErrValidation)
	}
	off, err := isoduration.Parse(offset)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%w: offset: %v", model.ErrValidation, err)
	}
	if off < 0 {
		return model.HistoryEntry{}, fmt.Errorf("%w: offset must not be negative", model.ErrValidation)
	}

	entry := model.ArchiveEntry{Text: text, ID: e.uniqueArchiveID(sc)}

	if len(sc.ArchivedHistory) == 0 {
		entry.TS = isoduration.Zero
		sc.ArchivedHistory = append(sc.ArchivedHistory, entry)
		sc.TS = isoduration.Format(off)
		e.log.Info().Str("id", entry.ID).Str("scene_ts", sc.TS).Msg("first history entry added")
		e.reimport(ctx, sc)
		return archiveView(sc, entry, 0), nil
	}

	at, err := isoduration.Sub(sc.TS, offset)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("scene time: %w", err)
	}

	for _, a := range sc.ArchivedHistory {
		if a.IsManual() {
			continue
		}
		c, err := isoduration.Compare(at, a.TS)
		if err != nil {
			return model.HistoryEntry{}, fmt.Errorf("archive entry %s time: %w", a.ID, err)
		}
		if c >= 0 {
			return model.HistoryEntry{}, fmt.Errorf("%w: entry at %s does not pre-date the first summarized entry at %s",
				model.ErrInvalidPlacement, at, a.TS)
		}
		break
	}

	if c, _ := isoduration.Compare(at, isoduration.Zero); c < 0 {
		deficit, _ := isoduration.Negate(at)
		e.log.Info().Str("by", deficit).Msg("shifting timeline forward")
		e.shiftTimeline(sc, deficit)
		at = isoduration.Zero
	}
	entry.TS = at

	pos := slices.IndexFunc(sc.ArchivedHistory, func(a model.ArchiveEntry) bool {
		c, err := isoduration.Compare(a.TS, at)
		return err == nil && c > 0
	})
	if pos < 0 {
		pos = len(sc.ArchivedHistory)
	}
	sc.ArchivedHistory = slices.Insert(sc.ArchivedHistory, pos, entry)
	insertArchivePosition(sc, pos)
	e.log.Info().Str("id", entry.ID).Str("ts", entry.TS).Int("index", pos).Msg("history entry added")

	e.reimport(ctx, sc)
	return archiveView(sc, entry, pos), nil
}

// DeleteHistoryEntry removes a manual archive entry. Removing the earliest
// entry pulls the timeline back so the new earliest entry sits at zero.
func (e *Engine) DeleteHistoryEntry(ctx context.Context, sc *scene.Scene, entry model.HistoryEntry) error {
	if entry.Layer != 0 || entry.Start != nil || entry.End != nil {
		return fmt.Errorf("%w: only manual base entries can be deleted", model.ErrNotDeletable)
	}
	idx, err := locate(sc, 0, entry.ID, entry.Index)
	if err != nil {
		return err
	}
	if !sc.ArchivedHistory[idx].IsManual() {
		return fmt.Errorf("%w: entry %s was summarized from the transcript", model.ErrNotDeletable, entry.ID)
	}
	sc.ArchivedHistory = slices.Delete(sc.ArchivedHistory, idx, idx+1)
	removeSourcePosition(sc, 0, idx)
	e.log.Info().Str("id", entry.ID).Msg("history entry deleted")

	if idx == 0 && len(sc.ArchivedHistory) > 0 {
		first := sc.ArchivedHistory[0].TS
		if c, err := isoduration.Compare(first, isoduration.Zero); err == nil && c > 0 {
			by, _ := isoduration.Negate(first)
			e.log.Info().Str("by", first).Msg("shifting timeline backward")
			e.shiftTimeline(sc, by)
		}
	}

	e.reimport(ctx, sc)
	return nil
}
