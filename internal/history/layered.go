package history

import (
	"context"
	"errors"
	"strings"

	"github.com/rcliao/story-history/internal/chunker"
	"github.com/rcliao/story-history/internal/llm"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
	"github.com/rcliao/story-history/internal/status"
	"github.com/rcliao/story-history/internal/summarizer"
)

// layerItem is the part of a lower-layer entry the cascade reads.
type layerItem struct {
	Text    string
	TS      string
	TSStart string
	TSEnd   string
}

func archiveItems(entries []model.ArchiveEntry) []layerItem {
	items := make([]layerItem, len(entries))
	for i, a := range entries {
		items[i] = layerItem{Text: a.Text, TS: a.TS}
	}
	return items
}

func layeredItems(entries []model.LayeredArchiveEntry) []layerItem {
	items := make([]layerItem, len(entries))
	for i, a := range entries {
		items[i] = layerItem{Text: a.Text, TS: a.TS, TSStart: a.TSStart, TSEnd: a.TSEnd}
	}
	return items
}

// SummarizeToLayeredHistory compacts the archive into layered history and
// then cascades each layer into the next until nothing changes. Only whole
// chunks are compacted; a partial tail waits for more material.
//
// Cancellation ends the cascade quietly with an info status. A summary that
// came out longer than its source aborts the cascade with an error status and
// is returned to the caller.
func (e *Engine) SummarizeToLayeredHistory(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) error {
	updated, err := e.cascade(ctx, sc, opts)

	var longer *model.SummaryLongerThanOriginalError
	switch {
	case err == nil:
		if updated {
			e.status.Emit(status.Event{Status: status.Success, Message: "Layered history updated."})
		}
		return nil
	case llm.IsCancelled(err):
		e.log.Info().Msg("layered history update cancelled")
		e.status.Emit(status.Event{Status: status.Info, Message: "Layered history update cancelled."})
		return nil
	case errors.As(err, &longer):
		e.log.Error().Err(err).Msg("layered history update failed")
		e.status.Emit(status.Event{
			Status:  status.Error,
			Message: "Layered history update failed.",
			Data:    map[string]any{"original_tokens": longer.OriginalTokens, "summary_tokens": longer.SummaryTokens},
		})
		return err
	default:
		return err
	}
}

func (e *Engine) cascade(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) (bool, error) {
	if e.cfg.MaxLayers < 1 {
		return false, nil
	}
	startFrom := 0
	if len(sc.LayeredHistory) > 0 {
		if base := sc.LayeredHistory[0]; len(base) > 0 && base[len(base)-1].End != nil {
			startFrom = *base[len(base)-1].End + 1
		}
	}
	updated, err := e.summarizeLayer(ctx, sc, archiveItems(sc.ArchivedHistory), 0, startFrom, opts)
	if err != nil {
		return updated, err
	}

	for {
		changed, err := e.updateLayers(ctx, sc, opts)
		if err != nil {
			return updated, err
		}
		if !changed {
			return updated, nil
		}
		updated = true
	}
}

func (e *Engine) updateLayers(ctx context.Context, sc *scene.Scene, opts summarizer.GenerationOptions) (bool, error) {
	changed := false
	for i := 0; i < len(sc.LayeredHistory); i++ {
		if i+1 >= e.cfg.MaxLayers {
			break
		}
		startFrom := 0
		if i+1 < len(sc.LayeredHistory) {
			if next := sc.LayeredHistory[i+1]; len(next) > 0 && next[len(next)-1].End != nil {
				startFrom = *next[len(next)-1].End + 1
			}
		}
		c, err := e.summarizeLayer(ctx, sc, layeredItems(sc.LayeredHistory[i]), i+1, startFrom, opts)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

// summarizeLayer walks source from startFrom and appends one entry to
// layered history list next for every chunk that filled up the threshold.
func (e *Engine) summarizeLayer(ctx context.Context, sc *scene.Scene, source []layerItem, next, startFrom int, opts summarizer.GenerationOptions) (bool, error) {
	var (
		chunk      []layerItem
		chunkSize  int
		startIndex = startFrom
		changed    bool
	)
	for i := startFrom; i < len(source); i++ {
		n := e.tokens.Count(source[i].Text)
		if chunkSize+n > e.cfg.LayeredThreshold {
			if len(chunk) > 0 {
				entry, err := e.compactChunk(ctx, sc, chunk, next, startIndex, i-1, opts)
				if err != nil {
					return changed, err
				}
				for len(sc.LayeredHistory) <= next {
					sc.LayeredHistory = append(sc.LayeredHistory, []model.LayeredArchiveEntry{})
				}
				sc.LayeredHistory[next] = append(sc.LayeredHistory[next], entry)
				changed = true
				e.log.Info().Int("layer", next).Int("start", startIndex).Int("end", i-1).Msg("layered entry added")
			}
			chunk = nil
			chunkSize = 0
			startIndex = i
		}
		chunk = append(chunk, source[i])
		chunkSize += n
	}
	return changed, nil
}

func (e *Engine) compactChunk(ctx context.Context, sc *scene.Scene, chunk []layerItem, next, start, end int, opts summarizer.GenerationOptions) (model.LayeredArchiveEntry, error) {
	ts, tsStart, tsEnd := spanTimes(chunk[0], chunk[len(chunk)-1])

	e.status.Emit(status.Event{
		Status:      status.Busy,
		Message:     "Updating layered history...",
		Cancellable: true,
		Data:        map[string]any{"layer": next, "start": start, "end": end},
	})

	texts := make([]string, len(chunk))
	for i, item := range chunk {
		texts[i] = item.Text
	}
	extra := e.CompileText(sc, CompileOptions{ForLayerIndex: &next})
	text, err := e.summarizeEvents(ctx, texts, extra, opts)
	if err != nil {
		return model.LayeredArchiveEntry{}, err
	}

	original := e.countAll(texts)
	if got := e.tokens.Count(text); got > original {
		return model.LayeredArchiveEntry{}, &model.SummaryLongerThanOriginalError{OriginalTokens: original, SummaryTokens: got}
	}

	return model.LayeredArchiveEntry{
		ArchiveEntry: model.ArchiveEntry{
			Text:  text,
			ID:    e.uniqueLayeredID(sc, next),
			Start: model.IntPtr(start),
			End:   model.IntPtr(end),
			TS:    ts,
		},
		TSStart: tsStart,
		TSEnd:   tsEnd,
	}, nil
}

// spanTimes returns the ts, ts_start and ts_end of an entry summarizing the
// items from first to last.
func spanTimes(first, last layerItem) (ts, tsStart, tsEnd string) {
	tsStart = first.TSStart
	if tsStart == "" {
		tsStart = first.TS
	}
	tsEnd = last.TSEnd
	if tsEnd == "" {
		tsEnd = last.TS
	}
	return first.TS, tsStart, tsEnd
}

// summarizeEvents splits texts into groups that fit MaxProcessTokens and
// summarizes each with the summaries produced so far as rolling context.
func (e *Engine) summarizeEvents(ctx context.Context, texts, extra []string, opts summarizer.GenerationOptions) (string, error) {
	var summaries []string
	for _, group := range chunker.Group(texts, e.cfg.MaxProcessTokens, e.tokens.Count) {
		part := make([]string, len(group))
		for i, idx := range group {
			part[i] = texts[idx]
		}
		rolling := append(append([]string(nil), extra...), summaries...)
		out, err := e.sum.SummarizeEvents(ctx, strings.Join(part, "\n\n"), summarizer.EventsParams{
			ExtraContext:   rolling,
			AnalyzeChunks:  e.cfg.AnalyzeChunks,
			ChunkSize:      e.cfg.ChunkSize,
			ResponseLength: e.cfg.ResponseLength,
			Options:        opts,
		})
		if err != nil {
			return "", err
		}
		summaries = append(summaries, strings.TrimSpace(out))
	}
	return strings.Join(summaries, "\n\n"), nil
}

// CompileOptions select what CompileLayeredHistory returns.
type CompileOptions struct {
	// ForLayerIndex limits the walk to layered history lists at or above
	// this index. The archive is only reachable when it is nil or 0.
	ForLayerIndex *int
	// IncludeBaseLayer appends the archive entries not yet covered.
	IncludeBaseLayer bool
	// Max stops the walk at the first entry of the finest walked layered
	// list whose end reaches Max.
	Max *int
}

// CompiledEntry is one element of the compiled history. Layer uses
// HistoryEntry numbering; LayerR counts from the coarsest layer, which is 1.
type CompiledEntry struct {
	Text    string `json:"text"`
	ID      string `json:"id"`
	Start   *int   `json:"start"`
	End     *int   `json:"end"`
	Layer   int    `json:"layer"`
	LayerR  int    `json:"layer_r"`
	TS      string `json:"ts"`
	TSStart string `json:"ts_start"`
	Index   int    `json:"index"`
}

// CompileLayeredHistory flattens the layers into one chronological list,
// coarsest first: every layer contributes only the entries not already
// covered by the layer above it. It does not modify the scene.
func (e *Engine) CompileLayeredHistory(sc *scene.Scene, opts CompileOptions) []CompiledEntry {
	var out []CompiledEntry
	minLayer := 0
	if opts.ForLayerIndex != nil {
		minLayer = *opts.ForLayerIndex
	}
	total := len(sc.LayeredHistory)
	next := 0
	includeBase := opts.IncludeBaseLayer && minLayer <= 0
	baseIndex := 1

	// Archive entries ahead of the first summarized range were inserted
	// after the layers were built; they come first.
	if includeBase && total > 0 && len(sc.LayeredHistory[0]) > 0 {
		if first := sc.LayeredHistory[0][0]; first.Start != nil {
			for j := 0; j < *first.Start && j < len(sc.ArchivedHistory); j++ {
				out = append(out, baseEntry(sc.ArchivedHistory[j], total, baseIndex))
				baseIndex++
			}
		}
	}

	for i := total - 1; i >= 0; i-- {
		if i < minLayer {
			return out
		}
		layer := sc.LayeredHistory[i]
		if len(layer) == 0 {
			continue
		}
		index := 1
		for j := next; j < len(layer); j++ {
			entry := layer[j]
			if opts.Max != nil && i == minLayer && entry.End != nil && *entry.End >= *opts.Max {
				return out
			}
			tsStart := entry.TSStart
			if tsStart == "" {
				tsStart = entry.TS
			}
			out = append(out, CompiledEntry{
				Text:    entry.Text,
				ID:      entry.ID,
				Start:   entry.Start,
				End:     entry.End,
				Layer:   i + 1,
				LayerR:  total - i,
				TS:      entry.TS,
				TSStart: tsStart,
				Index:   index,
			})
			index++
		}
		next = 0
		if last := layer[len(layer)-1]; last.End != nil {
			next = *last.End + 1
		}
	}

	if !includeBase {
		return out
	}
	for j := next; j < len(sc.ArchivedHistory); j++ {
		out = append(out, baseEntry(sc.ArchivedHistory[j], total, baseIndex))
		baseIndex++
	}
	return out
}

func baseEntry(entry model.ArchiveEntry, total, index int) CompiledEntry {
	return CompiledEntry{
		Text:    entry.Text,
		ID:      entry.ID,
		Start:   entry.Start,
		End:     entry.End,
		Layer:   0,
		LayerR:  total + 1,
		TS:      entry.TS,
		TSStart: entry.TS,
		Index:   index,
	}
}

// CompileText returns only the texts of CompileLayeredHistory.
func (e *Engine) CompileText(sc *scene.Scene, opts CompileOptions) []string {
	compiled := e.CompileLayeredHistory(sc, opts)
	texts := make([]string, len(compiled))
	for i, c := range compiled {
		texts[i] = c.Text
	}
	return texts
}
