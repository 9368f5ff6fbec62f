package history

import (
	"fmt"
	"strconv"

	"github.com/rcliao/story-history/internal/isoduration"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

// Layers returns the number of entry layers, the archive included.
func Layers(sc *scene.Scene) int {
	return len(sc.LayeredHistory) + 1
}

// Entries returns views of every entry in layer, with times relative to the
// current scene time.
func Entries(sc *scene.Scene, layer int) ([]model.HistoryEntry, error) {
	switch {
	case layer == 0:
		out := make([]model.HistoryEntry, len(sc.ArchivedHistory))
		for i, a := range sc.ArchivedHistory {
			out[i] = archiveView(sc, a, i)
		}
		return out, nil
	case layer > 0 && layer <= len(sc.LayeredHistory):
		list := sc.LayeredHistory[layer-1]
		out := make([]model.HistoryEntry, len(list))
		for i, a := range list {
			out[i] = layeredView(sc, a, layer, i)
		}
		return out, nil
	}
	return nil, fmt.Errorf("layer %d: %w", layer, model.ErrNotFound)
}

// EntryAt returns the view of the entry at index in layer.
func EntryAt(sc *scene.Scene, layer, index int) (model.HistoryEntry, error) {
	entries, err := Entries(sc, layer)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	if index < 0 || index >= len(entries) {
		return model.HistoryEntry{}, fmt.Errorf("layer %d index %d: %w", layer, index, model.ErrNotFound)
	}
	return entries[index], nil
}

// FindEntry returns the view of the entry with id in layer.
func FindEntry(sc *scene.Scene, layer int, id string) (model.HistoryEntry, error) {
	idx, err := locate(sc, layer, id, -1)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	return EntryAt(sc, layer, idx)
}

// locate resolves an entry position, trusting hint only when it still holds
// the entry with id.
func locate(sc *scene.Scene, layer int, id string, hint int) (int, error) {
	switch {
	case layer == 0:
		if hint >= 0 && hint < len(sc.ArchivedHistory) && sc.ArchivedHistory[hint].ID == id {
			return hint, nil
		}
		if idx := sc.ArchiveIndex(id); idx >= 0 {
			return idx, nil
		}
	case layer > 0 && layer <= len(sc.LayeredHistory):
		list := sc.LayeredHistory[layer-1]
		if hint >= 0 && hint < len(list) && list[hint].ID == id {
			return hint, nil
		}
		if idx := sc.LayeredIndex(layer-1, id); idx >= 0 {
			return idx, nil
		}
	}
	return -1, fmt.Errorf("history entry %q in layer %d: %w", id, layer, model.ErrNotFound)
}

func archiveView(sc *scene.Scene, a model.ArchiveEntry, index int) model.HistoryEntry {
	return model.HistoryEntry{
		Text:  a.Text,
		ID:    a.ID,
		Start: a.Start,
		End:   a.End,
		TS:    a.TS,
		Layer: 0,
		Index: index,
		Time:  isoduration.DiffToHuman(sc.TS, a.TS),
	}
}

func layeredView(sc *scene.Scene, a model.LayeredArchiveEntry, layer, index int) model.HistoryEntry {
	return model.HistoryEntry{
		Text:      a.Text,
		ID:        a.ID,
		Start:     a.Start,
		End:       a.End,
		TS:        a.TS,
		TSStart:   a.TSStart,
		TSEnd:     a.TSEnd,
		Layer:     layer,
		Index:     index,
		Time:      isoduration.DiffToHuman(sc.TS, a.TS),
		TimeStart: isoduration.DiffToHuman(sc.TS, a.TSStart),
		TimeEnd:   isoduration.DiffToHuman(sc.TS, a.TSEnd),
	}
}

// CollectSourceEntries resolves the entries one layer down that entry was
// summarized from. For archive entries those are the non-meta transcript
// messages in its range.
func CollectSourceEntries(sc *scene.Scene, entry model.HistoryEntry) ([]model.SourceEntry, error) {
	if entry.Start == nil || entry.End == nil {
		return nil, nil
	}
	from, to := *entry.Start, *entry.End

	var out []model.SourceEntry
	switch {
	case entry.Layer == 0:
		for i := max(from, 0); i <= to && i < len(sc.History); i++ {
			m := sc.History[i]
			if m.IsMeta() {
				continue
			}
			out = append(out, model.SourceEntry{
				Text:  m.String(),
				Layer: model.TranscriptLayer,
				ID:    strconv.Itoa(m.ID),
			})
		}
	case entry.Layer == 1:
		for i := max(from, 0); i <= to && i < len(sc.ArchivedHistory); i++ {
			a := sc.ArchivedHistory[i]
			out = append(out, model.SourceEntry{
				Text:  a.Text,
				Layer: 0,
				ID:    a.ID,
				Start: a.Start,
				End:   a.End,
				TS:    a.TS,
			})
		}
	case entry.Layer >= 2 && entry.Layer-2 < len(sc.LayeredHistory):
		list := sc.LayeredHistory[entry.Layer-2]
		for i := max(from, 0); i <= to && i < len(list); i++ {
			a := list[i]
			out = append(out, model.SourceEntry{
				Text:    a.Text,
				Layer:   entry.Layer - 1,
				ID:      a.ID,
				Start:   a.Start,
				End:     a.End,
				TS:      a.TS,
				TSStart: a.TSStart,
				TSEnd:   a.TSEnd,
			})
		}
	default:
		return nil, fmt.Errorf("layer %d: %w", entry.Layer, model.ErrNotFound)
	}
	return out, nil
}
