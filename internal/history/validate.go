package history

import (
	"context"
	"strconv"

	"github.com/rcliao/story-history/internal/memory"
	"github.com/rcliao/story-history/internal/model"
	"github.com/rcliao/story-history/internal/scene"
)

// ValidateHistory assigns ids to entries that lack one or share one with an
// earlier entry of the same list. With commit set, the archive is written to
// the memory index afterwards. It reports whether any entry was repaired.
func (e *Engine) ValidateHistory(ctx context.Context, sc *scene.Scene, commit bool) (bool, error) {
	repaired := 0

	seen := make(map[string]bool, len(sc.ArchivedHistory))
	for i := range sc.ArchivedHistory {
		a := &sc.ArchivedHistory[i]
		if a.ID == "" || seen[a.ID] {
			a.ID = e.uniqueArchiveID(sc)
			repaired++
		}
		seen[a.ID] = true
	}
	for l := range sc.LayeredHistory {
		seen := make(map[string]bool, len(sc.LayeredHistory[l]))
		for i := range sc.LayeredHistory[l] {
			a := &sc.LayeredHistory[l][i]
			if a.ID == "" || seen[a.ID] {
				a.ID = e.uniqueLayeredID(sc, l)
				repaired++
			}
			seen[a.ID] = true
		}
	}
	if repaired > 0 {
		e.log.Info().Int("repaired", repaired).Msg("history entries repaired")
	}

	if commit && e.memory != nil {
		items := make([]model.Memory, len(sc.ArchivedHistory))
		for i, a := range sc.ArchivedHistory {
			items[i] = archiveMemory(a)
		}
		if err := e.memory.AddMany(ctx, items); err != nil {
			return repaired > 0, err
		}
	}
	return repaired > 0, nil
}

// MigrateLegacyLayers repairs layered entries written by older versions,
// which stored an exclusive end and no id. Only entries without an id are
// touched, so running it twice is harmless. It must run before
// ValidateHistory, which would otherwise hide the marker.
func (e *Engine) MigrateLegacyLayers(sc *scene.Scene) int {
	migrated := 0
	for l := range sc.LayeredHistory {
		for i := range sc.LayeredHistory[l] {
			a := &sc.LayeredHistory[l][i]
			if a.ID != "" {
				continue
			}
			a.ID = e.uniqueLayeredID(sc, l)
			if a.End != nil {
				a.End = model.IntPtr(*a.End + 1)
			}
			migrated++
		}
	}
	if migrated > 0 {
		e.log.Info().Int("migrated", migrated).Msg("legacy layered entries migrated")
	}
	return migrated
}

// ReimportHistory drops every history record from the memory index and
// writes the current archive back.
func (e *Engine) ReimportHistory(ctx context.Context, sc *scene.Scene) error {
	if e.memory != nil {
		n, err := e.memory.Delete(ctx, memory.Filter{"typ": model.MemoryTypeHistory})
		if err != nil {
			return err
		}
		e.log.Debug().Int("deleted", n).Msg("history records dropped")
	}
	_, err := e.ValidateHistory(ctx, sc, true)
	return err
}

// reimport is ReimportHistory for callers whose own change already
// succeeded; the index is repaired by the next reimport.
func (e *Engine) reimport(ctx context.Context, sc *scene.Scene) {
	if err := e.ReimportHistory(ctx, sc); err != nil {
		e.log.Warn().Err(err).Msg("history reimport failed")
	}
}

func (e *Engine) emitArchiveAdd(ctx context.Context, entry model.ArchiveEntry) {
	if e.memory == nil {
		return
	}
	if err := e.memory.AddMany(ctx, []model.Memory{archiveMemory(entry)}); err != nil {
		e.log.Warn().Err(err).Str("id", entry.ID).Msg("archive entry not mirrored to memory")
	}
}

func archiveMemory(a model.ArchiveEntry) model.Memory {
	meta := map[string]string{
		"typ":    model.MemoryTypeHistory,
		"manual": strconv.FormatBool(a.IsManual()),
	}
	if a.Start != nil {
		meta["start"] = strconv.Itoa(*a.Start)
	}
	if a.End != nil {
		meta["end"] = strconv.Itoa(*a.End)
	}
	return model.Memory{
		ID:   a.ID,
		Typ:  model.MemoryTypeHistory,
		Text: a.Text,
		TS:   a.TS,
		Meta: meta,
	}
}
